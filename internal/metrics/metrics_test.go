// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNilMetricsMethodsAreNoOps(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordToolCall("search_knowledge", time.Millisecond, false)
		m.RecordCascadeDelete("ok", map[string]int{"chunks": 3})
		m.SetCallSessionsActive("a1", 2)
	})
}

func TestHandlerServesExpositionFormat(t *testing.T) {
	m := New("voiceagent")
	m.RecordToolCall("search_knowledge", 5*time.Millisecond, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "voiceagent_tool_calls_total")
}

func TestRecordCascadeDeleteAccumulatesPerTable(t *testing.T) {
	m := New("voiceagent")
	m.RecordCascadeDelete("ok", map[string]int{"chunks": 10, "documents": 2})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	require.Contains(t, body, `table="chunks"`)
	require.Contains(t, body, `table="documents"`)
}
