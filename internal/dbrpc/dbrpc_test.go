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

package dbrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/voiceagent/internal/config"
	"github.com/kadirpekel/voiceagent/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	pool := store.NewPool(nil)
	t.Cleanup(func() { _ = pool.Close() })

	cfg := config.DatabaseConfig{Driver: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared"}
	db, err := pool.Get(cfg)
	require.NoError(t, err)
	_, err = db.ExecContext(context.Background(), `CREATE TABLE widgets (id TEXT PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)

	st, err := store.Open(pool, cfg)
	require.NoError(t, err)

	srv := New(st, nil)
	r := chi.NewRouter()
	srv.Routes(r)
	return httptest.NewServer(r)
}

func TestMutationThenQueryRoundTrip(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	mutBody, _ := json.Marshal(mutationRequest{KeyColumn: "id", Values: store.Row{"id": "w1", "name": "Widget"}})
	resp, err := http.Post(server.URL+"/tables/widgets/mutation", "application/json", bytes.NewReader(mutBody))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	queryBody, _ := json.Marshal(queryRequest{Args: store.Row{"id": "w1"}})
	resp, err = http.Post(server.URL+"/tables/widgets/query", "application/json", bytes.NewReader(queryBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []store.Row
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	require.Equal(t, "Widget", rows[0]["name"])
}

func TestActionDeleteWhereRemovesRow(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	mutBody, _ := json.Marshal(mutationRequest{KeyColumn: "id", Values: store.Row{"id": "w1", "name": "Widget"}})
	resp, err := http.Post(server.URL+"/tables/widgets/mutation", "application/json", bytes.NewReader(mutBody))
	require.NoError(t, err)
	resp.Body.Close()

	actionBody, _ := json.Marshal(actionRequest{Action: "delete_where", Args: store.Row{"id": "w1"}})
	resp, err = http.Post(server.URL+"/tables/widgets/action", "application/json", bytes.NewReader(actionBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQueryMalformedBodyReturnsBadRequest(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp, err := http.Post(server.URL+"/tables/widgets/query", "application/json", bytes.NewReader([]byte("not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
