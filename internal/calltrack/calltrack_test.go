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

package calltrack

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetBySessionIDOrdersAscending(t *testing.T) {
	tr := New()
	ctx := context.Background()

	require.NoError(t, tr.LogUserMessage(ctx, "s1", "hello"))
	require.NoError(t, tr.LogAgentResponse(ctx, "s1", "hi there"))

	items, err := tr.GetBySessionID(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.False(t, items[1].Timestamp.Before(items[0].Timestamp))
}

func TestLogInteractionsBatchAppendsAll(t *testing.T) {
	tr := New()
	ctx := context.Background()

	err := tr.LogInteractionsBatch(ctx, "s1", []Interaction{
		{Type: TypeUserMessage, Content: "a"},
		{Type: TypeAgentResponse, Content: "b"},
		{Type: TypeFunctionCall, FunctionName: "search_knowledge"},
	})
	require.NoError(t, err)

	counts, err := tr.CountBySessionID(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, 3, counts.Total)
	require.Equal(t, 1, counts.UserMessages)
	require.Equal(t, 1, counts.AgentResponses)
	require.Equal(t, 1, counts.FunctionCalls)
}

func TestGetRecentBySessionIDReturnsTailInOrder(t *testing.T) {
	tr := New()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, tr.LogUserMessage(ctx, "s1", "msg"))
	}

	recent, err := tr.GetRecentBySessionID(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
}

func TestGetFunctionCallsBySessionIDFiltersType(t *testing.T) {
	tr := New()
	ctx := context.Background()
	require.NoError(t, tr.LogUserMessage(ctx, "s1", "hi"))
	require.NoError(t, tr.LogFunctionCall(ctx, "s1", "end_call", map[string]any{"reason": "done"}))

	calls, err := tr.GetFunctionCallsBySessionID(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	require.Equal(t, "end_call", calls[0].FunctionName)
}

func TestUpdateSentimentRequiresExistingInteraction(t *testing.T) {
	tr := New()
	err := tr.UpdateSentiment(context.Background(), "ghost", "positive")
	require.Error(t, err)
}
