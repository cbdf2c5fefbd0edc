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

package toolexec

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/voiceagent/internal/calltrack"
	"github.com/kadirpekel/voiceagent/internal/functionschema"
	"github.com/kadirpekel/voiceagent/internal/vectorindex"
	"github.com/kadirpekel/voiceagent/internal/voiceknowledge"
)

type emptyIndex struct{}

func (emptyIndex) Add(ctx context.Context, req vectorindex.AddRequest) (vectorindex.AddResult, error) {
	return vectorindex.AddResult{}, nil
}
func (emptyIndex) Search(ctx context.Context, req vectorindex.SearchRequest) (vectorindex.SearchResult, error) {
	return vectorindex.SearchResult{}, nil
}
func (emptyIndex) Delete(ctx context.Context, entryID string) error                 { return nil }
func (emptyIndex) DeleteByKey(ctx context.Context, namespace, key string) error     { return nil }
func (emptyIndex) List(ctx context.Context, namespace string, status vectorindex.Status) ([]vectorindex.EntrySummary, error) {
	return nil, nil
}
func (emptyIndex) ListKeysWithPrefix(ctx context.Context, namespace, prefix string) ([]string, error) {
	return nil, nil
}
func (emptyIndex) ClearNamespace(ctx context.Context, namespace string) error { return nil }
func (emptyIndex) Warmup(ctx context.Context, namespace string) (time.Duration, error) {
	return 0, nil
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	knowledge, err := voiceknowledge.New(emptyIndex{}, nil, nil, 8, 8)
	require.NoError(t, err)
	return NewBuilder(knowledge, calltrack.New(), functionschema.New())
}

func TestSearchKnowledgeReturnsGracefulNotFound(t *testing.T) {
	b := newTestBuilder(t)
	tc, err := b.Build(context.Background(), "org1")
	require.NoError(t, err)

	result, err := tc["search_knowledge"].Execute(context.Background(), map[string]any{"query": "anything"}, CallContext{SessionID: "s1", Namespace: "agent1"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Contains(t, result.Result, "couldn't find")
}

func TestGetBusinessInfoRejectsUnknownEnum(t *testing.T) {
	b := newTestBuilder(t)
	tc, err := b.Build(context.Background(), "org1")
	require.NoError(t, err)

	result, err := tc["get_business_info"].Execute(context.Background(), map[string]any{"info_type": "nonsense"}, CallContext{SessionID: "s1", Namespace: "agent1"})
	require.NoError(t, err)
	require.False(t, result.Success)
}

func TestEndCallSchedulesShutdown(t *testing.T) {
	b := newTestBuilder(t)
	tc, err := b.Build(context.Background(), "org1")
	require.NoError(t, err)

	called := make(chan struct{}, 1)
	result, err := tc["end_call"].Execute(context.Background(), map[string]any{}, CallContext{
		SessionID:    "s1",
		ShutdownFunc: func() { called <- struct{}{} },
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	select {
	case <-called:
	case <-time.After(4 * time.Second):
		t.Fatal("shutdown callback never fired")
	}
}

func TestEndCallWithoutShutdownFuncStillSucceeds(t *testing.T) {
	b := newTestBuilder(t)
	tc, err := b.Build(context.Background(), "org1")
	require.NoError(t, err)

	result, err := tc["end_call"].Execute(context.Background(), map[string]any{}, CallContext{SessionID: "s1"})
	require.NoError(t, err)
	require.True(t, result.Success)
}

func TestDynamicWebhookToolDispatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	schemas := functionschema.New()
	_, err := schemas.Upsert(context.Background(), functionschema.Schema{
		OrganizationID: "org1",
		FunctionName:   "lookup_order",
		Description:    "look up an order",
		Handler:        functionschema.HandlerWebhook,
		HandlerConfig:  functionschema.HandlerConfig{WebhookURL: server.URL},
		Active:         true,
	})
	require.NoError(t, err)

	knowledge, err := voiceknowledge.New(emptyIndex{}, nil, nil, 8, 8)
	require.NoError(t, err)
	b := NewBuilder(knowledge, calltrack.New(), schemas)

	tc, err := b.Build(context.Background(), "org1")
	require.NoError(t, err)
	require.Contains(t, tc, "lookup_order")

	result, err := tc["lookup_order"].Execute(context.Background(), map[string]any{"orderId": "123"}, CallContext{SessionID: "s1", OrganizationID: "org1"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Contains(t, result.Result, "ok")
}
