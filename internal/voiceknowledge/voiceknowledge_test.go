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

package voiceknowledge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/voiceagent/internal/vectorindex"
)

type fakeIndex struct {
	calls   int
	results []vectorindex.EntrySummary
	text    string
}

func (f *fakeIndex) Add(ctx context.Context, req vectorindex.AddRequest) (vectorindex.AddResult, error) {
	return vectorindex.AddResult{}, nil
}

func (f *fakeIndex) Search(ctx context.Context, req vectorindex.SearchRequest) (vectorindex.SearchResult, error) {
	f.calls++
	if req.Query == "" {
		return vectorindex.SearchResult{}, nil
	}
	return vectorindex.SearchResult{Text: f.text, Entries: f.results}, nil
}

func (f *fakeIndex) Delete(ctx context.Context, entryID string) error              { return nil }
func (f *fakeIndex) DeleteByKey(ctx context.Context, namespace, key string) error { return nil }
func (f *fakeIndex) List(ctx context.Context, namespace string, status vectorindex.Status) ([]vectorindex.EntrySummary, error) {
	return nil, nil
}
func (f *fakeIndex) ListKeysWithPrefix(ctx context.Context, namespace, prefix string) ([]string, error) {
	return nil, nil
}
func (f *fakeIndex) ClearNamespace(ctx context.Context, namespace string) error { return nil }
func (f *fakeIndex) Warmup(ctx context.Context, namespace string) (time.Duration, error) {
	return 0, nil
}

func newTestService(t *testing.T, idx *fakeIndex) *Service {
	t.Helper()
	svc, err := New(idx, nil, nil, 8, 8)
	require.NoError(t, err)
	return svc
}

func TestExpandQueryShortQuery(t *testing.T) {
	expanded, infoType := expandQuery("pricing")
	require.Contains(t, expanded, "pricing")
	require.Equal(t, InfoGeneral, infoType)
}

func TestExpandQueryIntentStem(t *testing.T) {
	_, infoType := expandQuery("what time do you open")
	require.Equal(t, InfoHours, infoType)
}

func TestSearchReturnsGracefulNotFoundOnEmpty(t *testing.T) {
	idx := &fakeIndex{}
	svc := newTestService(t, idx)

	resp, err := svc.Search(context.Background(), "agent1", "something obscure", 5, SearchConfig{})
	require.NoError(t, err)
	require.Contains(t, resp.Text, "couldn't find")
}

func TestSearchCachesSuccessfulResult(t *testing.T) {
	idx := &fakeIndex{text: "answer", results: []vectorindex.EntrySummary{{EntryID: "e1", Text: "answer"}}}
	svc := newTestService(t, idx)
	ctx := context.Background()

	_, err := svc.Search(ctx, "agent1", "what are your hours", 5, SearchConfig{})
	require.NoError(t, err)
	_, err = svc.Search(ctx, "agent1", "what are your hours", 5, SearchConfig{})
	require.NoError(t, err)

	require.Equal(t, 1, idx.calls)
}

func TestHybridSearchRunsBothSubQueries(t *testing.T) {
	idx := &fakeIndex{text: "answer", results: []vectorindex.EntrySummary{{EntryID: "e1", Text: "answer"}}}
	svc := newTestService(t, idx)

	result, err := svc.HybridSearch(context.Background(), "agent1", HybridRequest{
		IncludeItems:     true,
		IncludeKnowledge: true,
		ItemsQuery:       "catalog items",
		KnowledgeQuery:   "general knowledge",
		ItemsLimit:       3,
		KnowledgeLimit:   3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Items.Text)
	require.NotEmpty(t, result.Knowledge.Text)
}

func TestGetBusinessInfoUsesLookupBeforeSearch(t *testing.T) {
	idx := &fakeIndex{}
	lookup := func(ctx context.Context, organizationID string, infoType BusinessInfoType) (string, bool, error) {
		return "9am-5pm", true, nil
	}
	svc, err := New(idx, lookup, nil, 8, 8)
	require.NoError(t, err)

	resp, err := svc.GetBusinessInfo(context.Background(), "org1", "agent1", InfoHours)
	require.NoError(t, err)
	require.Equal(t, "9am-5pm", resp.Text)
	require.Equal(t, 0, idx.calls)
}

func TestGetBusinessInfoFallsBackToSearch(t *testing.T) {
	idx := &fakeIndex{text: "we are open 9-5", results: []vectorindex.EntrySummary{{EntryID: "e1"}}}
	svc := newTestService(t, idx)

	resp, err := svc.GetBusinessInfo(context.Background(), "org1", "agent1", InfoHours)
	require.NoError(t, err)
	require.Equal(t, "we are open 9-5", resp.Text)
	require.Equal(t, 1, idx.calls)
}

func TestGetBusinessInfoRejectsUnknownType(t *testing.T) {
	idx := &fakeIndex{}
	svc := newTestService(t, idx)
	_, err := svc.GetBusinessInfo(context.Background(), "org1", "agent1", BusinessInfoType("nonsense"))
	require.Error(t, err)
}
