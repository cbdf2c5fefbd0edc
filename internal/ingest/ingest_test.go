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

package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/voiceagent/internal/chunking"
	"github.com/kadirpekel/voiceagent/internal/docparse"
	"github.com/kadirpekel/voiceagent/internal/splitter"
	"github.com/kadirpekel/voiceagent/internal/tokenizer"
	"github.com/kadirpekel/voiceagent/internal/vectorindex"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	tok, err := tokenizer.New("cl100k_base", 1000)
	require.NoError(t, err)

	parser := docparse.New()
	chunker := chunking.New(tok, splitter.Presets[splitter.DensityStandard])
	index := vectorindex.New(newFakeBackend(t), &fakeEmbedder{})

	return New(parser, chunker, index)
}

// fakeBackend/fakeEmbedder duplicate the test doubles in
// vectorindex's index_test.go since ingest cannot import unexported
// test-only types across packages.
type fakeBackendEntry struct {
	text, title string
}

func newFakeBackend(t *testing.T) vectorindex.Backend {
	t.Helper()
	return &testBackend{entries: make(map[string]map[string]fakeBackendEntry)}
}

type testBackend struct {
	entries map[string]map[string]fakeBackendEntry
}

func (b *testBackend) Name() string { return "test" }

func (b *testBackend) Upsert(ctx context.Context, namespace, entryID string, vector []float32, text, title string) error {
	if b.entries[namespace] == nil {
		b.entries[namespace] = make(map[string]fakeBackendEntry)
	}
	b.entries[namespace][entryID] = fakeBackendEntry{text: text, title: title}
	return nil
}

func (b *testBackend) Query(ctx context.Context, namespace string, vector []float32, limit int) ([]vectorindex.ScoredEntry, error) {
	var out []vectorindex.ScoredEntry
	for id, e := range b.entries[namespace] {
		out = append(out, vectorindex.ScoredEntry{EntryID: id, Score: 1, Text: e.text, Title: e.title})
	}
	return out, nil
}

func (b *testBackend) Delete(ctx context.Context, namespace, entryID string) error {
	delete(b.entries[namespace], entryID)
	return nil
}

type fakeEmbedder struct{}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}
func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}
func (e *fakeEmbedder) Dimension() int { return 3 }
func (e *fakeEmbedder) Model() string  { return "fake" }
func (e *fakeEmbedder) Close() error   { return nil }

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestFileIdempotentCreatesOnFirstRun(t *testing.T) {
	o := newTestOrchestrator(t)
	path := writeTempFile(t, "A fairly short paragraph describing a product feature in plain prose.")

	result, err := o.IngestFileIdempotent(context.Background(), path, Options{AgentID: "agent1", DocumentID: "doc1"})
	require.NoError(t, err)
	require.Greater(t, result.ChunksCreated, 0)
	require.Equal(t, 0, result.ChunksDeleted)
}

func TestIngestFileIdempotentSecondRunIsNoOp(t *testing.T) {
	o := newTestOrchestrator(t)
	path := writeTempFile(t, "A fairly short paragraph describing a product feature in plain prose.")
	ctx := context.Background()
	opts := Options{AgentID: "agent1", DocumentID: "doc1"}

	_, err := o.IngestFileIdempotent(ctx, path, opts)
	require.NoError(t, err)

	second, err := o.IngestFileIdempotent(ctx, path, opts)
	require.NoError(t, err)
	require.Equal(t, 0, second.ChunksCreated)
	require.Equal(t, 0, second.ChunksDeleted)
}

func TestIngestFileIdempotentChangedContentDeletesStale(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()
	opts := Options{AgentID: "agent1", DocumentID: "doc1"}

	path := writeTempFile(t, "Original content about widgets and gadgets in this catalog.")
	_, err := o.IngestFileIdempotent(ctx, path, opts)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("Completely different content about something else entirely now."), 0o644))
	second, err := o.IngestFileIdempotent(ctx, path, opts)
	require.NoError(t, err)
	require.Greater(t, second.ChunksCreated, 0)
	require.Greater(t, second.ChunksDeleted, 0)
}
