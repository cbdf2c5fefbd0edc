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

// ChromemBackend is carried over from pkg/vector/chromem.go: an
// embedded, pure-Go chromem-go database, one collection per namespace,
// with optional gzip-compressed file persistence. The identity
// embedding function is kept for the same reason pkg/vector/chromem.go
// keeps it — vectors arrive pre-computed from Embedder, chromem is
// only asked to store and cosine-rank them.

package vectorindex

import (
	"context"
	"fmt"
	"os"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemConfig configures the embedded default backend.
type ChromemConfig struct {
	PersistPath string `yaml:"persist_path,omitempty"`
	Compress    bool   `yaml:"compress,omitempty"`
}

// ChromemBackend implements Backend using chromem-go.
type ChromemBackend struct {
	db          *chromem.DB
	persistPath string
	compress    bool

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

func identityEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("chromem embedding function invoked directly; vectors must be pre-computed")
}

// NewChromemBackend creates a ChromemBackend, loading a persisted
// database from cfg.PersistPath if one exists there.
func NewChromemBackend(cfg ChromemConfig) (*ChromemBackend, error) {
	var db *chromem.DB

	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0o755); err != nil {
			return nil, fmt.Errorf("create persist directory: %w", err)
		}
		dbPath := cfg.PersistPath + "/vectors.gob"
		if cfg.Compress {
			dbPath += ".gz"
		}
		if _, err := os.Stat(dbPath); err == nil {
			loaded, err := chromem.NewPersistentDB(dbPath, cfg.Compress)
			if err != nil {
				db = chromem.NewDB()
			} else {
				db = loaded
			}
		} else {
			db = chromem.NewDB()
		}
	} else {
		db = chromem.NewDB()
	}

	return &ChromemBackend{db: db, persistPath: cfg.PersistPath, compress: cfg.Compress, collections: make(map[string]*chromem.Collection)}, nil
}

func (b *ChromemBackend) Name() string { return "chromem" }

func (b *ChromemBackend) collection(namespace string) (*chromem.Collection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.collections[namespace]; ok {
		return c, nil
	}
	c, err := b.db.GetOrCreateCollection(namespace, nil, identityEmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %s: %w", namespace, err)
	}
	b.collections[namespace] = c
	return c, nil
}

func (b *ChromemBackend) Upsert(ctx context.Context, namespace, entryID string, vector []float32, text, title string) error {
	col, err := b.collection(namespace)
	if err != nil {
		return err
	}
	meta := map[string]string{}
	if title != "" {
		meta["title"] = title
	}
	return col.AddDocument(ctx, chromem.Document{
		ID:       entryID,
		Content:  text,
		Metadata: meta,
		Embedding: vector,
	})
}

func (b *ChromemBackend) Query(ctx context.Context, namespace string, vector []float32, limit int) ([]ScoredEntry, error) {
	col, err := b.collection(namespace)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	n := limit
	if count := col.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", namespace, err)
	}

	out := make([]ScoredEntry, 0, len(results))
	for _, r := range results {
		out = append(out, ScoredEntry{
			EntryID: r.ID,
			Score:   float64(r.Similarity),
			Text:    r.Content,
			Title:   r.Metadata["title"],
		})
	}
	return out, nil
}

func (b *ChromemBackend) Delete(ctx context.Context, namespace, entryID string) error {
	col, err := b.collection(namespace)
	if err != nil {
		return err
	}
	return col.Delete(ctx, nil, nil, entryID)
}
