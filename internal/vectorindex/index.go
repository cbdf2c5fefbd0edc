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

// Package vectorindex implements C7: a namespace-scoped vector index
// over a pluggable Backend (chromem-go embedded by default, Qdrant or
// Pinecone for production), fronted by a key registry so add/delete
// are idempotent by caller-supplied key rather than backend-assigned id.
//
// The Embedder interface is carried over from pkg/embedder.go
// unchanged — this repo's embedding needs (dimension, batch, model
// name) match pkg/embedder's exactly. The multi-backend Backend
// interface follows pkg/vector/factory.go's Provider abstraction,
// narrowed to the operations the knowledge index actually needs
// (namespace-scoped upsert/query/delete/clear) instead of generic
// collection CRUD.
package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Embedder produces vector embeddings from text. Identical contract to
// pkg/embedder.Embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
	Close() error
}

// Status is a vector-store entry's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusReady    Status = "ready"
	StatusReplaced Status = "replaced"
)

// Backend is the minimal operation set a vector database must support
// to back an Index. Implementations: ChromemBackend (default),
// QdrantBackend, PineconeBackend.
type Backend interface {
	Upsert(ctx context.Context, namespace, entryID string, vector []float32, text, title string) error
	Query(ctx context.Context, namespace string, vector []float32, limit int) ([]ScoredEntry, error)
	Delete(ctx context.Context, namespace, entryID string) error
	Name() string
}

// ScoredEntry is one backend query hit.
type ScoredEntry struct {
	EntryID string
	Score   float64
	Text    string
	Title   string
}

// AddRequest is C7's add() operation input.
type AddRequest struct {
	Namespace string
	Key       string // caller-supplied idempotence key; auto-generated if empty
	Text      string
	Title     string
}

// AddResult is add()'s output.
type AddResult struct {
	EntryID string
	Status  Status
}

// SearchRequest is C7's search() operation input.
type SearchRequest struct {
	Namespace           string
	Query               string
	Limit               int
	VectorScoreThreshold float64
}

// SearchResult is C7's search() operation output.
type SearchResult struct {
	Results []ScoredHit
	Text    string
	Entries []EntrySummary
}

// ScoredHit is one ranked search hit.
type ScoredHit struct {
	EntryID string
	Score   float64
}

// EntrySummary is a denormalized entry returned alongside search hits.
type EntrySummary struct {
	EntryID string
	Title   string
	Text    string
}

// entryRecord is the key-registry bookkeeping kept per namespace entry.
type entryRecord struct {
	entryID string
	key     string
	status  Status
}

// Index is the namespace-scoped façade over a Backend.
type Index interface {
	Add(ctx context.Context, req AddRequest) (AddResult, error)
	Search(ctx context.Context, req SearchRequest) (SearchResult, error)
	Delete(ctx context.Context, entryID string) error
	DeleteByKey(ctx context.Context, namespace, key string) error
	List(ctx context.Context, namespace string, status Status) ([]EntrySummary, error)
	ListKeysWithPrefix(ctx context.Context, namespace, prefix string) ([]string, error)
	ClearNamespace(ctx context.Context, namespace string) error
	Warmup(ctx context.Context, namespace string) (time.Duration, error)
}

// indexImpl is the default Index implementation: a Backend plus an
// in-memory key->entryID registry so callers can address entries by
// their own idempotence key instead of a backend-assigned id.
type indexImpl struct {
	backend  Backend
	embedder Embedder

	mu       sync.RWMutex
	byKey    map[string]map[string]*entryRecord // namespace -> key -> record
	byEntry  map[string]*entryRecord            // entryID -> record (cross-namespace)
	nsOf     map[string]string                  // entryID -> namespace
}

// New creates an Index over backend using embedder to vectorize text.
func New(backend Backend, embedder Embedder) Index {
	return &indexImpl{
		backend: backend,
		embedder: embedder,
		byKey:   make(map[string]map[string]*entryRecord),
		byEntry: make(map[string]*entryRecord),
		nsOf:    make(map[string]string),
	}
}

// Add embeds req.Text and upserts it under req.Key. Re-adding an
// existing key is a no-op returning the existing entryId.
func (ix *indexImpl) Add(ctx context.Context, req AddRequest) (AddResult, error) {
	key := req.Key
	if key == "" {
		key = uuid.NewString()
	}

	ix.mu.Lock()
	if nsKeys, ok := ix.byKey[req.Namespace]; ok {
		if existing, ok := nsKeys[key]; ok {
			ix.mu.Unlock()
			return AddResult{EntryID: existing.entryID, Status: existing.status}, nil
		}
	}
	ix.mu.Unlock()

	vector, err := ix.embedder.Embed(ctx, req.Text)
	if err != nil {
		return AddResult{}, fmt.Errorf("embed text for %s: %w", key, err)
	}

	entryID := uuid.NewString()
	if err := ix.backend.Upsert(ctx, req.Namespace, entryID, vector, req.Text, req.Title); err != nil {
		return AddResult{}, fmt.Errorf("upsert entry %s: %w", entryID, err)
	}

	rec := &entryRecord{entryID: entryID, key: key, status: StatusReady}
	ix.mu.Lock()
	if ix.byKey[req.Namespace] == nil {
		ix.byKey[req.Namespace] = make(map[string]*entryRecord)
	}
	ix.byKey[req.Namespace][key] = rec
	ix.byEntry[entryID] = rec
	ix.nsOf[entryID] = req.Namespace
	ix.mu.Unlock()

	return AddResult{EntryID: entryID, Status: StatusReady}, nil
}

// Search embeds req.Query, queries the backend, and discards hits
// below the threshold. An empty/whitespace query short-circuits
// without ever calling the embedder.
func (ix *indexImpl) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return SearchResult{}, nil
	}

	vector, err := ix.embedder.Embed(ctx, req.Query)
	if err != nil {
		return SearchResult{}, fmt.Errorf("embed query: %w", err)
	}

	hits, err := ix.backend.Query(ctx, req.Namespace, vector, req.Limit)
	if err != nil {
		return SearchResult{}, fmt.Errorf("query backend: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	var result SearchResult
	var texts []string
	for _, h := range hits {
		if h.Score < req.VectorScoreThreshold {
			continue
		}
		result.Results = append(result.Results, ScoredHit{EntryID: h.EntryID, Score: h.Score})
		result.Entries = append(result.Entries, EntrySummary{EntryID: h.EntryID, Title: h.Title, Text: h.Text})
		texts = append(texts, h.Text)
	}
	result.Text = strings.Join(texts, "\n\n")
	return result, nil
}

// Delete removes an entry by its backend-assigned entryID.
func (ix *indexImpl) Delete(ctx context.Context, entryID string) error {
	ix.mu.Lock()
	ns, ok := ix.nsOf[entryID]
	rec := ix.byEntry[entryID]
	ix.mu.Unlock()
	if !ok {
		return nil
	}

	if err := ix.backend.Delete(ctx, ns, entryID); err != nil {
		return fmt.Errorf("delete entry %s: %w", entryID, err)
	}

	ix.mu.Lock()
	delete(ix.byEntry, entryID)
	delete(ix.nsOf, entryID)
	if rec != nil {
		delete(ix.byKey[ns], rec.key)
	}
	ix.mu.Unlock()
	return nil
}

// DeleteByKey removes the entry registered under (namespace, key), per
// C6 step 6.
func (ix *indexImpl) DeleteByKey(ctx context.Context, namespace, key string) error {
	ix.mu.RLock()
	rec, ok := ix.byKey[namespace][key]
	ix.mu.RUnlock()
	if !ok {
		return nil
	}
	return ix.Delete(ctx, rec.entryID)
}

// List returns entries in namespace, optionally filtered by status.
func (ix *indexImpl) List(ctx context.Context, namespace string, status Status) ([]EntrySummary, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []EntrySummary
	for key, rec := range ix.byKey[namespace] {
		if status != "" && rec.status != status {
			continue
		}
		out = append(out, EntrySummary{EntryID: rec.entryID, Title: key})
	}
	return out, nil
}

// ListKeysWithPrefix returns keys in namespace starting with prefix,
// used by C6 to find a document's existing vector-store entries.
func (ix *indexImpl) ListKeysWithPrefix(ctx context.Context, namespace, prefix string) ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var keys []string
	for key := range ix.byKey[namespace] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// ClearNamespace deletes every entry registered under namespace.
func (ix *indexImpl) ClearNamespace(ctx context.Context, namespace string) error {
	ix.mu.RLock()
	entryIDs := make([]string, 0, len(ix.byKey[namespace]))
	for _, rec := range ix.byKey[namespace] {
		entryIDs = append(entryIDs, rec.entryID)
	}
	ix.mu.RUnlock()

	for _, id := range entryIDs {
		if err := ix.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Warmup issues 3 parallel, semantically diverse low-threshold queries
// to prime the embedding API and vector index. Idempotent.
func (ix *indexImpl) Warmup(ctx context.Context, namespace string) (time.Duration, error) {
	start := time.Now()
	probes := []string{"hours location contact", "pricing and plans", "support and help"}

	var wg sync.WaitGroup
	errs := make([]error, len(probes))
	for i, probe := range probes {
		wg.Add(1)
		go func(i int, probe string) {
			defer wg.Done()
			_, err := ix.Search(ctx, SearchRequest{Namespace: namespace, Query: probe, Limit: 1, VectorScoreThreshold: 0})
			errs[i] = err
		}(i, probe)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return time.Since(start), err
		}
	}
	return time.Since(start), nil
}
