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

// Package ingest implements C6: the idempotent parse-chunk-dedup-upsert
// pipeline that turns an uploaded file into vector-store entries.
//
// The orchestration shape — call each stage in turn, diff the result
// against what's already indexed, mutate only the delta — follows
// pkg/rag/collection_source.go's ingestion loop, generalized to use
// this repo's own parsing/chunking/hashing/indexing primitives instead
// of a single-pass loader/chunker pair.
package ingest

import (
	"context"
	"fmt"

	"github.com/kadirpekel/voiceagent/internal/chunking"
	"github.com/kadirpekel/voiceagent/internal/dedup"
	"github.com/kadirpekel/voiceagent/internal/docparse"
	"github.com/kadirpekel/voiceagent/internal/vectorindex"
)

// Options parameterize one ingestion run.
type Options struct {
	AgentID    string
	DocumentID string
	Strategy   chunking.Strategy // empty means auto-detect
}

// Result reports what an ingestion run changed.
type Result struct {
	ChunksCreated int
	ChunksUpdated int
	ChunksDeleted int
}

// Orchestrator wires C5 (parse) -> C4 (chunk) -> C3 (dedup key) -> C7
// (vector index) into one idempotent operation.
type Orchestrator struct {
	parser   *docparse.Parser
	chunker  *chunking.Service
	index    vectorindex.Index
}

// New creates an Orchestrator.
func New(parser *docparse.Parser, chunker *chunking.Service, index vectorindex.Index) *Orchestrator {
	return &Orchestrator{parser: parser, chunker: chunker, index: index}
}

// IngestFileIdempotent runs the full parse -> chunk -> diff -> upsert
// pipeline. Re-running with the same file and opts produces a
// zero-change Result once chunk keys stabilize.
func (o *Orchestrator) IngestFileIdempotent(ctx context.Context, path string, opts Options) (Result, error) {
	doc, err := o.parser.ParseFile(ctx, path)
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", path, err)
	}

	meta := chunking.Metadata{AgentID: opts.AgentID, DocumentID: opts.DocumentID, Filename: doc.Filename}

	var chunks []chunking.Chunk
	if opts.Strategy == "" {
		chunks = o.chunker.AutoChunkText(doc.Content, meta)
	} else {
		chunks = o.chunker.ChunkText(doc.Content, meta, opts.Strategy)
	}

	currentKeys := make([]string, 0, len(chunks))
	byKey := make(map[string]chunking.Chunk, len(chunks))
	for _, c := range chunks {
		key := dedup.ChunkKey(opts.AgentID, opts.DocumentID, c.ContentHash)
		currentKeys = append(currentKeys, key)
		byKey[key] = c
	}

	prefix := opts.AgentID + "_" + opts.DocumentID + "_"
	existingKeys, err := o.index.ListKeysWithPrefix(ctx, opts.AgentID, prefix)
	if err != nil {
		return Result{}, fmt.Errorf("list existing entries: %w", err)
	}
	existingSet := make(map[string]struct{}, len(existingKeys))
	for _, k := range existingKeys {
		existingSet[k] = struct{}{}
	}

	var result Result
	for _, key := range currentKeys {
		if _, ok := existingSet[key]; ok {
			continue // matching key: no-op, satisfies idempotence
		}
		c := byKey[key]
		if _, err := o.index.Add(ctx, vectorindex.AddRequest{
			Namespace: opts.AgentID,
			Key:       key,
			Text:      c.Text,
		}); err != nil {
			return result, fmt.Errorf("add chunk %s: %w", key, err)
		}
		result.ChunksCreated++
	}

	stale := dedup.FindStaleKeys(existingKeys, currentKeys)
	for _, key := range stale {
		if err := o.index.DeleteByKey(ctx, opts.AgentID, key); err != nil {
			return result, fmt.Errorf("delete stale chunk %s: %w", key, err)
		}
		result.ChunksDeleted++
	}

	return result, nil
}
