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

// PineconeBackend follows pkg/vector/pinecone.go's upsert/query/delete
// shape, but maps this repo's per-agent namespace directly onto
// Pinecone's own index-namespace concept (one shared index, per-agent
// namespace) rather than one index per namespace — Pinecone indexes
// are a provisioned resource, too heavyweight to create per agent.

package vectorindex

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeConfig configures the Pinecone backend.
type PineconeConfig struct {
	APIKey    string `yaml:"api_key"`
	Host      string `yaml:"host,omitempty"`
	IndexName string `yaml:"index_name"`
}

// PineconeBackend implements Backend over a single Pinecone index,
// using Pinecone namespaces to separate this repo's namespaces.
type PineconeBackend struct {
	client    *pinecone.Client
	indexName string
}

// NewPineconeBackend creates a PineconeBackend.
func NewPineconeBackend(cfg PineconeConfig) (*PineconeBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone backend requires an api_key")
	}
	params := pinecone.NewClientParams{ApiKey: cfg.APIKey}
	if cfg.Host != "" {
		params.Host = cfg.Host
	}
	client, err := pinecone.NewClient(params)
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}
	indexName := cfg.IndexName
	if indexName == "" {
		indexName = "voiceagent-index"
	}
	return &PineconeBackend{client: client, indexName: indexName}, nil
}

func (b *PineconeBackend) Name() string { return "pinecone" }

func (b *PineconeBackend) indexConn(ctx context.Context, namespace string) (*pinecone.IndexConnection, error) {
	index, err := b.client.DescribeIndex(ctx, b.indexName)
	if err != nil {
		return nil, fmt.Errorf("describe index %s: %w", b.indexName, err)
	}
	conn, err := b.client.Index(pinecone.NewIndexConnParams{Host: index.Host, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("connect to index %s namespace %s: %w", b.indexName, namespace, err)
	}
	return conn, nil
}

func (b *PineconeBackend) Upsert(ctx context.Context, namespace, entryID string, vector []float32, text, title string) error {
	conn, err := b.indexConn(ctx, namespace)
	if err != nil {
		return err
	}
	defer conn.Close()

	meta, err := structpb.NewStruct(map[string]any{"text": text, "title": title})
	if err != nil {
		return fmt.Errorf("build pinecone metadata: %w", err)
	}

	_, err = conn.UpsertVectors(ctx, []*pinecone.Vector{{Id: entryID, Values: vector, Metadata: meta}})
	if err != nil {
		return fmt.Errorf("upsert vector %s into %s/%s: %w", entryID, b.indexName, namespace, err)
	}
	return nil
}

func (b *PineconeBackend) Query(ctx context.Context, namespace string, vector []float32, limit int) ([]ScoredEntry, error) {
	conn, err := b.indexConn(ctx, namespace)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if limit <= 0 {
		limit = 10
	}
	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(limit),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", b.indexName, namespace, err)
	}

	out := make([]ScoredEntry, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		entry := ScoredEntry{EntryID: m.Vector.Id, Score: float64(m.Score)}
		if m.Vector.Metadata != nil {
			fields := m.Vector.Metadata.GetFields()
			if v, ok := fields["text"]; ok {
				entry.Text = v.GetStringValue()
			}
			if v, ok := fields["title"]; ok {
				entry.Title = v.GetStringValue()
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func (b *PineconeBackend) Delete(ctx context.Context, namespace, entryID string) error {
	conn, err := b.indexConn(ctx, namespace)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.DeleteVectorsById(ctx, []string{entryID}); err != nil {
		return fmt.Errorf("delete vector %s from %s/%s: %w", entryID, b.indexName, namespace, err)
	}
	return nil
}
