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

// QdrantBackend follows pkg/vector/qdrant.go's Upsert/Search/Delete
// shape: one Qdrant collection per namespace, created lazily on first
// upsert with the embedder's declared dimension and cosine distance,
// text/title carried as payload values.

package vectorindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig configures the Qdrant backend.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key,omitempty"`
	UseTLS bool   `yaml:"use_tls,omitempty"`
}

// QdrantBackend implements Backend over a Qdrant gRPC client.
type QdrantBackend struct {
	client *qdrant.Client
	dim    uint64
	ready  map[string]bool
}

// NewQdrantBackend creates a QdrantBackend. dimension must match the
// Embedder's Dimension() so collections are created with the correct
// vector size.
func NewQdrantBackend(cfg QdrantConfig, dimension int) (*QdrantBackend, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client for %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &QdrantBackend{client: client, dim: uint64(dimension), ready: make(map[string]bool)}, nil
}

func (b *QdrantBackend) Name() string { return "qdrant" }

func (b *QdrantBackend) ensureCollection(ctx context.Context, namespace string) error {
	if b.ready[namespace] {
		return nil
	}
	exists, err := b.client.CollectionExists(ctx, namespace)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", namespace, err)
	}
	if !exists {
		err = b.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: namespace,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     b.dim,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("create collection %s: %w", namespace, err)
		}
	}
	b.ready[namespace] = true
	return nil
}

func (b *QdrantBackend) Upsert(ctx context.Context, namespace, entryID string, vector []float32, text, title string) error {
	if err := b.ensureCollection(ctx, namespace); err != nil {
		return err
	}

	payload := make(map[string]*qdrant.Value)
	if v, err := qdrant.NewValue(text); err == nil {
		payload["text"] = v
	}
	if title != "" {
		if v, err := qdrant.NewValue(title); err == nil {
			payload["title"] = v
		}
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(entryID),
		Vectors: qdrant.NewVectors(vector...),
		Payload: payload,
	}

	_, err := b.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: namespace,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("upsert point %s into %s: %w", entryID, namespace, err)
	}
	return nil
}

func (b *QdrantBackend) Query(ctx context.Context, namespace string, vector []float32, limit int) ([]ScoredEntry, error) {
	if err := b.ensureCollection(ctx, namespace); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	searchResult, err := b.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
		CollectionName: namespace,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", namespace, err)
	}

	out := make([]ScoredEntry, 0, len(searchResult.Result))
	for _, p := range searchResult.Result {
		var id string
		if p.Id != nil {
			switch idType := p.Id.PointIdOptions.(type) {
			case *qdrant.PointId_Uuid:
				id = idType.Uuid
			case *qdrant.PointId_Num:
				id = fmt.Sprintf("%d", idType.Num)
			}
		}
		text, title := "", ""
		if v, ok := p.Payload["text"]; ok {
			text = v.GetStringValue()
		}
		if v, ok := p.Payload["title"]; ok {
			title = v.GetStringValue()
		}
		out = append(out, ScoredEntry{EntryID: id, Score: float64(p.Score), Text: text, Title: title})
	}
	return out, nil
}

func (b *QdrantBackend) Delete(ctx context.Context, namespace, entryID string) error {
	_, err := b.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: namespace,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{{PointIdOptions: &qdrant.PointId_Uuid{Uuid: entryID}}},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete point %s from %s: %w", entryID, namespace, err)
	}
	return nil
}
