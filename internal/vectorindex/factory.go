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

// Factory selects a Backend by ProviderType, mirroring
// pkg/vector/factory.go's switch-on-Type construction.

package vectorindex

import "fmt"

// ProviderType identifies a vector backend implementation.
type ProviderType string

const (
	ProviderChromem  ProviderType = "chromem"
	ProviderQdrant   ProviderType = "qdrant"
	ProviderPinecone ProviderType = "pinecone"
)

// BackendConfig is the union of every backend's configuration,
// discriminated by Type.
type BackendConfig struct {
	Type      ProviderType
	Chromem   ChromemConfig
	Qdrant    QdrantConfig
	Pinecone  PineconeConfig
	Dimension int
}

// NewBackend constructs the Backend named by cfg.Type.
func NewBackend(cfg BackendConfig) (Backend, error) {
	switch cfg.Type {
	case "", ProviderChromem:
		return NewChromemBackend(cfg.Chromem)
	case ProviderQdrant:
		return NewQdrantBackend(cfg.Qdrant, cfg.Dimension)
	case ProviderPinecone:
		return NewPineconeBackend(cfg.Pinecone)
	default:
		return nil, fmt.Errorf("unknown vector backend type %q", cfg.Type)
	}
}
