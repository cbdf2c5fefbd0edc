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

// Package dedup implements C3: normalized content hashing and
// chunk-key derivation for idempotent ingestion.
//
// The hashing itself (SHA-256 over NFKC-normalized text) has no
// natural third-party library home beyond golang.org/x/text for
// normalization — crypto/sha256 is the correct, minimal tool here and
// substituting a library would add a dependency with no behavioral
// benefit.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeForHash applies NFKC Unicode normalization, collapses
// internal whitespace runs to a single space, and trims — preserving
// case, Devanagari, Tamil, and mixed scripts.
func NormalizeForHash(text string) string {
	normalized := norm.NFKC.String(text)
	collapsed := whitespaceRun.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(collapsed)
}

// ContentHash returns the SHA-256 hex digest of the normalized text.
// Deterministic regardless of the surrounding whitespace or Unicode
// form of the input.
func ContentHash(text string) string {
	normalized := NormalizeForHash(text)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// ChunkKey derives the vector-store entry key for a chunk, per the
// Chunk invariants: "{agentId}_{documentId}_{contentHash}".
func ChunkKey(agentID, documentID, contentHash string) string {
	return agentID + "_" + documentID + "_" + contentHash
}

// FindStaleKeys returns the keys present in existing but absent from
// current — the set that must be deleted from the vector store to keep
// an ingestion idempotent, per C6 step 6.
func FindStaleKeys(existing, current []string) []string {
	currentSet := make(map[string]struct{}, len(current))
	for _, k := range current {
		currentSet[k] = struct{}{}
	}

	var stale []string
	for _, k := range existing {
		if _, ok := currentSet[k]; !ok {
			stale = append(stale, k)
		}
	}
	return stale
}
