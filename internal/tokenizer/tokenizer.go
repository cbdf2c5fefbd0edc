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

// Package tokenizer implements C1: byte-pair token counting with a
// bounded LRU cache and token-boundary splitting.
//
// Follows pkg/utils/tokens.go's use of pkoukk/tiktoken-go, generalized
// from a per-model token counter into the BPE primitive the rest of
// the ingestion pipeline (C2–C4) needs: Encode, Decode, Count, and
// SplitAtTokenBoundary.
package tokenizer

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkoukk/tiktoken-go"
)

// ErrUnavailable is returned when the BPE encoding table cannot be
// loaded (offline environment with no cached tiktoken ranks file, or an
// unknown encoding name).
type ErrUnavailable struct {
	Encoding string
	Err      error
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("tokenizer: encoding %q unavailable: %v", e.Encoding, e.Err)
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// Tokenizer counts, encodes, and decodes text against a single BPE
// encoding, with an LRU cache over the most recently seen distinct
// inputs so repeated calls (the same chunk re-measured by several
// splitter passes) don't re-run the BPE merge loop.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
	name     string

	mu    sync.Mutex
	cache *lru.Cache[string, []int]
}

// New builds a Tokenizer for the given cl100k-class encoding (e.g.
// "cl100k_base", "o200k_base"), caching the last cacheSize distinct
// inputs under strict LRU eviction.
func New(encodingName string, cacheSize int) (*Tokenizer, error) {
	if cacheSize <= 0 {
		cacheSize = 10_000
	}

	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, &ErrUnavailable{Encoding: encodingName, Err: err}
	}

	cache, err := lru.New[string, []int](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: create cache: %w", err)
	}

	return &Tokenizer{encoding: enc, name: encodingName, cache: cache}, nil
}

// Encode returns the token IDs for text, consulting and populating the
// LRU cache so repeated counts on the same text are free.
func (t *Tokenizer) Encode(text string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ids, ok := t.cache.Get(text); ok {
		return ids
	}

	ids := t.encoding.Encode(text, nil, nil)
	t.cache.Add(text, ids)
	return ids
}

// Decode reconstructs text from token IDs. decode(encode(T)) == T for
// any T the encoding round-trips losslessly, which cl100k-class BPE
// vocabularies guarantee for valid UTF-8 input.
func (t *Tokenizer) Decode(ids []int) string {
	return t.encoding.Decode(ids)
}

// CountTokens returns the number of BPE tokens in text. For non-empty
// text this is always > 0.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.Encode(text))
}

// SplitAtTokenBoundary splits text into (head, rest) such that
// CountTokens(head) <= n and head+rest == text exactly. The split point
// is chosen on a token boundary, then mapped back to the original byte
// offset via Decode, so head is always valid UTF-8.
func (t *Tokenizer) SplitAtTokenBoundary(text string, n int) (head, rest string) {
	ids := t.Encode(text)
	if n >= len(ids) {
		return text, ""
	}
	if n <= 0 {
		return "", text
	}

	head = t.Decode(ids[:n])
	if len(head) > len(text) {
		// Defensive: should not happen for a lossless encoding, but never
		// panic on a slice out of range if it somehow does.
		head = text
		return head, ""
	}
	rest = text[len(head):]
	return head, rest
}

// Name returns the encoding name this Tokenizer was built for.
func (t *Tokenizer) Name() string { return t.name }

// CacheLen reports the number of distinct inputs currently cached, for
// tests and metrics.
func (t *Tokenizer) CacheLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.Len()
}
