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

package dedup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentHashStableAcrossWhitespaceAndUnicodeForm(t *testing.T) {
	a := "Hello   World"
	b := "Hello World"
	c := "  Hello\tWorld\n"
	require.Equal(t, ContentHash(a), ContentHash(b))
	require.Equal(t, ContentHash(b), ContentHash(c))
}

func TestContentHashPreservesCase(t *testing.T) {
	require.NotEqual(t, ContentHash("Hello"), ContentHash("hello"))
}

func TestContentHashMultiScript(t *testing.T) {
	cases := []struct {
		name string
		a, b string
	}{
		{"latin", "café", "café"},                 // composed vs NFKC-equivalent
		{"devanagari", "नमस्ते दुनिया", "नमस्ते   दुनिया"},
		{"tamil", "வணக்கம் உலகம்", "வணக்கம்  உலகம்"},
		{"mixed", "Hello नमस्ते 世界", "Hello  नमस्ते   世界"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, ContentHash(tc.a), ContentHash(tc.b))
		})
	}
}

func TestChunkKeyFormat(t *testing.T) {
	key := ChunkKey("agent1", "doc1", "abc123")
	require.Equal(t, "agent1_doc1_abc123", key)
}

func TestFindStaleKeys(t *testing.T) {
	existing := []string{"k1", "k2", "k3"}
	current := []string{"k2", "k3", "k4"}
	stale := FindStaleKeys(existing, current)
	require.ElementsMatch(t, []string{"k1"}, stale)
}

func TestFindStaleKeysIdempotentSecondRun(t *testing.T) {
	keys := []string{"k1", "k2", "k3"}
	require.Empty(t, FindStaleKeys(keys, keys))
}
