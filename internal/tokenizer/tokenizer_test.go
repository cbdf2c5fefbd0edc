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

package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	tok, err := New("cl100k_base", 100)
	require.NoError(t, err)

	texts := []string{
		"hello world",
		"The quick brown fox jumps over the lazy dog.",
		"Multi\nline\ntext with\ttabs and  spaces.",
		"",
	}
	for _, text := range texts {
		ids := tok.Encode(text)
		got := tok.Decode(ids)
		require.Equal(t, text, got)
	}
}

func TestCountTokensPositiveForNonEmpty(t *testing.T) {
	tok, err := New("cl100k_base", 100)
	require.NoError(t, err)

	require.Greater(t, tok.CountTokens("non-empty text"), 0)
}

func TestSplitAtTokenBoundary(t *testing.T) {
	tok, err := New("cl100k_base", 100)
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox ", 50)
	head, rest := tok.SplitAtTokenBoundary(text, 10)

	require.LessOrEqual(t, tok.CountTokens(head), 10)
	require.Equal(t, text, head+rest)
}

func TestSplitAtTokenBoundaryWholeText(t *testing.T) {
	tok, err := New("cl100k_base", 100)
	require.NoError(t, err)

	text := "short"
	head, rest := tok.SplitAtTokenBoundary(text, 1000)
	require.Equal(t, text, head)
	require.Empty(t, rest)
}

func TestCacheIsLRU(t *testing.T) {
	tok, err := New("cl100k_base", 2)
	require.NoError(t, err)

	tok.Encode("a")
	tok.Encode("b")
	require.Equal(t, 2, tok.CacheLen())

	tok.Encode("c") // evicts "a"
	require.Equal(t, 2, tok.CacheLen())
}

func TestUnknownEncodingIsUnavailable(t *testing.T) {
	_, err := New("not-a-real-encoding", 10)
	require.Error(t, err)

	var unavailable *ErrUnavailable
	require.ErrorAs(t, err, &unavailable)
}
