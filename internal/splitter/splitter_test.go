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

package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/voiceagent/internal/tokenizer"
)

func newTestSplitter(t *testing.T, preset Preset) *Splitter {
	t.Helper()
	tok, err := tokenizer.New("cl100k_base", 1000)
	require.NoError(t, err)
	return New(tok, preset)
}

func TestSplitRespectsTokenBounds(t *testing.T) {
	s := newTestSplitter(t, Presets[DensityStandard])

	var sb strings.Builder
	for i := 0; i < 400; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	chunks := s.Split(sb.String())

	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		if i == len(chunks)-1 {
			// The final chunk may legitimately fall under MinTokens if
			// there was nothing left to merge it with.
			require.LessOrEqual(t, c.TokenCount, s.preset.MaxTokens)
			continue
		}
		require.GreaterOrEqual(t, c.TokenCount, s.preset.MinTokens)
		require.LessOrEqual(t, c.TokenCount, s.preset.MaxTokens)
	}
}

func TestSplitPreservesFencedCodeBlock(t *testing.T) {
	s := newTestSplitter(t, Preset{TargetTokens: 20, MinTokens: 5, MaxTokens: 30, OverlapTokens: 0})

	code := "```go\n" + strings.Repeat("fmt.Println(\"x\")\n", 8) + "```"
	text := "intro text before.\n\n" + code + "\n\nouter text after."

	chunks := s.Split(text)

	found := false
	for _, c := range chunks {
		if strings.Contains(c.Text, code) {
			found = true
			// Special regions may exceed MaxTokens but not 2x.
			require.LessOrEqual(t, c.TokenCount, s.preset.MaxTokens*2)
		}
	}
	require.True(t, found, "fenced code block should survive as a unit in some chunk")
}

func TestSplitEmptyText(t *testing.T) {
	s := newTestSplitter(t, Presets[DensityStandard])
	require.Empty(t, s.Split(""))
	require.Empty(t, s.Split("   \n\t"))
}

func TestDetectDensity(t *testing.T) {
	prose := strings.Repeat("This is a long flowing sentence about nothing in particular, meandering gently and slowly through several winding clauses before it finally reaches its long and eagerly awaited point. ", 5)
	require.Equal(t, DensityLow, DetectDensity(prose))

	headers := "# A\nshort\n## B\nshort\n### C\nshort\n"
	require.Equal(t, DensityHigh, DetectDensity(headers))
}

func TestOverlapSkippedWhenSimilar(t *testing.T) {
	s := newTestSplitter(t, Preset{TargetTokens: 10, MinTokens: 3, MaxTokens: 15, OverlapTokens: 5})
	chunks := []Chunk{
		{Text: "the end of the first chunk here. "},
		{Text: "the end of the first chunk here continues. "},
	}
	out := s.applyOverlap(chunks)
	require.Equal(t, chunks[1].Text, out[1].Text)
}
