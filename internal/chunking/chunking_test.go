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

package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/voiceagent/internal/splitter"
	"github.com/kadirpekel/voiceagent/internal/tokenizer"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	tok, err := tokenizer.New("cl100k_base", 1000)
	require.NoError(t, err)
	return New(tok, splitter.Presets[splitter.DensityStandard])
}

func TestDetectStrategyFAQ(t *testing.T) {
	s := newTestService(t)
	text := "Q: What are your hours?\nA: 9 to 5.\n\nQ: Where are you located?\nA: Downtown.\n"
	require.Equal(t, StrategyFAQ, s.detectStrategy(text))
}

func TestDetectStrategySection(t *testing.T) {
	s := newTestService(t)
	text := "# Intro\nbody\n## Details\nbody\n### More\nbody\n"
	require.Equal(t, StrategySection, s.detectStrategy(text))
}

func TestDetectStrategyItem(t *testing.T) {
	s := newTestService(t)
	text := "- one\n- two\n- three\n- four\n- five\n"
	require.Equal(t, StrategyItem, s.detectStrategy(text))
}

func TestDetectStrategyParagraphDefault(t *testing.T) {
	s := newTestService(t)
	require.Equal(t, StrategyParagraph, s.detectStrategy("Just plain prose with no markers at all."))
}

func TestChunkFAQKeepsQuestionAsFirstLine(t *testing.T) {
	s := newTestService(t)
	text := "Q: What are your hours?\nA: 9 to 5.\n\nQ: Where are you located?\nA: Downtown.\n"
	chunks := s.ChunkText(text, Metadata{AgentID: "a1", DocumentID: "d1"}, StrategyFAQ)

	require.Len(t, chunks, 2)
	require.True(t, strings.HasPrefix(chunks[0].Text, "Q: What are your hours?\nA: 9 to 5."))
	require.Equal(t, StrategyFAQ, chunks[0].Strategy)
	require.Equal(t, 0, chunks[0].ChunkIndex)
	require.Equal(t, 2, chunks[0].TotalCount)
}

func TestChunkSectionBuildsHeaderPath(t *testing.T) {
	s := newTestService(t)
	text := "# Billing\nTop level info.\n## Refunds\nRefund policy details go here.\n"
	chunks := s.ChunkText(text, Metadata{}, StrategySection)

	require.NotEmpty(t, chunks)
	found := false
	for _, c := range chunks {
		if strings.Contains(c.Text, "Billing > Refunds") {
			found = true
		}
	}
	require.True(t, found)
}

func TestChunkItemGroupsShortBullets(t *testing.T) {
	s := newTestService(t)
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		sb.WriteString("- a short bullet item\n")
	}
	chunks := s.ChunkText(sb.String(), Metadata{}, StrategyItem)
	require.NotEmpty(t, chunks)
	// Grouping should produce fewer chunks than raw bullet lines.
	require.Less(t, len(chunks), 20)
}

func TestContextPrefixTruncatedTo32Tokens(t *testing.T) {
	s := newTestService(t)
	longPrefix := strings.Repeat("word ", 100)
	out := s.applyContextPrefix(longPrefix, "body text")
	require.True(t, strings.HasPrefix(out, "["))
	prefixEnd := strings.Index(out, "] body text")
	require.Greater(t, prefixEnd, 0)
	prefixText := out[1:prefixEnd]
	require.LessOrEqual(t, s.tok.CountTokens(prefixText), 32)
}

func TestChunksCarryMetadataAndHash(t *testing.T) {
	s := newTestService(t)
	meta := Metadata{AgentID: "a1", DocumentID: "d1", Filename: "f.md"}
	chunks := s.ChunkText("Plain paragraph of reasonable length for a single chunk.", meta, StrategyParagraph)
	require.NotEmpty(t, chunks)
	require.Equal(t, meta, chunks[0].Metadata)
	require.NotEmpty(t, chunks[0].ContentHash)
	require.Greater(t, chunks[0].TokenCount, 0)
	require.Greater(t, chunks[0].CharCount, 0)
}

func TestAutoChunkTextEmptyInput(t *testing.T) {
	s := newTestService(t)
	require.Empty(t, s.AutoChunkText("", Metadata{}))
	require.Empty(t, s.AutoChunkText("   ", Metadata{}))
}
