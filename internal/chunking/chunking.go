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

// Package chunking implements C4: chunking strategy selection (FAQ /
// section / item / paragraph / sentence / fixed) built on top of C1–C3.
//
// The Strategy enum and constructor-switch shape follows
// pkg/rag/chunker.go's factory pattern, generalized from three generic
// strategies (simple/overlapping/semantic) to the six content-aware
// strategies named above.
package chunking

import (
	"regexp"
	"strings"

	"github.com/kadirpekel/voiceagent/internal/dedup"
	"github.com/kadirpekel/voiceagent/internal/splitter"
	"github.com/kadirpekel/voiceagent/internal/tokenizer"
)

// Strategy identifies a chunking strategy.
type Strategy string

const (
	StrategyFAQ       Strategy = "faq"
	StrategySection   Strategy = "section"
	StrategyItem      Strategy = "item"
	StrategySentence  Strategy = "sentence"
	StrategyParagraph Strategy = "paragraph"
	StrategyFixed     Strategy = "fixed"
)

// Metadata carries caller-supplied context attached to every chunk.
type Metadata struct {
	AgentID    string
	DocumentID string
	Filename   string
}

// Chunk is one emitted, context-prefixed chunk ready for C6 to dedup
// and upsert.
type Chunk struct {
	Text       string
	ChunkIndex int
	TotalCount int
	TokenCount int
	CharCount  int
	Strategy   Strategy
	Metadata   Metadata
	ContentHash string
}

// Service selects and applies a chunking strategy.
type Service struct {
	tok      *tokenizer.Tokenizer
	splitter *splitter.Splitter
}

// New creates a chunking Service. splitterPreset governs the PARAGRAPH
// and SENTENCE strategies, which fall through to C2.
func New(tok *tokenizer.Tokenizer, preset splitter.Preset) *Service {
	return &Service{tok: tok, splitter: splitter.New(tok, preset)}
}

var (
	qaLinePattern     = regexp.MustCompile(`(?mi)^Q:\s*.+`)
	headerLinePattern = regexp.MustCompile(`(?m)^(#{1,3})\s+(.+)$`)
	listMarkerPattern = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+[.)])\s+`)
	codeBlockPattern  = regexp.MustCompile("(?s)```.*?```")
)

// AutoChunkText selects a strategy from the content shape and applies
// it.
func (s *Service) AutoChunkText(text string, meta Metadata) []Chunk {
	strategy := s.detectStrategy(text)
	return s.ChunkText(text, meta, strategy)
}

func (s *Service) detectStrategy(text string) Strategy {
	if len(qaLinePattern.FindAllString(text, -1)) > 0 {
		return StrategyFAQ
	}
	if len(headerLinePattern.FindAllStringIndex(text, -1)) >= 3 {
		return StrategySection
	}
	if len(listMarkerPattern.FindAllStringIndex(text, -1)) >= 5 {
		return StrategyItem
	}
	if len(codeBlockPattern.FindAllStringIndex(text, -1)) > 0 {
		return StrategySentence
	}
	return StrategyParagraph
}

// ChunkText applies the named strategy explicitly.
func (s *Service) ChunkText(text string, meta Metadata, strategy Strategy) []Chunk {
	var raw []rawChunk

	switch strategy {
	case StrategyFAQ:
		raw = s.chunkFAQ(text)
		if len(raw) == 0 {
			raw = s.chunkParagraph(text)
		}
	case StrategySection:
		raw = s.chunkSection(text)
	case StrategyItem:
		raw = s.chunkItem(text)
	case StrategySentence:
		raw = s.chunkSentence(text)
	case StrategyFixed:
		raw = s.chunkFixed(text)
	default:
		raw = s.chunkParagraph(text)
	}

	return s.finalize(raw, meta, strategy)
}

// rawChunk is a pre-context-prefix, pre-hash chunk produced by a
// specific strategy.
type rawChunk struct {
	text   string
	prefix string // e.g. "section > subsection"
}

// finalize applies the context prefix (truncated to <=32 tokens), then
// computes size metadata and content hash for every chunk.
func (s *Service) finalize(raw []rawChunk, meta Metadata, strategy Strategy) []Chunk {
	chunks := make([]Chunk, 0, len(raw))
	for _, r := range raw {
		text := r.text
		if r.prefix != "" {
			text = s.applyContextPrefix(r.prefix, r.text)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Text:        text,
			TokenCount:  s.tok.CountTokens(text),
			CharCount:   len(text),
			Strategy:    strategy,
			Metadata:    meta,
			ContentHash: dedup.ContentHash(text),
		})
	}
	for i := range chunks {
		chunks[i].ChunkIndex = i
		chunks[i].TotalCount = len(chunks)
	}
	return chunks
}

// applyContextPrefix prepends "[prefix] " to body, truncating the
// prefix itself to at most 32 tokens so large nested headings don't
// dominate a small chunk's token budget.
func (s *Service) applyContextPrefix(prefix, body string) string {
	head, _ := s.tok.SplitAtTokenBoundary(prefix, 32)
	return "[" + head + "] " + body
}
