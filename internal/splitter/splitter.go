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

// Package splitter implements C2: token-bounded recursive semantic text
// splitting with overlap and special-region preservation.
//
// Follows pkg/rag's chunker family (SimpleChunker, OverlappingChunker,
// SemanticChunker in chunker_simple.go): this keeps the same "try a
// separator, recurse on oversized segments, fall back to a smaller
// separator" shape, but measures in BPE tokens via internal/tokenizer
// instead of characters/lines, and adds density presets, special-region
// protection, and overlap-with-dedup.
package splitter

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/kadirpekel/voiceagent/internal/tokenizer"
)

// Density identifies a content-density preset.
type Density string

const (
	DensityHigh     Density = "high"
	DensityStandard Density = "standard"
	DensityLow      Density = "low"
)

// Preset bounds a splitter run.
type Preset struct {
	TargetTokens  int
	MinTokens     int
	MaxTokens     int
	OverlapTokens int
}

// Presets by content density.
var Presets = map[Density]Preset{
	DensityHigh:     {TargetTokens: 256, MinTokens: 128, MaxTokens: 384, OverlapTokens: 48},
	DensityStandard: {TargetTokens: 384, MinTokens: 192, MaxTokens: 512, OverlapTokens: 64},
	DensityLow:      {TargetTokens: 512, MinTokens: 256, MaxTokens: 768, OverlapTokens: 96},
}

// separator hierarchy, strongest (most likely a real section break) first.
var separators = []string{
	"\n\n\n",
	"\n---\n", "\n***\n", "\n___\n",
	"\n\n",
	"\n",
	". ", "? ", "! ", "; ", ", ",
	" ",
}

// Chunk is one emitted piece of text.
type Chunk struct {
	Text       string
	TokenCount int
	Index      int
}

// Splitter splits text into token-bounded chunks.
type Splitter struct {
	tok    *tokenizer.Tokenizer
	preset Preset
}

// New creates a Splitter using an explicit preset.
func New(tok *tokenizer.Tokenizer, preset Preset) *Splitter {
	return &Splitter{tok: tok, preset: preset}
}

// Preset returns the bounds this Splitter was constructed with.
func (s *Splitter) Preset() Preset {
	return s.preset
}

// NewForDensity creates a Splitter using one of the named presets.
func NewForDensity(tok *tokenizer.Tokenizer, density Density) *Splitter {
	preset, ok := Presets[density]
	if !ok {
		preset = Presets[DensityStandard]
	}
	return New(tok, preset)
}

// Split breaks text into chunks whose token counts lie in
// [MinTokens, MaxTokens], preserving special regions (fenced code,
// tables, Q/A pairs) as indivisible units, and prepending overlap from
// the tail of the previous chunk to every chunk after the first.
func (s *Splitter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	segments := s.splitRecursive(text, separators)

	chunks := s.mergeUndersized(segments)
	chunks = s.applyOverlap(chunks)

	for i := range chunks {
		chunks[i].Index = i
		chunks[i].TokenCount = s.tok.CountTokens(chunks[i].Text)
	}
	return chunks
}

// splitRecursive implements the separator-hierarchy algorithm: try the
// strongest separator that yields >=2 segments, greedily accumulate
// segments into a buffer up to TargetTokens, flush on overflow, and
// recurse into any segment that itself still exceeds MaxTokens.
func (s *Splitter) splitRecursive(text string, seps []string) []string {
	if isProtectedRegion(text) {
		if tokens := s.tok.CountTokens(text); tokens > s.preset.MaxTokens*2 {
			slog.Default().Warn("splitter: protected region exceeds twice the max token bound, keeping it whole",
				"tokens", tokens, "maxTokens", s.preset.MaxTokens)
		}
		return []string{text}
	}
	if s.tok.CountTokens(text) <= s.preset.MaxTokens {
		return []string{text}
	}

	sepIdx, pieces := s.findWorkingSeparator(text, seps)
	if pieces == nil {
		// Character-level fallback: split at a token boundary directly.
		return s.splitAtTokenLimit(text)
	}

	var out []string
	var buf strings.Builder
	bufTokens := 0

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		out = append(out, buf.String())
		buf.Reset()
		bufTokens = 0
	}

	remainingSeps := seps[sepIdx+1:]
	for _, piece := range pieces {
		pieceTokens := s.tok.CountTokens(piece)

		if pieceTokens > s.preset.MaxTokens && !isProtectedRegion(piece) {
			flush()
			out = append(out, s.splitRecursive(piece, remainingSeps)...)
			continue
		}

		if bufTokens > 0 && bufTokens+pieceTokens > s.preset.TargetTokens {
			flush()
		}
		buf.WriteString(piece)
		bufTokens = s.tok.CountTokens(buf.String())
	}
	flush()

	return out
}

// findWorkingSeparator returns the index into seps of the strongest
// separator producing at least two non-empty segments, and the
// resulting segments (with the separator re-attached so the reassembled
// text is lossless modulo whitespace normalization at join points).
func (s *Splitter) findWorkingSeparator(text string, seps []string) (int, []string) {
	for i, sep := range seps {
		if sep == " " {
			fields := strings.Fields(text)
			if len(fields) < 2 {
				continue
			}
			pieces := make([]string, len(fields))
			for j, f := range fields {
				if j < len(fields)-1 {
					pieces[j] = f + " "
				} else {
					pieces[j] = f
				}
			}
			return i, pieces
		}

		parts := strings.Split(text, sep)
		if len(parts) < 2 {
			continue
		}
		pieces := make([]string, 0, len(parts))
		for j, p := range parts {
			if j < len(parts)-1 {
				pieces = append(pieces, p+sep)
			} else if p != "" {
				pieces = append(pieces, p)
			}
		}
		if len(pieces) >= 2 {
			return i, pieces
		}
	}
	return -1, nil
}

// splitAtTokenLimit is the last-resort character/token-level fallback
// when no separator can break up an oversized segment.
func (s *Splitter) splitAtTokenLimit(text string) []string {
	var out []string
	remaining := text
	for s.tok.CountTokens(remaining) > s.preset.MaxTokens {
		head, rest := s.tok.SplitAtTokenBoundary(remaining, s.preset.TargetTokens)
		if head == "" {
			break
		}
		out = append(out, head)
		remaining = rest
	}
	if remaining != "" {
		out = append(out, remaining)
	}
	return out
}

// mergeUndersized merges a trailing chunk that ends below MinTokens
// into its predecessor, provided the merge stays within MaxTokens.
func (s *Splitter) mergeUndersized(segments []string) []Chunk {
	chunks := make([]Chunk, 0, len(segments))
	for _, seg := range segments {
		tokens := s.tok.CountTokens(seg)
		if len(chunks) > 0 && tokens < s.preset.MinTokens {
			last := chunks[len(chunks)-1]
			merged := last.Text + seg
			if s.tok.CountTokens(merged) <= s.preset.MaxTokens {
				chunks[len(chunks)-1] = Chunk{Text: merged}
				continue
			}
		}
		chunks = append(chunks, Chunk{Text: seg})
	}
	return chunks
}

var wsRun = regexp.MustCompile(`\s+`)

// jaccardSimilar reports whether two short strings are >=0.7 Jaccard
// similar over their word sets.
func jaccardSimilar(a, b string) bool {
	wordsA := strings.Fields(wsRun.ReplaceAllString(a, " "))
	wordsB := strings.Fields(wsRun.ReplaceAllString(b, " "))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		setB[w] = struct{}{}
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return false
	}
	return float64(intersection)/float64(union) >= 0.7
}
