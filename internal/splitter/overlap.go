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

import "strings"

// applyOverlap prepends up to OverlapTokens tokens from the tail of each
// chunk onto the next one, aligned to the nearest preceding sentence or
// line boundary. The prefix is skipped when the next chunk's own
// opening text is already near-duplicate (>=0.7 Jaccard) of the
// overlap, avoiding doubled content at a boundary the upstream
// splitter already handled cleanly.
func (s *Splitter) applyOverlap(chunks []Chunk) []Chunk {
	if len(chunks) < 2 || s.preset.OverlapTokens <= 0 {
		return chunks
	}

	out := make([]Chunk, len(chunks))
	out[0] = chunks[0]

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		next := chunks[i].Text

		overlap := s.tailOverlap(prev)
		if overlap == "" {
			out[i] = chunks[i]
			continue
		}

		probeLen := 50
		if len(next) < probeLen {
			probeLen = len(next)
		}
		if jaccardSimilar(overlap, next[:probeLen]) {
			out[i] = chunks[i]
			continue
		}

		out[i] = Chunk{Text: overlap + next}
	}
	return out
}

// tailOverlap extracts up to OverlapTokens tokens from the end of text,
// then trims back to the nearest preceding sentence or line boundary so
// the overlap never starts mid-sentence.
func (s *Splitter) tailOverlap(text string) string {
	ids := s.tok.Encode(text)
	if len(ids) == 0 {
		return ""
	}

	n := s.preset.OverlapTokens
	if n > len(ids) {
		n = len(ids)
	}
	_, tail := s.tok.SplitAtTokenBoundary(text, len(ids)-n)

	if idx := lastBoundary(tail); idx > 0 {
		tail = tail[idx:]
	}
	return strings.TrimLeft(tail, " \t")
}

// lastBoundary finds the offset just after the last sentence-ending
// punctuation or newline in s, or 0 if none is found (use the whole
// tail as-is).
func lastBoundary(s string) int {
	best := -1
	for _, sep := range []string{"\n", ". ", "? ", "! "} {
		if idx := strings.LastIndex(s, sep); idx != -1 {
			end := idx + len(sep)
			if end > best {
				best = end
			}
		}
	}
	if best == -1 {
		return 0
	}
	return best
}
