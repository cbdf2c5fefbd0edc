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
)

// chunkFAQ splits on "Q:" markers, pairing each question with the
// answer text that follows up to the next "Q:" (or end of text). The
// question is already the first line of the block, so no separate
// context prefix is added.
func (s *Service) chunkFAQ(text string) []rawChunk {
	locs := qaLinePattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	var raw []rawChunk
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		block := strings.TrimSpace(text[loc[0]:end])
		raw = append(raw, rawChunk{text: block})
	}
	return raw
}

// chunkSection splits on markdown headers (#, ##, ###), attaching the
// nearest enclosing header path ("section > subsection") as context.
func (s *Service) chunkSection(text string) []rawChunk {
	locs := headerLinePattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return s.chunkParagraph(text)
	}

	type heading struct {
		level int
		title string
	}
	var path []heading
	var raw []rawChunk

	for i, loc := range locs {
		level := loc[3] - loc[2] // length of the #{1,3} match
		title := strings.TrimSpace(text[loc[4]:loc[5]])

		for len(path) > 0 && path[len(path)-1].level >= level {
			path = path[:len(path)-1]
		}
		path = append(path, heading{level: level, title: title})

		bodyStart := loc[1]
		bodyEnd := len(text)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		body := strings.TrimSpace(text[bodyStart:bodyEnd])
		if body == "" {
			continue
		}

		titles := make([]string, len(path))
		for j, h := range path {
			titles[j] = h.title
		}
		raw = append(raw, rawChunk{text: body, prefix: strings.Join(titles, " > ")})
	}
	return raw
}

// chunkItem groups list items (markdown bullets/numbered lists),
// accumulating adjacent small items until the running token count
// reaches the splitter's MinTokens so a list of short items doesn't
// produce one chunk per bullet.
func (s *Service) chunkItem(text string) []rawChunk {
	lines := strings.Split(text, "\n")
	minTokens := s.splitter.Preset().MinTokens

	var raw []rawChunk
	var buf strings.Builder
	flush := func() {
		block := strings.TrimSpace(buf.String())
		if block != "" {
			raw = append(raw, rawChunk{text: block})
		}
		buf.Reset()
	}

	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteString("\n")
		if listMarkerPattern.MatchString(line) && s.tok.CountTokens(buf.String()) >= minTokens {
			flush()
		}
	}
	flush()
	return raw
}

// chunkSentence is used when code blocks are present. It runs the same
// C2 splitter, with the same preset, as chunkParagraph: it applies no
// smaller size bound and no separate overlap setting, so its chunks
// are sized like paragraph-strategy chunks. A fenced block that forms a
// whole segment is kept intact by the splitter's protected-region check.
func (s *Service) chunkSentence(text string) []rawChunk {
	chunks := s.splitter.Split(text)
	raw := make([]rawChunk, 0, len(chunks))
	for _, c := range chunks {
		raw = append(raw, rawChunk{text: c.Text})
	}
	return raw
}

// chunkParagraph is the default strategy: delegate entirely to the C2
// recursive splitter.
func (s *Service) chunkParagraph(text string) []rawChunk {
	chunks := s.splitter.Split(text)
	raw := make([]rawChunk, 0, len(chunks))
	for _, c := range chunks {
		raw = append(raw, rawChunk{text: c.Text})
	}
	return raw
}

// chunkFixed splits into fixed-size token windows with no overlap and
// no boundary awareness — used by callers that explicitly opt out of
// content-aware splitting.
func (s *Service) chunkFixed(text string) []rawChunk {
	var raw []rawChunk
	remaining := text
	preset := s.splitter.Preset()
	for strings.TrimSpace(remaining) != "" {
		head, rest := s.tok.SplitAtTokenBoundary(remaining, preset.TargetTokens)
		if head == "" {
			break
		}
		raw = append(raw, rawChunk{text: head})
		remaining = rest
	}
	return raw
}
