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
	"regexp"
	"strings"
)

var (
	fencedCodeBlock = regexp.MustCompile("(?s)```.*?```")
	pipeTableBlock  = regexp.MustCompile(`(?m)^\|.*\|\s*\n(\|[\s:-]+\|\s*\n)(\|.*\|\s*\n?)+`)
	qaPairBlock     = regexp.MustCompile(`(?m)^Q:.*(?:\n(?:[^Q\n].*|Q[^:\n].*|Q$)?)*`)
)

// isProtectedRegion reports whether candidate, ignoring surrounding
// whitespace, is in its entirety a fenced code block, pipe table, or
// Q/A pair — content that must never be split further regardless of
// its token count.
func isProtectedRegion(candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	switch {
	case fencedCodeBlock.MatchString(candidate) && fencedCodeBlock.FindString(candidate) == candidate:
		return true
	case pipeTableBlock.MatchString(candidate) && pipeTableBlock.FindString(candidate) == candidate:
		return true
	case qaPairBlock.MatchString(candidate) && qaPairBlock.FindString(candidate) == candidate:
		return true
	}
	return false
}
