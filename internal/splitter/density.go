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
	technicalTermPattern = regexp.MustCompile(`\b[A-Z][a-zA-Z]*(?:[A-Z][a-z]*)+\b|\b[a-z]+_[a-z_]+\b|` + "`[^`]+`")
	headerLinePattern    = regexp.MustCompile(`(?m)^#{1,3}\s+\S`)
	sentenceEndPattern   = regexp.MustCompile(`[.!?]+\s`)
)

// DetectDensity classifies text as HIGH/STANDARD/LOW density from
// technical-term count, mean sentence length, and header density. HIGH
// density text (dense technical/reference material) gets smaller
// target chunks; LOW density prose gets larger ones.
func DetectDensity(text string) Density {
	lines := strings.Split(text, "\n")
	nonEmptyLines := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			nonEmptyLines++
		}
	}
	if nonEmptyLines == 0 {
		return DensityStandard
	}

	technicalTerms := len(technicalTermPattern.FindAllString(text, -1))
	headerCount := len(headerLinePattern.FindAllString(text, -1))
	headerDensity := float64(headerCount) / float64(nonEmptyLines)

	sentences := 0
	for _, seg := range sentenceEndPattern.Split(text, -1) {
		if strings.TrimSpace(seg) != "" {
			sentences++
		}
	}
	words := strings.Fields(text)
	meanSentenceLen := 0.0
	if sentences > 0 {
		meanSentenceLen = float64(len(words)) / float64(sentences)
	}

	technicalDensity := float64(technicalTerms) / float64(len(words)+1)

	switch {
	case technicalDensity > 0.08 || headerDensity > 0.15:
		return DensityHigh
	case meanSentenceLen > 22 && technicalDensity < 0.02:
		return DensityLow
	default:
		return DensityStandard
	}
}
