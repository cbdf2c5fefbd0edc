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

package docparse

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFilePlainTextBypassesService(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("first paragraph\n\nsecond paragraph"), 0o644))

	p := New() // no external service configured
	doc, err := p.ParseFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "md", doc.FileType)
	require.Len(t, doc.StructuredElements, 2)
	require.Equal(t, ElementParagraph, doc.StructuredElements[0].Type)
}

func TestParseFileMissingFile(t *testing.T) {
	p := New()
	_, err := p.ParseFile(context.Background(), "/nonexistent/path.txt")
	require.Error(t, err)
}

func TestBuildHierarchyAttachesToNearestHeading(t *testing.T) {
	flat := []*StructuredElement{
		{Type: ElementHeading, Level: 1, Text: "Intro"},
		{Type: ElementParagraph, Text: "intro body"},
		{Type: ElementHeading, Level: 2, Text: "Details"},
		{Type: ElementParagraph, Text: "details body"},
		{Type: ElementHeading, Level: 1, Text: "Next Section"},
		{Type: ElementParagraph, Text: "next body"},
	}

	roots := buildHierarchy(flat)
	require.Len(t, roots, 2)
	require.Equal(t, "Intro", roots[0].Text)
	require.Len(t, roots[0].Children, 2) // intro body + Details heading
	require.Equal(t, "Details", roots[0].Children[1].Text)
	require.Len(t, roots[0].Children[1].Children, 1)
	require.Equal(t, "Next Section", roots[1].Text)
}

func TestBuildHierarchyNoHeadingsStaysFlat(t *testing.T) {
	flat := []*StructuredElement{
		{Type: ElementParagraph, Text: "a"},
		{Type: ElementParagraph, Text: "b"},
	}
	roots := buildHierarchy(flat)
	require.Len(t, roots, 2)
}

func TestColumnLetter(t *testing.T) {
	require.Equal(t, "A", columnLetter(0))
	require.Equal(t, "Z", columnLetter(25))
	require.Equal(t, "AA", columnLetter(26))
}
