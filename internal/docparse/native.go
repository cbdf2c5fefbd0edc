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

// Native fallback parsers for PDF, DOCX, and XLSX, used when no
// external parser service is configured or its retries are exhausted.
// Carried over from pkg/rag/native_parsers.go's pdfParser/officeParser
// pair, restructured to emit StructuredElement trees instead of a flat
// NativeParseResult.

package docparse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"

	"github.com/kadirpekel/voiceagent/internal/apperr"
)

type nativeDocParser interface {
	canParse(ext string) bool
	parse(ctx context.Context, path string, size int64) (*ParsedDocument, error)
}

type nativeParserRegistry struct {
	parsers []nativeDocParser
}

func newNativeParserRegistry() *nativeParserRegistry {
	return &nativeParserRegistry{parsers: []nativeDocParser{&pdfParser{}, &officeParser{}}}
}

func (r *nativeParserRegistry) find(ext string) nativeDocParser {
	for _, p := range r.parsers {
		if p.canParse(ext) {
			return p
		}
	}
	return nil
}

func (p *Parser) parseNative(ctx context.Context, path string, size int64) (*ParsedDocument, error) {
	ext := strings.ToLower(filepath.Ext(path))
	parser := p.nativeRegistry.find(ext)
	if parser == nil {
		return nil, apperr.NewValidationError("file_type", fmt.Sprintf("no native parser for extension %q", ext))
	}
	return parser.parse(ctx, path, size)
}

// pdfParser extracts page text via ledongthuc/pdf, one ElementParagraph
// per non-empty page.
type pdfParser struct{}

func (p *pdfParser) canParse(ext string) bool { return ext == ".pdf" }

func (p *pdfParser) parse(ctx context.Context, path string, size int64) (*ParsedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.NewNotFoundError("file", path)
	}
	defer f.Close()

	reader, err := pdf.NewReader(f, size)
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	var elements []*StructuredElement
	var contentParts []string
	totalPages := reader.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		contentParts = append(contentParts, text)
		elements = append(elements, &StructuredElement{Type: ElementParagraph, Text: text, Page: pageNum})
	}

	return &ParsedDocument{
		Filename:           filepath.Base(path),
		FileType:           "pdf",
		FileSize:           size,
		Content:            strings.Join(contentParts, "\n\n"),
		Pages:              totalPages,
		Metadata:           map[string]string{"type": "PDF Document", "pages": fmt.Sprintf("%d", totalPages)},
		StructuredElements: buildHierarchy(elements),
	}, nil
}

// officeParser handles DOCX (full text, single paragraph element per
// doc paragraph) and XLSX (one table element per sheet, capped at
// 1000 cells to bound output on huge spreadsheets).
type officeParser struct{}

func (p *officeParser) canParse(ext string) bool { return ext == ".docx" || ext == ".xlsx" }

func (p *officeParser) parse(ctx context.Context, path string, size int64) (*ParsedDocument, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return p.parseDocx(path, size)
	case ".xlsx":
		return p.parseXlsx(ctx, path, size)
	default:
		return nil, apperr.NewValidationError("file_type", "unsupported office format")
	}
}

func (p *officeParser) parseDocx(path string, size int64) (*ParsedDocument, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	paras := strings.Split(content, "\n\n")
	var elements []*StructuredElement
	for _, para := range paras {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		elements = append(elements, &StructuredElement{Type: ElementParagraph, Text: para, Page: 1})
	}

	return &ParsedDocument{
		Filename:           filepath.Base(path),
		FileType:           "docx",
		FileSize:           size,
		Content:            content,
		Pages:              1,
		Metadata:           map[string]string{"type": "Word Document", "paragraphs": fmt.Sprintf("%d", len(paras))},
		StructuredElements: buildHierarchy(elements),
	}, nil
}

const maxCellsPerSheet = 1000

func (p *officeParser) parseXlsx(ctx context.Context, path string, size int64) (*ParsedDocument, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var elements []*StructuredElement
	var contentParts []string

	for sheetIdx, sheetName := range sheets {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}

		var sheetText strings.Builder
		cellCount := 0
	rowsLoop:
		for rowIdx, row := range rows {
			for colIdx, cell := range row {
				if cellCount >= maxCellsPerSheet {
					break rowsLoop
				}
				text := strings.TrimSpace(cell)
				if text == "" {
					continue
				}
				fmt.Fprintf(&sheetText, "%s%d: %s\n", columnLetter(colIdx), rowIdx+1, text)
				cellCount++
			}
		}

		if sheetText.Len() == 0 {
			continue
		}
		elements = append(elements, &StructuredElement{
			Type:  ElementTable,
			Text:  sheetText.String(),
			Page:  sheetIdx + 1,
		})
		contentParts = append(contentParts, fmt.Sprintf("--- Sheet: %s ---\n%s", sheetName, sheetText.String()))
	}

	return &ParsedDocument{
		Filename:           filepath.Base(path),
		FileType:           "xlsx",
		FileSize:           size,
		Content:            strings.Join(contentParts, "\n\n"),
		Pages:              len(sheets),
		Metadata:           map[string]string{"type": "Excel Spreadsheet", "sheets": fmt.Sprintf("%d", len(sheets))},
		StructuredElements: buildHierarchy(elements),
	}, nil
}

// columnLetter converts a 0-based column index to an Excel column
// letter (A, B, ..., Z, AA, AB, ...).
func columnLetter(index int) string {
	result := ""
	for {
		result = string(rune('A'+index%26)) + result
		index = index/26 - 1
		if index < 0 {
			break
		}
	}
	return result
}
