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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kadirpekel/voiceagent/internal/apperr"
)

// serviceResponse mirrors the external parser service's JSON contract.
type serviceResponse struct {
	Content  string            `json:"content"`
	Pages    int               `json:"pages"`
	Metadata map[string]string `json:"metadata"`
	Elements []serviceElement  `json:"elements"`
}

type serviceElement struct {
	Type     string           `json:"type"`
	Level    int              `json:"level"`
	Text     string           `json:"text"`
	Markdown string           `json:"markdown"`
	Page     int              `json:"page"`
	Children []serviceElement `json:"children"`
}

func toStructuredElements(in []serviceElement) []*StructuredElement {
	out := make([]*StructuredElement, 0, len(in))
	for _, e := range in {
		out = append(out, &StructuredElement{
			Type:     ElementType(e.Type),
			Level:    e.Level,
			Text:     e.Text,
			Markdown: e.Markdown,
			Page:     e.Page,
			Children: toStructuredElements(e.Children),
		})
	}
	return out
}

// parseViaService uploads the file as multipart/form-data to the
// external parser endpoint, using the shared retrying client so
// network errors, timeouts, and 5xx responses are retried (max 3,
// base 1s, cap 10s) before this call returns an error.
func (p *Parser) parseViaService(ctx context.Context, path string, size int64) (*ParsedDocument, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	file, err := os.Open(path)
	if err != nil {
		return nil, apperr.NewNotFoundError("file", path)
	}
	defer file.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("build multipart request: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read file for upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serviceURL, &body)
	if err != nil {
		return nil, fmt.Errorf("build parser service request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed serviceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode parser service response: %w", err)
	}

	return &ParsedDocument{
		Filename:           filepath.Base(path),
		FileType:           strings.TrimPrefix(filepath.Ext(path), "."),
		FileSize:           size,
		Content:            parsed.Content,
		Pages:              parsed.Pages,
		Metadata:           parsed.Metadata,
		StructuredElements: toStructuredElements(parsed.Elements),
	}, nil
}
