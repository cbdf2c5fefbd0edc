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

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SheetsColumnSource is where a Sheets column's value is pulled from.
type SheetsColumnSource string

const (
	ColumnSourceCall       SheetsColumnSource = "call"
	ColumnSourceTranscript SheetsColumnSource = "transcript"
	ColumnSourceExtracted  SheetsColumnSource = "extracted"
	ColumnSourceAgent      SheetsColumnSource = "agent"
	ColumnSourceStatic     SheetsColumnSource = "static"
)

// SheetsColumn is one user-defined output column.
type SheetsColumn struct {
	Name     string
	Source   SheetsColumnSource
	Path     string
	Format   string
	Fallback string
}

// SheetsPlugin produces a dynamic Apps Script payload whose columns are
// user-defined.
type SheetsPlugin struct {
	client *http.Client
}

// NewSheetsPlugin builds a SheetsPlugin.
func NewSheetsPlugin() *SheetsPlugin {
	return &SheetsPlugin{client: &http.Client{Timeout: executionTimeout}}
}

func (p *SheetsPlugin) Metadata() Metadata {
	return Metadata{
		ID:                "google_sheets",
		Name:              "Google Sheets",
		Description:       "Append a row of call data to a Google Sheet via Apps Script.",
		Category:          "productivity",
		SupportedTriggers: []string{"call_completed"},
		Version:           "1.0.0",
	}
}

func (p *SheetsPlugin) ValidateConfig(config map[string]any) ValidationResult {
	var errs []string
	url, _ := config["scriptUrl"].(string)
	if url == "" {
		errs = append(errs, "scriptUrl is required")
	}
	columns, ok := config["columns"].([]SheetsColumn)
	if !ok || len(columns) == 0 {
		errs = append(errs, "at least one column is required")
	}
	for _, col := range columns {
		if col.Name == "" {
			errs = append(errs, "every column requires a name")
		}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func (p *SheetsPlugin) TestConnection(ctx context.Context, config map[string]any) (ConnectionTestResult, error) {
	start := time.Now()
	columns, _ := config["columns"].([]SheetsColumn)
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}

	payload := map[string]any{
		"_test":       true,
		"_setHeaders": true,
		"_headers":    names,
	}
	result, err := p.post(ctx, config, payload)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return ConnectionTestResult{Success: false, Message: err.Error(), LatencyMs: latency}, nil
	}
	return ConnectionTestResult{Success: result.Success, Message: result.Error, LatencyMs: latency}, nil
}

func (p *SheetsPlugin) TransformPayload(execCtx ExecutionContext, config map[string]any) (map[string]any, error) {
	columns, _ := config["columns"].([]SheetsColumn)
	payload := map[string]any{"callId": execCtx.CallID}

	for _, col := range columns {
		value := resolveColumnValue(col, execCtx)
		payload[col.Name] = value
	}
	if sheetName, ok := config["sheetName"].(string); ok && sheetName != "" {
		payload["_sheetName"] = sheetName
	}
	return payload, nil
}

func resolveColumnValue(col SheetsColumn, execCtx ExecutionContext) any {
	var value any
	switch col.Source {
	case ColumnSourceCall:
		switch col.Path {
		case "callId":
			value = execCtx.CallID
		case "sessionId":
			value = execCtx.SessionID
		case "organizationId":
			value = execCtx.OrganizationID
		case "agentId":
			value = execCtx.AgentID
		}
	case ColumnSourceTranscript:
		value = execCtx.Transcript
	case ColumnSourceExtracted:
		value = execCtx.Extracted[col.Path]
	case ColumnSourceAgent:
		value = execCtx.AgentOutput[col.Path]
	case ColumnSourceStatic:
		value = col.Fallback
	}
	if value == nil || value == "" {
		return col.Fallback
	}
	return value
}

func (p *SheetsPlugin) Execute(ctx context.Context, execCtx ExecutionContext, config map[string]any) (ExecutionResult, error) {
	start := time.Now()
	payload, err := p.TransformPayload(execCtx, config)
	if err != nil {
		return ExecutionResult{Success: false, Error: err.Error()}, nil
	}

	result, err := p.post(ctx, config, payload)
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	result.Request = payload
	return result, err
}

func (p *SheetsPlugin) post(ctx context.Context, config map[string]any, payload map[string]any) (ExecutionResult, error) {
	url, _ := config["scriptUrl"].(string)
	if url == "" {
		return ExecutionResult{Success: false, Error: "scriptUrl not configured"}, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ExecutionResult{Success: false, Error: err.Error()}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ExecutionResult{Success: false, Error: err.Error()}, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return ExecutionResult{Success: false, Error: err.Error(), Retryable: true}, nil
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	respBody.ReadFrom(resp.Body)

	success, retryable := ClassifyStatus(resp.StatusCode)
	errMsg := ""
	if !success {
		errMsg = fmt.Sprintf("apps script returned %d: %s", resp.StatusCode, strings.TrimSpace(respBody.String()))
	}
	return ExecutionResult{
		Success:   success,
		Response:  map[string]any{"status": resp.StatusCode, "body": respBody.String()},
		Retryable: retryable,
		Error:     errMsg,
	}, nil
}
