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
	"io"
	"net/http"
	"strings"
	"time"
)

// WebhookPlugin is the generic POST/PUT/PATCH integration: user-supplied
// headers and a templated JSON body.
type WebhookPlugin struct {
	client *http.Client
}

// NewWebhookPlugin builds a WebhookPlugin with a 15 s default client.
func NewWebhookPlugin() *WebhookPlugin {
	return &WebhookPlugin{client: &http.Client{Timeout: executionTimeout}}
}

func (p *WebhookPlugin) Metadata() Metadata {
	return Metadata{
		ID:                "generic_webhook",
		Name:              "Webhook",
		Description:       "Send call data to any HTTP endpoint.",
		Category:          "generic",
		SupportedTriggers: []string{"call_completed", "call_started"},
		Version:           "1.0.0",
	}
}

func (p *WebhookPlugin) ValidateConfig(config map[string]any) ValidationResult {
	var errs []string
	url, _ := config["url"].(string)
	if url == "" {
		errs = append(errs, "url is required")
	}
	if method, ok := config["method"].(string); ok && method != "" {
		switch strings.ToUpper(method) {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			errs = append(errs, fmt.Sprintf("unsupported method %q", method))
		}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func (p *WebhookPlugin) TestConnection(ctx context.Context, config map[string]any) (ConnectionTestResult, error) {
	start := time.Now()
	result, err := p.Execute(ctx, ExecutionContext{CallID: "test"}, mergeTestFlags(config))
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return ConnectionTestResult{Success: false, Message: err.Error(), LatencyMs: latency}, nil
	}
	return ConnectionTestResult{Success: result.Success, Message: result.Error, LatencyMs: latency}, nil
}

func mergeTestFlags(config map[string]any) map[string]any {
	merged := map[string]any{}
	for k, v := range config {
		merged[k] = v
	}
	merged["_test"] = true
	return merged
}

func (p *WebhookPlugin) TransformPayload(execCtx ExecutionContext, config map[string]any) (map[string]any, error) {
	payload := map[string]any{
		"callId":         execCtx.CallID,
		"sessionId":      execCtx.SessionID,
		"organizationId": execCtx.OrganizationID,
		"agentId":        execCtx.AgentID,
		"transcript":     execCtx.Transcript,
	}
	for k, v := range execCtx.Extracted {
		payload[k] = v
	}
	for k, v := range execCtx.AgentOutput {
		payload[k] = v
	}
	return payload, nil
}

func (p *WebhookPlugin) Execute(ctx context.Context, execCtx ExecutionContext, config map[string]any) (ExecutionResult, error) {
	start := time.Now()
	url, _ := config["url"].(string)
	if url == "" {
		return ExecutionResult{Success: false, Error: "webhook url not configured"}, nil
	}
	method := strings.ToUpper(stringOr(config["method"], http.MethodPost))

	payload, err := p.TransformPayload(execCtx, config)
	if err != nil {
		return ExecutionResult{Success: false, Error: err.Error()}, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ExecutionResult{Success: false, Error: err.Error()}, nil
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return ExecutionResult{Success: false, Error: err.Error()}, nil
	}
	req.Header.Set("Content-Type", "application/json")
	if headers, ok := config["headers"].(map[string]string); ok {
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := p.client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return ExecutionResult{Success: false, Error: err.Error(), ExecutionTimeMs: elapsed, Retryable: true}, nil
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	success, retryable := ClassifyStatus(resp.StatusCode)
	return ExecutionResult{
		Success:         success,
		ExecutionTimeMs: elapsed,
		Request:         payload,
		Response:        map[string]any{"status": resp.StatusCode, "body": string(respBody)},
		Retryable:       retryable,
		Error:           errorIfFailed(success, resp.StatusCode, string(respBody)),
	}, nil
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func errorIfFailed(success bool, statusCode int, body string) string {
	if success {
		return ""
	}
	return fmt.Sprintf("webhook returned %d: %s", statusCode, body)
}
