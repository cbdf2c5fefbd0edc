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

package toolexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kadirpekel/voiceagent/internal/functionschema"
)

// invokeWebhook POSTs args merged with session context to the schema's
// configured webhook URL.
func (b *Builder) invokeWebhook(ctx context.Context, s *functionschema.Schema, args map[string]any, callCtx CallContext) (Result, error) {
	if s.HandlerConfig.WebhookURL == "" {
		return Result{Success: false, Error: "webhook tool has no configured URL"}, nil
	}

	payload := map[string]any{}
	for k, v := range args {
		payload[k] = v
	}
	payload["sessionId"] = callCtx.SessionID
	payload["organizationId"] = callCtx.OrganizationID
	payload["agentId"] = callCtx.AgentID

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.HandlerConfig.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.HandlerConfig.WebhookHeaders {
		req.Header.Set(k, v)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("webhook request failed: %v", err)}, nil
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return Result{Success: false, Error: fmt.Sprintf("webhook returned %d: %s", resp.StatusCode, respBody)}, nil
	}

	return Result{Success: true, Result: string(respBody)}, nil
}
