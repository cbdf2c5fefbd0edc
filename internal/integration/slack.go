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

// Slack plugin: builds a block-kit message with slack-go/slack and
// posts it to an Incoming Webhook URL, following
// pkg/slack/message.go's block-building style (one section block per
// logical piece of the message) from the retrieval pack.
package integration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// SlackPlugin posts call summaries to a Slack Incoming Webhook.
type SlackPlugin struct{}

// NewSlackPlugin builds a SlackPlugin.
func NewSlackPlugin() *SlackPlugin {
	return &SlackPlugin{}
}

func (p *SlackPlugin) Metadata() Metadata {
	return Metadata{
		ID:                "slack",
		Name:              "Slack",
		Description:       "Post a call summary to a Slack channel via an Incoming Webhook.",
		Category:          "messaging",
		SupportedTriggers: []string{"call_completed"},
		Version:           "1.0.0",
	}
}

func (p *SlackPlugin) ValidateConfig(config map[string]any) ValidationResult {
	var errs []string
	url, _ := config["webhookUrl"].(string)
	if url == "" {
		errs = append(errs, "webhookUrl is required")
	} else if !strings.Contains(url, "hooks.slack.com") {
		errs = append(errs, "webhookUrl must be a hooks.slack.com URL")
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func (p *SlackPlugin) TestConnection(ctx context.Context, config map[string]any) (ConnectionTestResult, error) {
	start := time.Now()
	msg := &slack.WebhookMessage{Text: "Integration test from the voice agent runtime."}
	url, _ := config["webhookUrl"].(string)
	err := slack.PostWebhookContext(ctx, url, msg)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return ConnectionTestResult{Success: false, Message: err.Error(), LatencyMs: latency}, nil
	}
	return ConnectionTestResult{Success: true, Message: "ok", LatencyMs: latency}, nil
}

func (p *SlackPlugin) TransformPayload(execCtx ExecutionContext, config map[string]any) (map[string]any, error) {
	summary := execCtx.Transcript
	if len(summary) > 2900 {
		summary = summary[:2900] + "…"
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf(":telephone_receiver: *Call completed* (%s)", execCtx.CallID), false, false),
			nil, nil,
		),
	}
	if summary != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, summary, false, false),
			nil, nil,
		))
	}

	return map[string]any{"blocks": blocks, "text": "Call completed"}, nil
}

func (p *SlackPlugin) Execute(ctx context.Context, execCtx ExecutionContext, config map[string]any) (ExecutionResult, error) {
	start := time.Now()
	url, _ := config["webhookUrl"].(string)
	if url == "" {
		return ExecutionResult{Success: false, Error: "slack webhookUrl not configured"}, nil
	}

	payload, err := p.TransformPayload(execCtx, config)
	if err != nil {
		return ExecutionResult{Success: false, Error: err.Error()}, nil
	}
	blocks, _ := payload["blocks"].([]slack.Block)
	text, _ := payload["text"].(string)

	msg := &slack.WebhookMessage{Text: text, Blocks: &slack.Blocks{BlockSet: blocks}}
	if channel, ok := config["channel"].(string); ok {
		msg.Channel = channel
	}
	if username, ok := config["username"].(string); ok {
		msg.Username = username
	}
	if icon, ok := config["iconEmoji"].(string); ok {
		msg.IconEmoji = icon
	}

	err = slack.PostWebhookContext(ctx, url, msg)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return ExecutionResult{Success: false, Error: err.Error(), ExecutionTimeMs: elapsed, Retryable: true}, nil
	}
	return ExecutionResult{Success: true, ExecutionTimeMs: elapsed, Request: payload}, nil
}
