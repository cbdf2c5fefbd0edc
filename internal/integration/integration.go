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

// Package integration implements C13: the plugin contract every
// outbound integration (Google Sheets, Slack, generic webhook)
// implements, plus the validate -> transform -> execute pipeline that
// runs them.
//
// The HTTP classification (2xx success, 4xx non-retryable, 5xx/network
// retryable) maps onto internal/apperr's error types. Unlike
// internal/httpx, which C5's document parser uses, it treats 429 like
// any other 4xx: not retryable.
package integration

import (
	"context"
	"time"

	"github.com/kadirpekel/voiceagent/internal/apperr"
)

const executionTimeout = 15 * time.Second

// Metadata describes a plugin to the UI/registry layer.
type Metadata struct {
	ID                string
	Name              string
	Description       string
	Category          string
	SupportedTriggers []string
	ConfigSchema      map[string]any
	Icon              string
	Version           string
	SetupInstructions string
}

// ValidationResult is the outcome of ValidateConfig.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ConnectionTestResult is the outcome of TestConnection.
type ConnectionTestResult struct {
	Success   bool
	Message   string
	LatencyMs int64
	Details   map[string]any
}

// ExecutionContext is the call/session data a plugin's payload is built
// from.
type ExecutionContext struct {
	CallID         string
	SessionID      string
	OrganizationID string
	AgentID        string
	Transcript     string
	Extracted      map[string]any
	AgentOutput    map[string]any
}

// ExecutionResult is the outcome of Execute.
type ExecutionResult struct {
	Success         bool
	Data            map[string]any
	ExecutionTimeMs int64
	Request         map[string]any
	Response        map[string]any
	Error           string
	Retryable       bool
}

// Plugin is the contract every integration implements.
type Plugin interface {
	Metadata() Metadata
	ValidateConfig(config map[string]any) ValidationResult
	TestConnection(ctx context.Context, config map[string]any) (ConnectionTestResult, error)
	TransformPayload(ctx ExecutionContext, config map[string]any) (map[string]any, error)
	Execute(ctx context.Context, execCtx ExecutionContext, config map[string]any) (ExecutionResult, error)
}

// Run executes a plugin's full validate -> transform -> execute
// pipeline. Validation failures never reach Execute.
func Run(ctx context.Context, p Plugin, execCtx ExecutionContext, config map[string]any) (ExecutionResult, error) {
	validation := p.ValidateConfig(config)
	if !validation.Valid {
		return ExecutionResult{Success: false, Error: "invalid configuration: " + joinErrors(validation.Errors)}, nil
	}

	execCtxWithDeadline, cancel := context.WithTimeout(ctx, executionTimeout)
	defer cancel()

	return p.Execute(execCtxWithDeadline, execCtx, config)
}

func joinErrors(errs []string) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e
	}
	return out
}

// ClassifyStatus maps an HTTP status code to the retry taxonomy
// plugins report through ExecutionResult.Retryable.
func ClassifyStatus(statusCode int) (success, retryable bool) {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return true, false
	case statusCode >= 400 && statusCode < 500:
		return false, false
	default:
		return false, true
	}
}

// ClassifyError maps a transport-level error (timeout, connection
// reset) to apperr's TransientNetworkError, always retryable.
func ClassifyError(operation string, err error) error {
	return apperr.NewTransientNetworkError(operation, err)
}
