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

// Package toolexec implements C12: the ToolContext a voice agent calls
// into during a turn, built from a fixed set of built-in tools plus any
// per-organization dynamic tools assembled from C15 schemas.
//
// Follows pkg/tool's Name/Description/Schema/execute shape, narrowed
// from its CallableTool/StreamingTool/Toolset hierarchy down to the
// single synchronous Execute signature this runtime's turn loop needs.
package toolexec

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kadirpekel/voiceagent/internal/calltrack"
	"github.com/kadirpekel/voiceagent/internal/functionschema"
	"github.com/kadirpekel/voiceagent/internal/voiceknowledge"
)

// Result mirrors pkg/tool.ToolResult's success/error/data shape.
type Result struct {
	Success bool
	Result  string
	Error   string
	Data    map[string]any
}

// CallContext carries the per-call state a tool execution needs:
// session identity for logging and an optional shutdown hook for
// end_call.
type CallContext struct {
	SessionID      string
	OrganizationID string
	AgentID        string
	Namespace      string
	ShutdownFunc   func()
}

// Tool is one entry in a ToolContext.
type Tool struct {
	Description string
	Parameters  map[string]any
	Execute     func(ctx context.Context, args map[string]any, callCtx CallContext) (Result, error)
}

// ToolContext is the name->Tool map a turn's function-calling loop
// dispatches against.
type ToolContext map[string]Tool

// Builder assembles a ToolContext from the built-in tools plus any
// dynamic tools registered for an organization.
type Builder struct {
	knowledge *voiceknowledge.Service
	tracker   *calltrack.Tracker
	schemas   *functionschema.Registry
	httpClient *http.Client
}

// NewBuilder wires the services C12's built-in and dynamic tools call
// into.
func NewBuilder(knowledge *voiceknowledge.Service, tracker *calltrack.Tracker, schemas *functionschema.Registry) *Builder {
	return &Builder{knowledge: knowledge, tracker: tracker, schemas: schemas, httpClient: &http.Client{Timeout: 15 * time.Second}}
}

// Build assembles the full ToolContext for organizationID: the
// built-ins plus every active dynamic schema registered for it.
func (b *Builder) Build(ctx context.Context, organizationID string) (ToolContext, error) {
	tc := ToolContext{}
	for name, tool := range b.builtins() {
		tc[name] = tool
	}

	schemas, err := b.schemas.ListByOrganization(ctx, organizationID, true)
	if err != nil {
		return nil, err
	}
	for _, s := range schemas {
		tc[s.FunctionName] = b.dynamicTool(s)
	}
	return tc, nil
}

func (b *Builder) builtins() ToolContext {
	return ToolContext{
		"search_knowledge":  b.searchKnowledgeTool(),
		"get_information":   b.getInformationTool(),
		"get_business_info": b.getBusinessInfoTool(),
		"transfer_call":     b.transferCallTool(),
		"end_call":          b.endCallTool(),
	}
}

func (b *Builder) logAndExecute(ctx context.Context, callCtx CallContext, name string, args map[string]any, fn func() (Result, error)) (Result, error) {
	result, err := fn()
	if logErr := b.tracker.LogFunctionCall(ctx, callCtx.SessionID, name, args); logErr != nil {
		return result, err
	}
	return result, err
}

func (b *Builder) searchKnowledgeTool() Tool {
	return Tool{
		Description: "Search the agent's knowledge base for an answer to a question.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]any, callCtx CallContext) (Result, error) {
			return b.logAndExecute(ctx, callCtx, "search_knowledge", args, func() (Result, error) {
				query, _ := args["query"].(string)
				resp, err := b.knowledge.Search(ctx, callCtx.Namespace, query, 0, voiceknowledge.SearchConfig{})
				if err != nil {
					// RAG failure is graceful: never a hard tool error.
					return Result{Success: true, Result: "I couldn't find specific information about that."}, nil
				}
				return Result{Success: true, Result: resp.Text}, nil
			})
		},
	}
}

func (b *Builder) getInformationTool() Tool {
	return Tool{
		Description: "Search the knowledge base and return both the spoken answer and its supporting context.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]any, callCtx CallContext) (Result, error) {
			return b.logAndExecute(ctx, callCtx, "get_information", args, func() (Result, error) {
				query, _ := args["query"].(string)
				resp, text, err := b.knowledge.SearchWithContext(ctx, callCtx.Namespace, query, 0, voiceknowledge.SearchConfig{})
				if err != nil {
					return Result{Success: true, Result: "I couldn't find specific information about that."}, nil
				}
				return Result{Success: true, Result: resp.Text, Data: map[string]any{"context": text}}, nil
			})
		},
	}
}

func (b *Builder) getBusinessInfoTool() Tool {
	return Tool{
		Description: "Get a category of business information: hours, location, contact, policies, features, or general.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"info_type": map[string]any{
					"type": "string",
					"enum": []string{"hours", "location", "contact", "policies", "features", "general"},
				},
			},
			"required": []string{"info_type"},
		},
		Execute: func(ctx context.Context, args map[string]any, callCtx CallContext) (Result, error) {
			return b.logAndExecute(ctx, callCtx, "get_business_info", args, func() (Result, error) {
				infoType, _ := args["info_type"].(string)
				switch voiceknowledge.BusinessInfoType(infoType) {
				case voiceknowledge.InfoHours, voiceknowledge.InfoLocation, voiceknowledge.InfoContact,
					voiceknowledge.InfoPolicies, voiceknowledge.InfoFeatures, voiceknowledge.InfoGeneral:
				default:
					return Result{Success: false, Error: fmt.Sprintf("unknown info_type %q", infoType)}, nil
				}
				resp, err := b.knowledge.GetBusinessInfo(ctx, callCtx.OrganizationID, callCtx.Namespace, voiceknowledge.BusinessInfoType(infoType))
				if err != nil {
					return Result{Success: true, Result: "I couldn't find specific information about that."}, nil
				}
				return Result{Success: true, Result: resp.Text}, nil
			})
		},
	}
}

func (b *Builder) transferCallTool() Tool {
	return Tool{
		Description: "Transfer the call to a human department.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"department": map[string]any{"type": "string"},
				"reason":     map[string]any{"type": "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any, callCtx CallContext) (Result, error) {
			return b.logAndExecute(ctx, callCtx, "transfer_call", args, func() (Result, error) {
				department, _ := args["department"].(string)
				if department == "" {
					department = "the appropriate department"
				}
				return Result{Success: true, Result: fmt.Sprintf("One moment, I'm transferring you to %s now.", department)}, nil
			})
		},
	}
}

func (b *Builder) endCallTool() Tool {
	return Tool{
		Description: "End the call after a farewell message finishes playing.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"reason": map[string]any{"type": "string"}},
		},
		Execute: func(ctx context.Context, args map[string]any, callCtx CallContext) (Result, error) {
			return b.logAndExecute(ctx, callCtx, "end_call", args, func() (Result, error) {
				if callCtx.ShutdownFunc == nil {
					return Result{Success: true, Result: "Goodbye."}, nil
				}
				time.AfterFunc(3*time.Second, callCtx.ShutdownFunc)
				return Result{Success: true, Result: "Goodbye, have a great day!"}, nil
			})
		},
	}
}

// dynamicTool assembles a Tool from a C15 schema, dispatching on its
// HandlerType.
func (b *Builder) dynamicTool(s *functionschema.Schema) Tool {
	params := map[string]any{}
	if s.Parameters != nil {
		raw, err := json.Marshal(s.Parameters)
		if err == nil {
			_ = json.Unmarshal(raw, &params)
		}
	}

	return Tool{
		Description: s.Description,
		Parameters:  params,
		Execute: func(ctx context.Context, args map[string]any, callCtx CallContext) (Result, error) {
			return b.logAndExecute(ctx, callCtx, s.FunctionName, args, func() (Result, error) {
				switch s.Handler {
				case functionschema.HandlerVectorSearch:
					query, _ := args["query"].(string)
					resp, err := b.knowledge.Search(ctx, callCtx.Namespace, query, 0, voiceknowledge.SearchConfig{})
					if err != nil {
						return Result{Success: true, Result: "I couldn't find specific information about that."}, nil
					}
					return Result{Success: true, Result: resp.Text}, nil
				case functionschema.HandlerWebhook:
					return b.invokeWebhook(ctx, s, args, callCtx)
				case functionschema.HandlerStatic:
					return Result{Success: true, Result: s.HandlerConfig.StaticResponse}, nil
				default:
					return Result{Success: false, Error: fmt.Sprintf("unknown handler type %q", s.Handler)}, nil
				}
			})
		},
	}
}
