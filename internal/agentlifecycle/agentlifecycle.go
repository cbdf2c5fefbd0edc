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

// Package agentlifecycle implements C14: agent create/update/clone, and
// the ordered, resumable cascade delete that tears an agent and every
// dependent row back down.
//
// The step-numbered, partial-failure-tolerant delete sequence follows
// the same "log enough to resume" posture internal/apperr's
// IntegrityError was built for; each step's own NotFound/transient
// errors are classified the same way C5's document parser classifies
// them.
package agentlifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/kadirpekel/voiceagent/internal/agentconfig"
	"github.com/kadirpekel/voiceagent/internal/apperr"
	"github.com/kadirpekel/voiceagent/internal/vectorindex"
)

// TableDeleter deletes every row in a table scoped to agentID, returning
// the count removed. Backed by internal/store's Action("delete_where")
// in production; tests supply an in-memory double.
type TableDeleter interface {
	DeleteByAgent(ctx context.Context, table, agentID string) (int, error)
}

// cascadeTables is the fixed, ordered delete sequence: children before
// parents, so a crash mid-delete never orphans a row. Indexed deletes
// only — no full scans.
var cascadeTables = []string{
	"callSessions",
	"callInteractions",
	"callMetrics",
	"documents",
	"chunks",
	"chunkAccessLog",
	"ingestionSessions",
	"deletedFiles",
	"deletionQueue",
	"agentIntegrations",
	"integrationLogs",
	// step 12 is C7.clearNamespace, not a table delete — handled inline below
	"agentKnowledgeMetadata",
}

// DeleteResult reports per-step outcome for DeleteAgent.
type DeleteResult struct {
	PerTable map[string]int
	Total    int
}

// Service is C14's facade.
type Service struct {
	agents  *agentconfig.Service
	index   vectorindex.Index
	deleter TableDeleter
}

// New builds a Service.
func New(agents *agentconfig.Service, index vectorindex.Index, deleter TableDeleter) *Service {
	return &Service{agents: agents, index: index, deleter: deleter}
}

// CreateInput is the payload for Create.
type CreateInput struct {
	ID           string
	Name         string
	Role         string
	SystemPrompt string
	BusinessType string
	Domain       string
}

// Create builds a new agent, computing its domain and full prompt.
func (s *Service) Create(ctx context.Context, in CreateInput) (*agentconfig.Agent, error) {
	agent := &agentconfig.Agent{
		ID:           in.ID,
		Name:         in.Name,
		Role:         in.Role,
		SystemPrompt: in.SystemPrompt,
		BusinessType: in.BusinessType,
		Domain:       in.Domain,
		UpdatedAt:    time.Now(),
	}
	agent.Domain = agentconfig.ResolveDomain(agent)
	agent.FullPrompt = buildFullPrompt(agent)
	return agent, nil
}

// UpdateInput is the payload for Update; a zero-value field leaves the
// existing value unchanged.
type UpdateInput struct {
	Name         *string
	Role         *string
	SystemPrompt *string
	BusinessType *string
	Status       *string
}

// Update applies in to agent, rebuilding FullPrompt and bumping
// UpdatedAt whenever SystemPrompt changes.
func (s *Service) Update(ctx context.Context, agent *agentconfig.Agent, in UpdateInput) (*agentconfig.Agent, error) {
	if in.Name != nil {
		agent.Name = *in.Name
	}
	if in.Role != nil {
		agent.Role = *in.Role
	}
	if in.BusinessType != nil {
		agent.BusinessType = *in.BusinessType
	}
	if in.SystemPrompt != nil && *in.SystemPrompt != agent.SystemPrompt {
		agent.SystemPrompt = *in.SystemPrompt
		agent.FullPrompt = buildFullPrompt(agent)
		agent.UpdatedAt = time.Now()
	}
	if s.agents != nil {
		s.agents.Invalidate(agent.ID)
	}
	return agent, nil
}

// Clone copies agent under a new ID, keeping its FullPrompt and stamping
// a fresh UpdatedAt so its version-keyed prompt cache entry is
// independent of the original.
func (s *Service) Clone(ctx context.Context, agent *agentconfig.Agent, newID string) *agentconfig.Agent {
	clone := *agent
	clone.ID = newID
	clone.UpdatedAt = time.Now()
	return &clone
}

func buildFullPrompt(agent *agentconfig.Agent) string {
	return fmt.Sprintf("You are %s, a %s assistant for the %s domain.\n\n%s", agent.Name, agent.Role, agent.Domain, agent.SystemPrompt)
}

// DeleteAgent runs the 14-step cascade delete,
// stopping at (and returning) the first step's error so the caller can
// see exactly how far the delete progressed and resume from there.
func (s *Service) DeleteAgent(ctx context.Context, agentID string) (DeleteResult, error) {
	result := DeleteResult{PerTable: make(map[string]int)}

	for i, table := range cascadeTables[:11] {
		n, err := s.deleter.DeleteByAgent(ctx, table, agentID)
		if err != nil {
			return result, apperr.NewIntegrityError("deleteAgent", i+1, table, err)
		}
		result.PerTable[table] = n
		result.Total += n
	}

	if s.index != nil {
		if err := s.index.ClearNamespace(ctx, agentID); err != nil {
			return result, apperr.NewIntegrityError("deleteAgent", 12, "vectorIndex", err)
		}
	}

	n, err := s.deleter.DeleteByAgent(ctx, "agentKnowledgeMetadata", agentID)
	if err != nil {
		return result, apperr.NewIntegrityError("deleteAgent", 13, "agentKnowledgeMetadata", err)
	}
	result.PerTable["agentKnowledgeMetadata"] = n
	result.Total += n

	n, err = s.deleter.DeleteByAgent(ctx, "agents", agentID)
	if err != nil {
		return result, apperr.NewIntegrityError("deleteAgent", 14, "agents", err)
	}
	result.PerTable["agents"] = n
	result.Total += n

	return result, nil
}
