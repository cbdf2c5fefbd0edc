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

package store

import (
	"context"
	"fmt"

	"github.com/kadirpekel/voiceagent/internal/agentconfig"
)

const agentsTable = "agents"

// AgentStore adapts Store's generic Query/Mutation to
// agentconfig.Store, the narrow interface the prompt-cache service
// depends on.
type AgentStore struct {
	store *Store
}

// NewAgentStore wraps store for agentconfig consumption.
func NewAgentStore(store *Store) *AgentStore {
	return &AgentStore{store: store}
}

// GetAgent implements agentconfig.Store.
func (a *AgentStore) GetAgent(ctx context.Context, agentID string) (*agentconfig.Agent, error) {
	rows, err := a.store.Query(ctx, agentsTable, Row{"id": agentID}, "")
	if err != nil {
		return nil, fmt.Errorf("store: get agent %s: %w", agentID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToAgent(rows[0]), nil
}

// UpsertAgent writes agent's fields to the agents table, keyed by ID.
func (a *AgentStore) UpsertAgent(ctx context.Context, agent *agentconfig.Agent) error {
	return a.store.Mutation(ctx, agentsTable, "id", agentToRow(agent))
}

func rowToAgent(r Row) *agentconfig.Agent {
	return &agentconfig.Agent{
		ID:           stringField(r, "id"),
		Name:         stringField(r, "name"),
		Role:         stringField(r, "role"),
		SystemPrompt: stringField(r, "system_prompt"),
		FullPrompt:   stringField(r, "full_prompt"),
		BusinessType: stringField(r, "business_type"),
		Domain:       stringField(r, "domain"),
		UpdatedAt:    ParseTime(r["updated_at"]),
	}
}

func agentToRow(agent *agentconfig.Agent) Row {
	return Row{
		"id":            agent.ID,
		"name":          agent.Name,
		"role":          agent.Role,
		"system_prompt": agent.SystemPrompt,
		"full_prompt":   agent.FullPrompt,
		"business_type": agent.BusinessType,
		"domain":        agent.Domain,
		"updated_at":    agent.UpdatedAt,
	}
}

func stringField(r Row, key string) string {
	if v, ok := r[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		if b, ok := v.([]byte); ok {
			return string(b)
		}
	}
	return ""
}
