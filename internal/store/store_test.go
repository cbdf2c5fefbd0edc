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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/voiceagent/internal/agentconfig"
	"github.com/kadirpekel/voiceagent/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	pool := NewPool(nil)
	t.Cleanup(func() { _ = pool.Close() })

	cfg := config.DatabaseConfig{Driver: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared"}
	db, err := pool.Get(cfg)
	require.NoError(t, err)

	_, err = db.ExecContext(context.Background(), `CREATE TABLE agents (
		id TEXT PRIMARY KEY,
		name TEXT,
		role TEXT,
		system_prompt TEXT,
		full_prompt TEXT,
		business_type TEXT,
		domain TEXT,
		updated_at TEXT
	)`)
	require.NoError(t, err)

	s, err := Open(pool, cfg)
	require.NoError(t, err)
	return s
}

func TestMutationInsertsThenUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Mutation(ctx, agentsTable, "id", Row{"id": "a1", "name": "First"})
	require.NoError(t, err)

	rows, err := s.Query(ctx, agentsTable, Row{"id": "a1"}, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	err = s.Mutation(ctx, agentsTable, "id", Row{"id": "a1", "name": "Updated"})
	require.NoError(t, err)

	rows, err = s.Query(ctx, agentsTable, Row{"id": "a1"}, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Updated", stringField(rows[0], "name"))
}

func TestActionDeleteWhereRequiresFilter(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Action(context.Background(), agentsTable, "delete_where", Row{})
	require.Error(t, err)
}

func TestAgentStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	adapter := NewAgentStore(s)
	ctx := context.Background()

	err := adapter.UpsertAgent(ctx, &agentconfig.Agent{
		ID:         "a1",
		Name:       "Support Bot",
		FullPrompt: "full prompt text",
		UpdatedAt:  time.Now(),
	})
	require.NoError(t, err)

	agent, err := adapter.GetAgent(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, agent)
	require.Equal(t, "Support Bot", agent.Name)
}
