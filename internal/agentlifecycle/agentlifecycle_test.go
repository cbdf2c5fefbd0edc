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

package agentlifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/voiceagent/internal/apperr"
	"github.com/kadirpekel/voiceagent/internal/vectorindex"
)

type fakeDeleter struct {
	counts map[string]int
	failAt string
}

func (f *fakeDeleter) DeleteByAgent(ctx context.Context, table, agentID string) (int, error) {
	if table == f.failAt {
		return 0, errors.New("boom")
	}
	return f.counts[table], nil
}

// fakeIndex embeds vectorindex.Index to satisfy the interface; the
// cascade only calls ClearNamespace, which it overrides.
type fakeIndex struct {
	vectorindex.Index
	cleared   string
	failClear bool
}

func (f *fakeIndex) ClearNamespace(ctx context.Context, namespace string) error {
	if f.failClear {
		return errors.New("index down")
	}
	f.cleared = namespace
	return nil
}

func TestCreateComputesDomainAndFullPrompt(t *testing.T) {
	svc := New(nil, nil, nil)
	agent, err := svc.Create(context.Background(), CreateInput{
		ID:           "a1",
		Name:         "Ava",
		Role:         "receptionist",
		SystemPrompt: "Help patients book appointments with their doctor.",
	})
	require.NoError(t, err)
	require.Equal(t, "healthcare", agent.Domain)
	require.Contains(t, agent.FullPrompt, "Ava")
	require.Contains(t, agent.FullPrompt, "Help patients book appointments")
}

func TestUpdateRebuildsFullPromptOnlyWhenSystemPromptChanges(t *testing.T) {
	svc := New(nil, nil, nil)
	agent, err := svc.Create(context.Background(), CreateInput{ID: "a1", Name: "Ava", Role: "agent", SystemPrompt: "original"})
	require.NoError(t, err)
	original := agent.FullPrompt
	originalUpdated := agent.UpdatedAt

	newName := "Ava2"
	updated, err := svc.Update(context.Background(), agent, UpdateInput{Name: &newName})
	require.NoError(t, err)
	require.Equal(t, original, updated.FullPrompt)
	require.Equal(t, originalUpdated, updated.UpdatedAt)

	newPrompt := "revised prompt"
	updated, err = svc.Update(context.Background(), updated, UpdateInput{SystemPrompt: &newPrompt})
	require.NoError(t, err)
	require.NotEqual(t, original, updated.FullPrompt)
	require.True(t, updated.UpdatedAt.After(originalUpdated) || updated.UpdatedAt.Equal(originalUpdated))
}

func TestCloneAssignsNewIDAndTimestamp(t *testing.T) {
	svc := New(nil, nil, nil)
	agent, err := svc.Create(context.Background(), CreateInput{ID: "a1", Name: "Ava", Role: "agent", SystemPrompt: "x"})
	require.NoError(t, err)

	clone := svc.Clone(context.Background(), agent, "a2")
	require.Equal(t, "a2", clone.ID)
	require.Equal(t, agent.FullPrompt, clone.FullPrompt)
	require.NotSame(t, agent, clone)
}

func TestDeleteAgentSumsCountsAcrossAllSteps(t *testing.T) {
	deleter := &fakeDeleter{counts: map[string]int{
		"callSessions":           2,
		"callInteractions":       5,
		"callMetrics":            1,
		"documents":              3,
		"chunks":                 10,
		"chunkAccessLog":         4,
		"ingestionSessions":      1,
		"deletedFiles":           0,
		"deletionQueue":          0,
		"agentIntegrations":      2,
		"integrationLogs":        6,
		"agentKnowledgeMetadata": 1,
		"agents":                 1,
	}}
	index := &fakeIndex{}
	svc := New(nil, index, deleter)

	result, err := svc.DeleteAgent(context.Background(), "a1")
	require.NoError(t, err)
	require.Equal(t, "a1", index.cleared)
	require.Equal(t, 36, result.Total)
	require.Equal(t, 1, result.PerTable["agents"])
}

func TestDeleteAgentStopsAtFailingStepAndReportsStepNumber(t *testing.T) {
	deleter := &fakeDeleter{counts: map[string]int{}, failAt: "chunks"}
	svc := New(nil, &fakeIndex{}, deleter)

	_, err := svc.DeleteAgent(context.Background(), "a1")
	require.Error(t, err)

	var integrityErr *apperr.IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	require.Equal(t, 5, integrityErr.Step)
	require.Equal(t, "chunks", integrityErr.StepName)
}

func TestDeleteAgentStopsAtVectorIndexStep(t *testing.T) {
	deleter := &fakeDeleter{counts: map[string]int{}}
	index := &fakeIndex{failClear: true}
	svc := New(nil, index, deleter)

	_, err := svc.DeleteAgent(context.Background(), "a1")
	require.Error(t, err)

	var integrityErr *apperr.IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	require.Equal(t, 12, integrityErr.Step)
}
