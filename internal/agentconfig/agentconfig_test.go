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

package agentconfig

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	calls  int
	agents map[string]*Agent
}

func (f *fakeStore) GetAgent(ctx context.Context, agentID string) (*Agent, error) {
	f.calls++
	a, ok := f.agents[agentID]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func TestGetAgentServesFromCacheWithinTTL(t *testing.T) {
	store := &fakeStore{agents: map[string]*Agent{"a1": {ID: "a1", Name: "Agent One"}}}
	svc, err := New(store, 8, 8)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.GetAgent(ctx, "a1")
	require.NoError(t, err)
	_, err = svc.GetAgent(ctx, "a1")
	require.NoError(t, err)

	require.Equal(t, 1, store.calls)
}

func TestGetCachedFullPromptMissingSourceWhenFullPromptAbsent(t *testing.T) {
	store := &fakeStore{agents: map[string]*Agent{
		"a1": {ID: "a1", SystemPrompt: "be helpful", UpdatedAt: time.Now()},
	}}
	svc, err := New(store, 8, 8)
	require.NoError(t, err)

	result, err := svc.GetCachedFullPrompt(context.Background(), "a1")
	require.NoError(t, err)
	require.Equal(t, SourceMissing, result.Source)
	require.Equal(t, "be helpful", result.Prompt)
}

func TestGetCachedFullPromptNotFoundForUnknownAgent(t *testing.T) {
	store := &fakeStore{agents: map[string]*Agent{}}
	svc, err := New(store, 8, 8)
	require.NoError(t, err)

	result, err := svc.GetCachedFullPrompt(context.Background(), "ghost")
	require.NoError(t, err)
	require.Equal(t, SourceNotFound, result.Source)
}

func TestGetCachedFullPromptDBThenRAM(t *testing.T) {
	store := &fakeStore{agents: map[string]*Agent{
		"a1": {ID: "a1", FullPrompt: "full system prompt text", UpdatedAt: time.Now()},
	}}
	svc, err := New(store, 8, 8)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.GetCachedFullPrompt(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, SourceDB, first.Source)

	second, err := svc.GetCachedFullPrompt(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, SourceRAM, second.Source)
	require.Equal(t, first.Prompt, second.Prompt)
}

func TestInvalidateDropsBothCaches(t *testing.T) {
	store := &fakeStore{agents: map[string]*Agent{
		"a1": {ID: "a1", FullPrompt: "full prompt", UpdatedAt: time.Now()},
	}}
	svc, err := New(store, 8, 8)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.GetCachedFullPrompt(ctx, "a1")
	require.NoError(t, err)
	svc.Invalidate("a1")

	_, err = svc.GetAgent(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 2, store.calls)
}

func TestDetectDomainHealthcare(t *testing.T) {
	domain := DetectDomain("Clinic Assistant", "receptionist", "Help patients book doctor appointments", "")
	require.Equal(t, DomainHealthcare, domain)
}

func TestDetectDomainDefaultsGeneral(t *testing.T) {
	domain := DetectDomain("Assistant", "", "", "")
	require.Equal(t, DomainGeneral, domain)
}

func TestResolveDomainPrefersExplicitValue(t *testing.T) {
	agent := &Agent{Domain: "custom"}
	require.Equal(t, "custom", ResolveDomain(agent))
}
