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

// Package agentconfig implements C9: a three-tier cache over an agent's
// configuration and its denormalized full prompt, plus domain
// auto-detection from the agent's own fields.
//
// Follows pkg/rag's layered-cache shape (short-TTL LRU in front of a
// slower backing store) using hashicorp/golang-lru/v2, the same
// library the tokenizer (C1) and voice knowledge service (C8) caches
// already depend on.
package agentconfig

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	agentCacheTTL = 60 * time.Second
	promptCacheTTL = 10 * time.Minute
)

// PromptSource reports where a full prompt was resolved from.
type PromptSource string

const (
	SourceRAM      PromptSource = "ram"
	SourceDB       PromptSource = "db"
	SourceNotFound PromptSource = "not_found"
	SourceMissing  PromptSource = "missing" // fullPrompt absent, systemPrompt used instead
)

// Agent is the subset of agent fields this service reasons about.
type Agent struct {
	ID            string
	Name          string
	Role          string
	SystemPrompt  string
	FullPrompt    string
	BusinessType  string
	Domain        string
	UpdatedAt     time.Time
}

// Store is the backing persistence surface this service caches in
// front of. A real implementation is backed by internal/store; tests
// supply an in-memory double.
type Store interface {
	GetAgent(ctx context.Context, agentID string) (*Agent, error)
}

// CachedPrompt is the result of getCachedFullPrompt.
type CachedPrompt struct {
	Prompt    string
	Source    PromptSource
	LatencyMs int64
}

type agentCacheEntry struct {
	agent *Agent
	at    time.Time
}

type promptCacheEntry struct {
	prompt string
	at     time.Time
}

// Service is C9's facade.
type Service struct {
	store Store

	mu           sync.Mutex
	agentCache   *lru.Cache[string, agentCacheEntry]
	promptCache  *lru.Cache[string, promptCacheEntry]
}

// New builds a Service backed by store.
func New(store Store, agentCacheSize, promptCacheSize int) (*Service, error) {
	if agentCacheSize <= 0 {
		agentCacheSize = 256
	}
	if promptCacheSize <= 0 {
		promptCacheSize = 256
	}
	ac, err := lru.New[string, agentCacheEntry](agentCacheSize)
	if err != nil {
		return nil, fmt.Errorf("agentconfig: agent cache: %w", err)
	}
	pc, err := lru.New[string, promptCacheEntry](promptCacheSize)
	if err != nil {
		return nil, fmt.Errorf("agentconfig: prompt cache: %w", err)
	}
	return &Service{store: store, agentCache: ac, promptCache: pc}, nil
}

// GetAgent returns agentID's configuration, served from the 60 s LRU
// when fresh, else reloaded from the store.
func (s *Service) GetAgent(ctx context.Context, agentID string) (*Agent, error) {
	s.mu.Lock()
	if entry, ok := s.agentCache.Get(agentID); ok && time.Since(entry.at) < agentCacheTTL {
		s.mu.Unlock()
		return entry.agent, nil
	}
	s.mu.Unlock()

	agent, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.agentCache.Add(agentID, agentCacheEntry{agent: agent, at: time.Now()})
	s.mu.Unlock()

	return agent, nil
}

// Invalidate drops agentID from both caches, used after a write so the
// next read doesn't serve a stale agent or prompt.
func (s *Service) Invalidate(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agentCache.Remove(agentID)
	for _, key := range s.promptCache.Keys() {
		if strings.HasPrefix(key, agentID+":") {
			s.promptCache.Remove(key)
		}
	}
}

// GetCachedFullPrompt resolves agentID's full prompt through a
// version-keyed 10-minute cache in front of the agent's
// denormalized fullPrompt field, falling back to systemPrompt with
// source="missing" when fullPrompt hasn't been backfilled, and
// source="not_found" when the agent itself doesn't exist.
func (s *Service) GetCachedFullPrompt(ctx context.Context, agentID string) (CachedPrompt, error) {
	start := time.Now()

	agent, err := s.GetAgent(ctx, agentID)
	if err != nil {
		return CachedPrompt{Source: SourceNotFound, LatencyMs: time.Since(start).Milliseconds()}, nil
	}
	if agent == nil {
		return CachedPrompt{Source: SourceNotFound, LatencyMs: time.Since(start).Milliseconds()}, nil
	}

	versionKey := agentID + ":" + agent.UpdatedAt.Format(time.RFC3339Nano)

	s.mu.Lock()
	if entry, ok := s.promptCache.Get(versionKey); ok && time.Since(entry.at) < promptCacheTTL {
		s.mu.Unlock()
		return CachedPrompt{Prompt: entry.prompt, Source: SourceRAM, LatencyMs: time.Since(start).Milliseconds()}, nil
	}
	s.mu.Unlock()

	if agent.FullPrompt == "" {
		return CachedPrompt{
			Prompt:    agent.SystemPrompt,
			Source:    SourceMissing,
			LatencyMs: time.Since(start).Milliseconds(),
		}, nil
	}

	s.mu.Lock()
	s.promptCache.Add(versionKey, promptCacheEntry{prompt: agent.FullPrompt, at: time.Now()})
	s.mu.Unlock()

	return CachedPrompt{Prompt: agent.FullPrompt, Source: SourceDB, LatencyMs: time.Since(start).Milliseconds()}, nil
}
