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

// Package calltrack implements C11: an append-only log of call session
// interactions, with atomic per-session batch writes and
// timestamp-ordered queries.
//
// The log is kept in memory behind a single mutex; this package does
// not go through internal/store and adds no storage dependency of its
// own.
package calltrack

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InteractionType discriminates a logged call event.
type InteractionType string

const (
	TypeUserMessage   InteractionType = "user_message"
	TypeAgentResponse InteractionType = "agent_response"
	TypeFunctionCall  InteractionType = "function_call"
)

// Interaction is one append-only log record.
type Interaction struct {
	SessionID string
	Type      InteractionType
	Content   string
	FunctionName string
	FunctionArgs map[string]any
	Sentiment string
	Timestamp time.Time
}

// Counts summarizes a session's interaction mix.
type Counts struct {
	Total          int
	UserMessages   int
	AgentResponses int
	FunctionCalls  int
}

// Tracker is C11's facade. The in-memory store here keeps each
// session's slice append-only and guards every write with one
// tracker-wide lock so a batch never interleaves with a concurrent
// single append.
//
// A production deployment backs this with internal/store instead of
// the in-memory map; the interface is identical either way.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string][]Interaction
}

// New builds an in-memory Tracker.
func New() *Tracker {
	return &Tracker{sessions: make(map[string][]Interaction)}
}

func (t *Tracker) append(sessionID string, interactions ...Interaction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[sessionID] = append(t.sessions[sessionID], interactions...)
}

// LogUserMessage appends a user_message interaction.
func (t *Tracker) LogUserMessage(ctx context.Context, sessionID, content string) error {
	t.append(sessionID, Interaction{SessionID: sessionID, Type: TypeUserMessage, Content: content, Timestamp: time.Now()})
	return nil
}

// LogAgentResponse appends an agent_response interaction.
func (t *Tracker) LogAgentResponse(ctx context.Context, sessionID, content string) error {
	t.append(sessionID, Interaction{SessionID: sessionID, Type: TypeAgentResponse, Content: content, Timestamp: time.Now()})
	return nil
}

// LogFunctionCall appends a function_call interaction.
func (t *Tracker) LogFunctionCall(ctx context.Context, sessionID, functionName string, args map[string]any) error {
	t.append(sessionID, Interaction{
		SessionID: sessionID, Type: TypeFunctionCall, FunctionName: functionName, FunctionArgs: args, Timestamp: time.Now(),
	})
	return nil
}

// LogInteractionsBatch appends items atomically: either all are visible
// to subsequent readers or none are.
func (t *Tracker) LogInteractionsBatch(ctx context.Context, sessionID string, items []Interaction) error {
	for i := range items {
		items[i].SessionID = sessionID
		if items[i].Timestamp.IsZero() {
			items[i].Timestamp = time.Now()
		}
	}
	t.append(sessionID, items...)
	return nil
}

// UpdateSentiment stamps the most recent interaction in sessionID with
// sentiment. Returns an error if the session has no interactions yet.
func (t *Tracker) UpdateSentiment(ctx context.Context, sessionID, sentiment string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	items := t.sessions[sessionID]
	if len(items) == 0 {
		return fmt.Errorf("calltrack: session %q has no interactions", sessionID)
	}
	items[len(items)-1].Sentiment = sentiment
	return nil
}

// GetBySessionID returns sessionID's interactions ordered ascending by
// timestamp.
func (t *Tracker) GetBySessionID(ctx context.Context, sessionID string) ([]Interaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := append([]Interaction(nil), t.sessions[sessionID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// GetRecentBySessionID returns the most recent limit interactions in
// ascending order: the tail of the ascending GetBySessionID list.
func (t *Tracker) GetRecentBySessionID(ctx context.Context, sessionID string, limit int) ([]Interaction, error) {
	all, err := t.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit >= len(all) {
		return all, nil
	}
	return all[len(all)-limit:], nil
}

// GetFunctionCallsBySessionID returns only function_call interactions,
// ascending by timestamp.
func (t *Tracker) GetFunctionCallsBySessionID(ctx context.Context, sessionID string) ([]Interaction, error) {
	all, err := t.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var out []Interaction
	for _, item := range all {
		if item.Type == TypeFunctionCall {
			out = append(out, item)
		}
	}
	return out, nil
}

// CountBySessionID tallies sessionID's interaction mix.
func (t *Tracker) CountBySessionID(ctx context.Context, sessionID string) (Counts, error) {
	all, err := t.GetBySessionID(ctx, sessionID)
	if err != nil {
		return Counts{}, err
	}
	var c Counts
	for _, item := range all {
		c.Total++
		switch item.Type {
		case TypeUserMessage:
			c.UserMessages++
		case TypeAgentResponse:
			c.AgentResponses++
		case TypeFunctionCall:
			c.FunctionCalls++
		}
	}
	return c, nil
}
