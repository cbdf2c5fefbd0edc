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

// Package functionschema implements C15: the registry of per-organization
// dynamic tool schemas consumed by C12's tool execution layer.
//
// JSON Schema payloads are generated with invopop/jsonschema, the
// schema generator already in the module's dependency set, so a
// schema's Parameters field is built the same way the rest of the
// runtime derives function schemas from Go types.
package functionschema

import (
	"context"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/kadirpekel/voiceagent/internal/apperr"
)

// HandlerType discriminates how C12 dispatches a dynamic tool.
type HandlerType string

const (
	HandlerVectorSearch HandlerType = "vector_search"
	HandlerWebhook       HandlerType = "webhook"
	HandlerStatic        HandlerType = "static"
)

// HandlerConfig configures a dynamic tool's dispatch.
type HandlerConfig struct {
	WebhookURL     string
	WebhookHeaders map[string]string
	StaticResponse string
}

// Schema is one registered function, unique per (OrganizationID,
// FunctionName).
type Schema struct {
	ID             string
	OrganizationID string
	Domain         string
	FunctionName   string
	Description    string
	Parameters     *jsonschema.Schema
	Handler        HandlerType
	HandlerConfig  HandlerConfig
	Active         bool
}

// Registry is C15's facade, keyed by (organizationId, functionName).
type Registry struct {
	mu      sync.Mutex
	byOrg   map[string]map[string]*Schema // organizationId -> functionName -> schema
	nextID  int
}

// New builds an empty in-memory Registry.
func New() *Registry {
	return &Registry{byOrg: make(map[string]map[string]*Schema)}
}

// Create registers a new schema. Returns a ValidationError if
// (OrganizationID, FunctionName) already exists — use Upsert for
// idempotent writes.
func (r *Registry) Create(ctx context.Context, s Schema) (*Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.lookup(s.OrganizationID, s.FunctionName); exists {
		return nil, apperr.NewValidationError("functionName", fmt.Sprintf("%q already registered for organization %q", s.FunctionName, s.OrganizationID))
	}
	return r.store(s), nil
}

// Upsert idempotently creates or replaces the schema named by
// (s.OrganizationID, s.FunctionName).
func (r *Registry) Upsert(ctx context.Context, s Schema) (*Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.lookup(s.OrganizationID, s.FunctionName); ok && s.ID == "" {
		s.ID = existing.ID
	}
	return r.store(s), nil
}

func (r *Registry) store(s Schema) *Schema {
	if s.ID == "" {
		r.nextID++
		s.ID = fmt.Sprintf("fs_%d", r.nextID)
	}
	if r.byOrg[s.OrganizationID] == nil {
		r.byOrg[s.OrganizationID] = make(map[string]*Schema)
	}
	stored := s
	r.byOrg[s.OrganizationID][s.FunctionName] = &stored
	return &stored
}

func (r *Registry) lookup(organizationID, functionName string) (*Schema, bool) {
	fns, ok := r.byOrg[organizationID]
	if !ok {
		return nil, false
	}
	s, ok := fns[functionName]
	return s, ok
}

// ListByOrganization returns organizationID's schemas, optionally
// filtered to Active-only.
func (r *Registry) ListByOrganization(ctx context.Context, organizationID string, activeOnly bool) ([]*Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Schema
	for _, s := range r.byOrg[organizationID] {
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// ListByDomain returns every schema across organizations tagged with
// domain, active or not, backing the secondary by_domain index.
func (r *Registry) ListByDomain(ctx context.Context, domain string) ([]*Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Schema
	for _, fns := range r.byOrg {
		for _, s := range fns {
			if s.Domain == domain {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// ToggleActive flips a schema's active flag.
func (r *Registry) ToggleActive(ctx context.Context, organizationID, functionName string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.lookup(organizationID, functionName)
	if !ok {
		return apperr.NewNotFoundError("functionSchema", organizationID+"/"+functionName)
	}
	s.Active = active
	return nil
}

// Remove deletes a single schema.
func (r *Registry) Remove(ctx context.Context, organizationID, functionName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fns, ok := r.byOrg[organizationID]
	if !ok {
		return apperr.NewNotFoundError("functionSchema", organizationID+"/"+functionName)
	}
	delete(fns, functionName)
	return nil
}

// RemoveByOrganization deletes every schema for organizationID, used by
// C14's cascade delete.
func (r *Registry) RemoveByOrganization(ctx context.Context, organizationID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.byOrg[organizationID])
	delete(r.byOrg, organizationID)
	return n, nil
}
