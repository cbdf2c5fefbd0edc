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

// Package dbrpc exposes internal/store's query/mutation/action surface
// as an HTTP/JSON RPC façade, so a deployment can swap
// Postgres/MySQL/SQLite without touching callers.
//
// Routing follows pkg/transport's chi-based mounting style
// (http_metrics_middleware.go's wrapped-ResponseWriter plus
// per-route logging), trimmed to this repo's three verbs instead of
// a full A2A/gRPC gateway.
package dbrpc

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/voiceagent/internal/store"
)

// Server mounts /tables/{table}/query|mutation|action against a Store.
type Server struct {
	store  *store.Store
	logger *slog.Logger
}

// New builds a Server over s.
func New(s *store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: s, logger: logger}
}

// Routes mounts the RPC surface onto r.
func (s *Server) Routes(r chi.Router) {
	r.Route("/tables/{table}", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Post("/mutation", s.handleMutation)
		r.Post("/action", s.handleAction)
	})
}

type queryRequest struct {
	Args    store.Row `json:"args"`
	OrderBy string    `json:"orderBy"`
}

type mutationRequest struct {
	KeyColumn string    `json:"keyColumn"`
	Values    store.Row `json:"values"`
}

type actionRequest struct {
	Action string    `json:"action"`
	Args   store.Row `json:"args"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	rows, err := s.store.Query(r.Context(), table, req.Args, req.OrderBy)
	s.logCall("query", table, start, err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleMutation(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	err := s.store.Mutation(r.Context(), table, req.KeyColumn, req.Values)
	s.logCall("mutation", table, start, err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	result, err := s.store.Action(r.Context(), table, req.Action, req.Args)
	s.logCall("action:"+req.Action, table, start, err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) logCall(op, table string, start time.Time, err error) {
	if err != nil {
		s.logger.Warn("dbrpc call failed", "op", op, "table", table, "duration", time.Since(start), "error", err)
		return
	}
	s.logger.Debug("dbrpc call", "op", op, "table", table, "duration", time.Since(start))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
