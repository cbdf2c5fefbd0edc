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

// Package metrics provides Prometheus instrumentation for the voice
// runtime, grouped the same way pkg/observability groups Hector's
// agent/llm/tool/memory/http families — here the families are call
// sessions, STT streams, knowledge search, tool execution, integration
// dispatch, ingestion, and cascade delete.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: every Record/Set/Inc method is a no-op on a nil
// receiver so callers can wire it unconditionally and skip it entirely
// when metrics are disabled.
type Metrics struct {
	registry *prometheus.Registry

	sttStreamsActive   *prometheus.GaugeVec
	sttReconnects      *prometheus.CounterVec
	sttSessionDuration *prometheus.HistogramVec

	knowledgeSearches     *prometheus.CounterVec
	knowledgeSearchDur    *prometheus.HistogramVec
	knowledgeColdResults  *prometheus.CounterVec
	knowledgeCacheHits    *prometheus.CounterVec

	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	toolErrors       *prometheus.CounterVec

	integrationRuns     *prometheus.CounterVec
	integrationDuration *prometheus.HistogramVec
	integrationRetries  *prometheus.CounterVec

	ingestionDocs     *prometheus.CounterVec
	ingestionChunks   *prometheus.CounterVec
	ingestionDuration *prometheus.HistogramVec

	cascadeDeletes     *prometheus.CounterVec
	cascadeRowsDeleted *prometheus.CounterVec

	callSessionsActive *prometheus.GaugeVec
	callInteractions   *prometheus.CounterVec
}

// New builds a Metrics instance registered against a fresh registry.
func New(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.initSTT(namespace)
	m.initKnowledge(namespace)
	m.initTool(namespace)
	m.initIntegration(namespace)
	m.initIngestion(namespace)
	m.initCascade(namespace)
	m.initCallTrack(namespace)
	return m
}

func (m *Metrics) initSTT(ns string) {
	m.sttStreamsActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns, Subsystem: "stt", Name: "streams_active", Help: "Number of open STT streaming connections",
	}, []string{"language"})
	m.sttReconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "stt", Name: "reconnects_total", Help: "Total STT stream reconnection attempts",
	}, []string{"outcome"})
	m.sttSessionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "stt", Name: "session_duration_seconds", Help: "STT streaming session duration",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"language"})
	m.registry.MustRegister(m.sttStreamsActive, m.sttReconnects, m.sttSessionDuration)
}

func (m *Metrics) initKnowledge(ns string) {
	m.knowledgeSearches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "knowledge", Name: "searches_total", Help: "Total voice knowledge searches",
	}, []string{"namespace"})
	m.knowledgeSearchDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "knowledge", Name: "search_duration_seconds", Help: "Knowledge search latency",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"namespace"})
	m.knowledgeColdResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "knowledge", Name: "cold_results_total", Help: "Searches exceeding the cold-result latency threshold",
	}, []string{"namespace"})
	m.knowledgeCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "knowledge", Name: "cache_hits_total", Help: "Result-cache hits by cache kind",
	}, []string{"cache"})
	m.registry.MustRegister(m.knowledgeSearches, m.knowledgeSearchDur, m.knowledgeColdResults, m.knowledgeCacheHits)
}

func (m *Metrics) initTool(ns string) {
	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "tool", Name: "calls_total", Help: "Total tool invocations",
	}, []string{"tool_name"})
	m.toolCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "tool", Name: "call_duration_seconds", Help: "Tool execution duration",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
	}, []string{"tool_name"})
	m.toolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "tool", Name: "errors_total", Help: "Total tool errors",
	}, []string{"tool_name"})
	m.registry.MustRegister(m.toolCalls, m.toolCallDuration, m.toolErrors)
}

func (m *Metrics) initIntegration(ns string) {
	m.integrationRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "integration", Name: "runs_total", Help: "Total integration plugin executions",
	}, []string{"plugin", "outcome"})
	m.integrationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "integration", Name: "duration_seconds", Help: "Integration execution duration",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"plugin"})
	m.integrationRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "integration", Name: "retries_total", Help: "Total integration retry attempts",
	}, []string{"plugin"})
	m.registry.MustRegister(m.integrationRuns, m.integrationDuration, m.integrationRetries)
}

func (m *Metrics) initIngestion(ns string) {
	m.ingestionDocs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "ingestion", Name: "documents_total", Help: "Total documents processed by ingestion",
	}, []string{"outcome"})
	m.ingestionChunks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "ingestion", Name: "chunks_total", Help: "Total chunks produced by ingestion",
	}, []string{"outcome"})
	m.ingestionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "ingestion", Name: "duration_seconds", Help: "Per-document ingestion duration",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"source_type"})
	m.registry.MustRegister(m.ingestionDocs, m.ingestionChunks, m.ingestionDuration)
}

func (m *Metrics) initCascade(ns string) {
	m.cascadeDeletes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "cascade", Name: "deletes_total", Help: "Total cascade-delete runs by outcome",
	}, []string{"outcome"})
	m.cascadeRowsDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "cascade", Name: "rows_deleted_total", Help: "Total rows removed by cascade delete, per table",
	}, []string{"table"})
	m.registry.MustRegister(m.cascadeDeletes, m.cascadeRowsDeleted)
}

func (m *Metrics) initCallTrack(ns string) {
	m.callSessionsActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns, Subsystem: "call", Name: "sessions_active", Help: "Number of currently tracked call sessions",
	}, []string{"agent_id"})
	m.callInteractions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "call", Name: "interactions_total", Help: "Total logged call interactions",
	}, []string{"type"})
	m.registry.MustRegister(m.callSessionsActive, m.callInteractions)
}

// RecordSTTReconnect records a reconnect attempt outcome ("ok" or "exhausted").
func (m *Metrics) RecordSTTReconnect(outcome string) {
	if m == nil {
		return
	}
	m.sttReconnects.WithLabelValues(outcome).Inc()
}

// SetSTTStreamsActive sets the open-stream gauge for language.
func (m *Metrics) SetSTTStreamsActive(language string, count int) {
	if m == nil {
		return
	}
	m.sttStreamsActive.WithLabelValues(language).Set(float64(count))
}

// ObserveSTTSessionDuration records a completed streaming session's length.
func (m *Metrics) ObserveSTTSessionDuration(language string, d time.Duration) {
	if m == nil {
		return
	}
	m.sttSessionDuration.WithLabelValues(language).Observe(d.Seconds())
}

// RecordKnowledgeSearch records a voice knowledge search.
func (m *Metrics) RecordKnowledgeSearch(namespace string, d time.Duration, cold bool) {
	if m == nil {
		return
	}
	m.knowledgeSearches.WithLabelValues(namespace).Inc()
	m.knowledgeSearchDur.WithLabelValues(namespace).Observe(d.Seconds())
	if cold {
		m.knowledgeColdResults.WithLabelValues(namespace).Inc()
	}
}

// RecordKnowledgeCacheHit records a result or business-info cache hit.
func (m *Metrics) RecordKnowledgeCacheHit(cache string) {
	if m == nil {
		return
	}
	m.knowledgeCacheHits.WithLabelValues(cache).Inc()
}

// RecordToolCall records a tool invocation and its duration.
func (m *Metrics) RecordToolCall(toolName string, d time.Duration, err bool) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(toolName).Inc()
	m.toolCallDuration.WithLabelValues(toolName).Observe(d.Seconds())
	if err {
		m.toolErrors.WithLabelValues(toolName).Inc()
	}
}

// RecordIntegrationRun records a plugin execution outcome.
func (m *Metrics) RecordIntegrationRun(plugin, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.integrationRuns.WithLabelValues(plugin, outcome).Inc()
	m.integrationDuration.WithLabelValues(plugin).Observe(d.Seconds())
}

// RecordIntegrationRetry records a single retry attempt for plugin.
func (m *Metrics) RecordIntegrationRetry(plugin string) {
	if m == nil {
		return
	}
	m.integrationRetries.WithLabelValues(plugin).Inc()
}

// RecordIngestion records a processed document and its chunk count.
func (m *Metrics) RecordIngestion(sourceType, outcome string, chunkCount int, d time.Duration) {
	if m == nil {
		return
	}
	m.ingestionDocs.WithLabelValues(outcome).Inc()
	m.ingestionChunks.WithLabelValues(outcome).Add(float64(chunkCount))
	m.ingestionDuration.WithLabelValues(sourceType).Observe(d.Seconds())
}

// RecordCascadeDelete records a completed or failed cascade-delete run
// plus the per-table row counts it removed.
func (m *Metrics) RecordCascadeDelete(outcome string, perTable map[string]int) {
	if m == nil {
		return
	}
	m.cascadeDeletes.WithLabelValues(outcome).Inc()
	for table, n := range perTable {
		m.cascadeRowsDeleted.WithLabelValues(table).Add(float64(n))
	}
}

// SetCallSessionsActive sets the active-session gauge for an agent.
func (m *Metrics) SetCallSessionsActive(agentID string, count int) {
	if m == nil {
		return
	}
	m.callSessionsActive.WithLabelValues(agentID).Set(float64(count))
}

// RecordCallInteraction records a logged interaction by type.
func (m *Metrics) RecordCallInteraction(interactionType string) {
	if m == nil {
		return
	}
	m.callInteractions.WithLabelValues(interactionType).Inc()
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
