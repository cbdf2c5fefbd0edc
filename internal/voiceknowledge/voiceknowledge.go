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

// Package voiceknowledge implements C8: a latency-tuned facade over the
// RAG index, adding query expansion, a short-TTL result cache, a
// business-info cache, and parallel hybrid search.
//
// Follows pkg/rag's query-time helpers in shape (threshold nudging,
// context assembly) layered over internal/vectorindex, with
// hashicorp/golang-lru/v2 reused from the tokenizer cache for both the
// result cache and the business-info cache.
package voiceknowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kadirpekel/voiceagent/internal/vectorindex"
)

// BusinessInfoType enumerates the business-info categories callers may
// request directly, bypassing a full knowledge search when cached.
type BusinessInfoType string

const (
	InfoHours    BusinessInfoType = "hours"
	InfoLocation BusinessInfoType = "location"
	InfoContact  BusinessInfoType = "contact"
	InfoPolicies BusinessInfoType = "policies"
	InfoFeatures BusinessInfoType = "features"
	InfoGeneral  BusinessInfoType = "general"
)

// resultCacheTTL and businessInfoCacheTTL bound how long a cached search
// result and a cached business-info answer are served.
const (
	resultCacheTTL       = 5 * time.Minute
	businessInfoCacheTTL = 10 * time.Minute
	coldResultThreshold  = 1000 * time.Millisecond
	defaultLimit         = 5
	defaultThreshold     = 0.75
	infoThresholdNudge   = 0.05
	shortQueryTokens     = 4
)

// VoiceResponse is C8's terminal answer shape: prose text plus the
// entries it was assembled from, ready to be read aloud or handed to a
// tool result.
type VoiceResponse struct {
	Text    string
	Entries []vectorindex.EntrySummary
	InfoType BusinessInfoType
}

// SearchConfig overrides defaults for a single search call.
type SearchConfig struct {
	SimilarityThreshold float32
}

// BusinessInfoLookup resolves a cached business-info field (hours,
// location, …) for an organization without touching the vector index.
// Callers wire this to their own config store; GetBusinessInfo falls
// back to Search when it returns ok=false.
type BusinessInfoLookup func(ctx context.Context, organizationID string, infoType BusinessInfoType) (text string, ok bool, err error)

// Service is C8's facade over a vectorindex.Index.
type Service struct {
	index   vectorindex.Index
	lookup  BusinessInfoLookup
	logger  *slog.Logger

	mu          sync.Mutex
	resultCache *lru.Cache[string, cachedResult]
	infoCache   *lru.Cache[string, cachedInfo]
}

type cachedResult struct {
	response VoiceResponse
	at       time.Time
}

type cachedInfo struct {
	text string
	at   time.Time
}

// New builds a Service. resultCacheSize and infoCacheSize bound the two
// LRU caches (counts, not bytes); callers without a business-info
// backing store may pass a nil lookup, in which case GetBusinessInfo
// falls back to Search whenever its cache has no answer.
func New(index vectorindex.Index, lookup BusinessInfoLookup, logger *slog.Logger, resultCacheSize, infoCacheSize int) (*Service, error) {
	if resultCacheSize <= 0 {
		resultCacheSize = 256
	}
	if infoCacheSize <= 0 {
		infoCacheSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	rc, err := lru.New[string, cachedResult](resultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("voiceknowledge: result cache: %w", err)
	}
	ic, err := lru.New[string, cachedInfo](infoCacheSize)
	if err != nil {
		return nil, fmt.Errorf("voiceknowledge: info cache: %w", err)
	}
	return &Service{index: index, lookup: lookup, logger: logger, resultCache: rc, infoCache: ic}, nil
}

// Search runs a single knowledge query against namespace, expanding the
// query and adjusting the similarity threshold before delegating to the
// vector index. Empty or very weak results produce a graceful
// not-found VoiceResponse rather than an error.
func (s *Service) Search(ctx context.Context, namespace, query string, limit int, cfg SearchConfig) (VoiceResponse, error) {
	resp, _, err := s.SearchWithContext(ctx, namespace, query, limit, cfg)
	return resp, err
}

// SearchWithContext is Search plus the raw joined context text the
// response was built from, for callers (C12 tools) that want to thread
// the context separately from the spoken response.
func (s *Service) SearchWithContext(ctx context.Context, namespace, query string, limit int, cfg SearchConfig) (VoiceResponse, string, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	expanded, infoType := expandQuery(query)
	threshold := cfg.SimilarityThreshold
	if threshold == 0 {
		threshold = defaultThreshold
	}
	if infoType == InfoLocation || infoType == InfoHours || infoType == InfoContact {
		threshold -= infoThresholdNudge
	}

	normalized := normalizeQuery(expanded)
	cacheKey := fmt.Sprintf("%s\x00%s\x00%d", namespace, normalized, limit)

	s.mu.Lock()
	if cached, ok := s.resultCache.Get(cacheKey); ok && time.Since(cached.at) < resultCacheTTL {
		s.mu.Unlock()
		return cached.response, cached.response.Text, nil
	}
	s.mu.Unlock()

	start := time.Now()
	result, err := s.index.Search(ctx, vectorindex.SearchRequest{
		Namespace:            namespace,
		Query:                expanded,
		Limit:                limit,
		VectorScoreThreshold: float64(threshold),
	})
	elapsed := time.Since(start)
	if elapsed > coldResultThreshold {
		s.logger.Warn("voiceknowledge: cold search result", "namespace", namespace, "elapsed_ms", elapsed.Milliseconds())
	}
	if err != nil {
		return VoiceResponse{}, "", fmt.Errorf("voiceknowledge: search: %w", err)
	}

	if len(result.Entries) == 0 {
		resp := VoiceResponse{Text: "I couldn't find specific information about that.", InfoType: infoType}
		return resp, "", nil
	}

	resp := VoiceResponse{Text: result.Text, Entries: result.Entries, InfoType: infoType}

	s.mu.Lock()
	s.resultCache.Add(cacheKey, cachedResult{response: resp, at: time.Now()})
	s.mu.Unlock()

	return resp, result.Text, nil
}

// HybridRequest configures HybridSearch's two parallel sub-queries.
type HybridRequest struct {
	IncludeItems     bool
	IncludeKnowledge bool
	ItemsQuery       string
	KnowledgeQuery   string
	ItemsLimit       int
	KnowledgeLimit   int
}

// HybridResult merges both sub-query responses.
type HybridResult struct {
	Items     VoiceResponse
	Knowledge VoiceResponse
}

// HybridSearch runs the items and knowledge sub-queries concurrently and
// merges both result sets.
func (s *Service) HybridSearch(ctx context.Context, namespace string, req HybridRequest) (HybridResult, error) {
	var (
		wg            sync.WaitGroup
		itemsResp     VoiceResponse
		knowledgeResp VoiceResponse
		itemsErr      error
		knowledgeErr  error
	)

	if req.IncludeItems {
		wg.Add(1)
		go func() {
			defer wg.Done()
			itemsResp, itemsErr = s.Search(ctx, namespace, req.ItemsQuery, req.ItemsLimit, SearchConfig{})
		}()
	}
	if req.IncludeKnowledge {
		wg.Add(1)
		go func() {
			defer wg.Done()
			knowledgeResp, knowledgeErr = s.Search(ctx, namespace, req.KnowledgeQuery, req.KnowledgeLimit, SearchConfig{})
		}()
	}
	wg.Wait()

	if itemsErr != nil {
		return HybridResult{}, itemsErr
	}
	if knowledgeErr != nil {
		return HybridResult{}, knowledgeErr
	}
	return HybridResult{Items: itemsResp, Knowledge: knowledgeResp}, nil
}

// GetBusinessInfo resolves infoType for organizationID, consulting the
// business-info cache and BusinessInfoLookup before falling back to a
// full knowledge search scoped to namespace.
func (s *Service) GetBusinessInfo(ctx context.Context, organizationID, namespace string, infoType BusinessInfoType) (VoiceResponse, error) {
	switch infoType {
	case InfoHours, InfoLocation, InfoContact, InfoPolicies, InfoFeatures, InfoGeneral:
	default:
		return VoiceResponse{}, fmt.Errorf("voiceknowledge: unknown business info type %q", infoType)
	}

	cacheKey := organizationID + "\x00" + string(infoType)
	s.mu.Lock()
	if cached, ok := s.infoCache.Get(cacheKey); ok && time.Since(cached.at) < businessInfoCacheTTL {
		s.mu.Unlock()
		return VoiceResponse{Text: cached.text, InfoType: infoType}, nil
	}
	s.mu.Unlock()

	if s.lookup != nil {
		text, ok, err := s.lookup(ctx, organizationID, infoType)
		if err != nil {
			return VoiceResponse{}, fmt.Errorf("voiceknowledge: business info lookup: %w", err)
		}
		if ok {
			s.mu.Lock()
			s.infoCache.Add(cacheKey, cachedInfo{text: text, at: time.Now()})
			s.mu.Unlock()
			return VoiceResponse{Text: text, InfoType: infoType}, nil
		}
	}

	return s.Search(ctx, namespace, string(infoType), defaultLimit, SearchConfig{})
}

// WarmupNamespace fires the RAG index's warmup in the background and
// logs a cold-warmup warning if it exceeds the cold-result threshold.
// It never blocks the caller and never returns an error.
func (s *Service) WarmupNamespace(namespace string) {
	go func() {
		latency, err := s.index.Warmup(context.Background(), namespace)
		if err != nil {
			s.logger.Warn("voiceknowledge: warmup failed", "namespace", namespace, "error", err)
			return
		}
		if latency > coldResultThreshold {
			s.logger.Warn("voiceknowledge: cold warmup", "namespace", namespace, "elapsed_ms", latency.Milliseconds())
		}
	}()
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
