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

// Package httpx provides a retrying HTTP client shared by the document
// parser (C5) and the OpenAI embedder (internal/embed).
//
// Follows pkg/httpclient's shape, trimmed to the generic
// retry/backoff/classification core this repo needs — the LLM-vendor
// rate-limit header parsers (OpenAI/Anthropic specific) are dropped
// since the LLM provider is out of this repo's scope (see DESIGN.md).
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kadirpekel/voiceagent/internal/apperr"
)

// Strategy classifies an HTTP response for retry purposes: 2xx success,
// 429 ResourceExhausted (retryable), other 4xx UpstreamReject (not
// retryable), 5xx and network errors TransientNetwork (retryable).
type Strategy int

const (
	NoRetry Strategy = iota
	Retry
)

// Client wraps http.Client with bounded exponential-backoff retry.
type Client struct {
	http       *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option configures a Client.
type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

func WithBackoff(base, max time.Duration) Option {
	return func(c *Client) { c.baseDelay = base; c.maxDelay = max }
}

// New creates a Client. Defaults: 3 retries, base delay 1s, cap 10s,
// matching C5's parser-service retry policy.
func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		baseDelay:  time.Second,
		maxDelay:   10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// classify decides whether a response/error combination should be
// retried: network errors, timeouts, 5xx, and 429 are retryable; other
// 4xx is an UpstreamReject; 2xx succeeds.
func classify(resp *http.Response, err error) (Strategy, error) {
	if err != nil {
		return Retry, apperr.NewTransientNetworkError("http request", err)
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return NoRetry, nil
	case resp.StatusCode >= 500:
		return Retry, apperr.NewTransientNetworkError("http request", fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return Retry, apperr.NewResourceExhaustedError("http endpoint", fmt.Sprintf("HTTP %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return NoRetry, apperr.NewUpstreamRejectError("http request", resp.StatusCode, string(body))
	default:
		return NoRetry, nil
	}
}

// Do executes req with retry/backoff. The request body, if present, is
// buffered so it can be replayed across attempts.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("buffer request body: %w", err)
		}
		req.Body.Close()
		bodyBytes = b
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
		req = req.WithContext(ctx)

		resp, err := c.http.Do(req)
		strategy, classified := classify(resp, err)
		if strategy == NoRetry {
			return resp, classified
		}
		lastErr = classified
		if resp != nil {
			resp.Body.Close()
		}
		if attempt == c.maxRetries {
			break
		}

		delay := c.backoffDelay(attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// backoffDelay computes exponential backoff with jitter, capped at
// maxDelay: baseDelay * 2^attempt, plus up to a quarter of that as
// jitter.
func (c *Client) backoffDelay(attempt int) time.Duration {
	exp := float64(c.baseDelay) * math.Pow(2, float64(attempt))
	d := time.Duration(exp)
	if d > c.maxDelay {
		d = c.maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

// NewBackoffPolicy returns a backoff.ExponentialBackOff tuned to the
// same base/cap, for callers (C13's retry scheduler) that want a
// reusable policy object rather than driving Do's internal loop.
func NewBackoffPolicy(base, max time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.MaxInterval = max
	b.Multiplier = 2
	return b
}
