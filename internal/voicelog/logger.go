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

// Package voicelog configures the process-wide structured logger.
//
// Follows pkg/logger's shape: slog-based, with a filtering handler
// that suppresses third-party library log records unless the
// configured level is debug. Every subsystem in this repo receives its
// own *slog.Logger (usually via With("component", "...")) rather than
// reaching for a package-level global — Init only sets the default used
// by cmd/ and by tests that don't care about attribution.
package voicelog

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

func callerFunc(pc uintptr) *runtime.Func {
	return runtime.FuncForPC(pc)
}

const modulePrefix = "voiceagent/internal"

// ParseLevel converts a string log level to slog.Level. Unknown values
// fall back to info, matching an operator's expectation that a typo in
// LOG_LEVEL doesn't silence the process.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// filteringHandler suppresses non-module log records above debug level,
// so a noisy vendored client library (vector DB client, websocket
// library) doesn't drown out the runtime's own logs in production.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel && h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug || h.isOwnPackage(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) isOwnPackage(pc uintptr) bool {
	if pc == 0 {
		return true
	}
	fn := callerFunc(pc)
	if fn == nil {
		return true
	}
	return strings.Contains(fn.Name(), modulePrefix)
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

// New builds a logger writing JSON records to w at the given level, with
// third-party noise suppressed below debug. format == "text" switches to
// a human-readable handler for local development.
func New(level slog.Level, format string, w *os.File) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}

	var base slog.Handler
	if format == "text" {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	return slog.New(&filteringHandler{handler: base, minLevel: level})
}

// Init installs l as the process-wide default logger, used by cmd/ at
// startup and by any code that has not been handed an explicit logger.
func Init(l *slog.Logger) {
	slog.SetDefault(l)
}

// Default returns a development logger writing text to stderr at info
// level. Intended for tests and examples, not production (use New).
func Default() *slog.Logger {
	return New(slog.LevelInfo, "text", os.Stderr)
}
