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

// Package store implements the runtime's SQL-backed persistence: a
// driver-agnostic connection pool plus a document-oriented
// query/mutation/action façade over it.
//
// Pool is carried over from pkg/config/dbpool.go nearly unchanged — the
// SQLite single-connection/WAL special-casing and the
// postgres/mysql/sqlite3 driver registration are exactly the same
// concern here as there, just keyed by internal/config.DatabaseConfig
// instead of pkg/config.DatabaseConfig.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kadirpekel/voiceagent/internal/config"
)

// Pool manages one *sql.DB per distinct DSN so repeated Get calls for
// the same database share a connection pool.
type Pool struct {
	mu     sync.Mutex
	dbs    map[string]*sql.DB
	logger *slog.Logger
}

// NewPool builds an empty Pool.
func NewPool(logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{dbs: make(map[string]*sql.DB), logger: logger}
}

func driverName(driver string) string {
	if driver == "sqlite" {
		return "sqlite3"
	}
	return driver
}

// Get returns the shared *sql.DB for cfg, opening and pinging it on
// first use.
func (p *Pool) Get(cfg config.DatabaseConfig) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if db, ok := p.dbs[cfg.DSN]; ok {
		return db, nil
	}

	driver := driverName(cfg.Driver)
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}

	if driver == "sqlite3" {
		// SQLite only supports one writer at a time; a single
		// connection serializes access and avoids "database is locked".
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driver, err)
	}

	if driver == "sqlite3" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			p.logger.Warn("store: failed to enable WAL mode", "error", err)
		}
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=10000"); err != nil {
			p.logger.Warn("store: failed to set busy timeout", "error", err)
		}
	}

	p.dbs[cfg.DSN] = db
	return db, nil
}

// Close closes every pooled connection.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for dsn, db := range p.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("store: close %s: %w", dsn, err)
		}
	}
	p.dbs = make(map[string]*sql.DB)
	return firstErr
}
