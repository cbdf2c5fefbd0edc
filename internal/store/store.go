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

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kadirpekel/voiceagent/internal/config"
)

// Store is a thin document-oriented façade over a *sql.DB: Query,
// Mutation, and Action map onto plain SQL statements against named
// tables, giving callers a "query(path, args) / mutation(path, args) /
// action(path, args)" database surface so any transactional store with
// secondary indexes can sit behind it.
type Store struct {
	db *sql.DB
}

// Open acquires cfg's pooled connection and wraps it in a Store.
func Open(pool *Pool, cfg config.DatabaseConfig) (*Store, error) {
	db, err := pool.Get(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Row is a generic column->value record, the shape Query/Mutation deal
// in.
type Row map[string]any

// Query runs a read against table filtered by args (column=value AND'd
// together), ordered by orderBy if set.
func (s *Store) Query(ctx context.Context, table string, args Row, orderBy string) ([]Row, error) {
	clause, values := whereClause(args)
	query := fmt.Sprintf("SELECT * FROM %s%s", table, clause)
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}

	rows, err := s.db.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, fmt.Errorf("store: query %s: %w", table, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// Mutation inserts or updates table with values, keyed by keyColumn.
// An existing row matching keyColumn is replaced; a new row is
// inserted otherwise. Idempotent when the caller supplies a stable key.
func (s *Store) Mutation(ctx context.Context, table string, keyColumn string, values Row) error {
	existing, err := s.Query(ctx, table, Row{keyColumn: values[keyColumn]}, "")
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		return s.insert(ctx, table, values)
	}
	return s.update(ctx, table, keyColumn, values)
}

// Action runs a named maintenance operation against table. The only
// action implemented is "delete_where"; any other name is an error.
// Actions are expected to be idempotent.
func (s *Store) Action(ctx context.Context, table, action string, args Row) (Row, error) {
	switch action {
	case "delete_where":
		clause, values := whereClause(args)
		if clause == "" {
			return nil, fmt.Errorf("store: delete_where on %s requires at least one filter", table)
		}
		res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s%s", table, clause), values...)
		if err != nil {
			return nil, fmt.Errorf("store: delete_where %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		return Row{"deleted": n}, nil
	default:
		return nil, fmt.Errorf("store: unknown action %q on %s", action, table)
	}
}

// DeleteByAgent deletes every row of table scoped to agentID, returning
// the count removed. Satisfies agentlifecycle.TableDeleter.
func (s *Store) DeleteByAgent(ctx context.Context, table, agentID string) (int, error) {
	keyColumn := "agent_id"
	if table == agentsTable {
		keyColumn = "id"
	}
	result, err := s.Action(ctx, table, "delete_where", Row{keyColumn: agentID})
	if err != nil {
		return 0, err
	}
	n, _ := result["deleted"].(int64)
	return int(n), nil
}

func (s *Store) insert(ctx context.Context, table string, values Row) error {
	columns := make([]string, 0, len(values))
	placeholders := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for col, val := range values {
		columns = append(columns, col)
		placeholders = append(placeholders, "?")
		args = append(args, val)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, join(columns, ", "), join(placeholders, ", "))
	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", table, err)
	}
	return nil
}

func (s *Store) update(ctx context.Context, table, keyColumn string, values Row) error {
	setClauses := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for col, val := range values {
		if col == keyColumn {
			continue
		}
		setClauses = append(setClauses, col+" = ?")
		args = append(args, val)
	}
	args = append(args, values[keyColumn])

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", table, join(setClauses, ", "), keyColumn)
	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: update %s: %w", table, err)
	}
	return nil
}

func whereClause(args Row) (string, []any) {
	if len(args) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(args))
	values := make([]any, 0, len(args))
	for col, val := range args {
		clauses = append(clauses, col+" = ?")
		values = append(values, val)
	}
	return " WHERE " + join(clauses, " AND "), values
}

func join(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := Row{}
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ParseTime parses a stored RFC3339 timestamp column, returning the
// zero time if v isn't a usable timestamp representation.
func ParseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}
