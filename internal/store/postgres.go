/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	applog "goscreenwriter/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore keeps documents as JSONB rows.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
	log     *slog.Logger
}

// OpenPostgres connects with dsn and applies the embedded migrations. When the
// DSN carries no password, secret is used.
func OpenPostgres(ctx context.Context, dsn, secret string, timeout time.Duration) (*PostgresStore, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "postgres_open")
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	cc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cc.Password == "" && secret != "" {
		cc.Password = secret
	}
	db := stdlib.OpenDB(*cc)

	ctx, cancel := withTimeout(ctx, 2*timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		l.Error("ping failed", slog.String("host", cc.Host), slog.Any("err", err))
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("migrate failed", slog.Any("err", err))
		return nil, fmt.Errorf("migrate: %w", err)
	}
	l.Debug("store ready", slog.String("host", cc.Host), slog.String("database", cc.Database))
	return &PostgresStore{db: db, timeout: timeout, log: applog.WithComponent("store")}, nil
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	l := applog.WithComponent("store")
	for _, fname := range files {
		v, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[v] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		l.Info("applying migration", slog.String("file", fname))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, v, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	parts := strings.SplitN(path.Base(name), "_", 2)
	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

func (s *PostgresStore) Get(ctx context.Context, p string) (Document, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	p = strings.Trim(p, "/")
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE path=$1`, p).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("get %s: %w", p, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s: %w", p, err)
	}
	data, err := decode(raw)
	if err != nil {
		return Document{}, fmt.Errorf("get %s: %w", p, err)
	}
	_, id := Split(p)
	return Document{Path: p, ID: id, Data: data}, nil
}

// Set writes a document. Merge writes lock the row and apply the patch in Go
// so nested objects merge the same way as in the other backends.
func (s *PostgresStore) Set(ctx context.Context, p string, data map[string]any, opts SetOptions) error {
	if err := validPath(p); err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	p = strings.Trim(p, "/")
	coll, _ := Split(p)
	patch, _, err := normalize(data)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set %s: begin: %w", p, err)
	}
	doc := map[string]any{}
	if opts.Merge {
		var raw []byte
		err := tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE path=$1 FOR UPDATE`, p).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			_ = tx.Rollback()
			return fmt.Errorf("set %s: read: %w", p, err)
		default:
			if doc, err = decode(raw); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("set %s: %w", p, err)
			}
		}
	}
	doc = MergePatch(doc, patch)
	raw, err := json.Marshal(doc)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("set %s: encode: %w", p, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents(path, collection, data, updated_at) VALUES($1, $2, $3::jsonb, now())
		ON CONFLICT(path) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`, p, coll, string(raw)); err != nil {
		_ = tx.Rollback()
		s.log.Warn("set failed", slog.String("path", p), slog.Any("err", err))
		return fmt.Errorf("set %s: %w", p, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set %s: commit: %w", p, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, p string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	p = strings.Trim(p, "/")
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path=$1`, p); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := validQuery(q); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var sb strings.Builder
	args := []any{strings.Trim(q.Collection, "/")}
	sb.WriteString(`SELECT path, data FROM documents WHERE collection=$1`)
	for _, f := range q.Where {
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("query %s: encode filter: %w", q.Collection, err)
		}
		args = append(args, f.Field, string(val))
		sb.WriteString(fmt.Sprintf(` AND data->$%d = $%d::jsonb`, len(args)-1, len(args)))
	}
	if q.OrderBy != "" {
		dir := "ASC NULLS FIRST"
		if q.Desc {
			dir = "DESC NULLS LAST"
		}
		args = append(args, q.OrderBy)
		sb.WriteString(fmt.Sprintf(` ORDER BY data->$%d %s, path ASC`, len(args), dir))
	} else {
		sb.WriteString(` ORDER BY path ASC`)
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sb.WriteString(fmt.Sprintf(` LIMIT $%d`, len(args)))
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		var p string
		var raw []byte
		if err := rows.Scan(&p, &raw); err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Collection, err)
		}
		data, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Collection, err)
		}
		_, id := Split(p)
		out = append(out, Document{Path: p, ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
