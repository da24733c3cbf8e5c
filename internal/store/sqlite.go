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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// sqliteSchemaVersion tracks the local schema. Bump it and add a step to
// runSQLiteMigrations for breaking changes.
const sqliteSchemaVersion = 2

// SQLiteStore keeps documents in a single SQLite file.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	timeout time.Duration
	log     *slog.Logger
}

// OpenSQLite opens or creates the database at path, enables WAL mode and
// brings the schema up to date.
func OpenSQLite(ctx context.Context, path string, timeout time.Duration) (*SQLiteStore, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "sqlite_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create store dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := quickCheck(ctx, db); err != nil {
		_ = db.Close()
		l.Error("integrity check failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureSQLiteMeta(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runSQLiteMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("store ready")
	return &SQLiteStore{db: db, path: path, timeout: timeout, log: applog.WithComponent("store")}, nil
}

func ensureSQLiteMeta(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh databases start at 1 and migrate forward
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			path       TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			data       TEXT NOT NULL CHECK(json_valid(data)),
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// runSQLiteMigrations applies incremental schema migrations up to sqliteSchemaVersion.
func runSQLiteMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < sqliteSchemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			// scene queries order by the "order" field of one collection
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_documents_collection_order ON documents(collection, json_extract(data, '$.order'));`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) Get(ctx context.Context, p string) (Document, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	p = strings.Trim(p, "/")
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE path=?`, p).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("get %s: %w", p, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s: %w", p, err)
	}
	data, err := decode([]byte(raw))
	if err != nil {
		return Document{}, fmt.Errorf("get %s: %w", p, err)
	}
	_, id := Split(p)
	return Document{Path: p, ID: id, Data: data}, nil
}

func (s *SQLiteStore) Set(ctx context.Context, p string, data map[string]any, opts SetOptions) error {
	if err := validPath(p); err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	p = strings.Trim(p, "/")
	coll, _ := Split(p)
	_, raw, err := normalize(data)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	q := `INSERT INTO documents(path, collection, data, updated_at) VALUES(?, ?, json_patch('{}', ?), ?)
		ON CONFLICT(path) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`
	if opts.Merge {
		q = `INSERT INTO documents(path, collection, data, updated_at) VALUES(?, ?, json_patch('{}', ?), ?)
		ON CONFLICT(path) DO UPDATE SET data=json_patch(documents.data, ?), updated_at=excluded.updated_at`
		_, err = s.db.ExecContext(ctx, q, p, coll, string(raw), now, string(raw))
	} else {
		_, err = s.db.ExecContext(ctx, q, p, coll, string(raw), now)
	}
	if err != nil {
		s.log.Warn("set failed", slog.String("path", p), slog.Any("err", err))
		return fmt.Errorf("set %s: %w", p, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, p string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	p = strings.Trim(p, "/")
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path=?`, p); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := validQuery(q); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var sb strings.Builder
	args := []any{strings.Trim(q.Collection, "/")}
	sb.WriteString(`SELECT path, data FROM documents WHERE collection=?`)
	for _, f := range q.Where {
		sb.WriteString(` AND json_extract(data, ?) = ?`)
		args = append(args, "$."+f.Field, sqliteValue(f.Value))
	}
	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		sb.WriteString(fmt.Sprintf(` ORDER BY json_extract(data, ?) %s, path ASC`, dir))
		args = append(args, "$."+q.OrderBy)
	} else {
		sb.WriteString(` ORDER BY path ASC`)
	}
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		var p, raw string
		if err := rows.Scan(&p, &raw); err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Collection, err)
		}
		data, err := decode([]byte(raw))
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

// sqliteValue maps a filter value onto what json_extract yields.
func sqliteValue(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case int:
		return int64(x)
	}
	return v
}

// quickCheck runs PRAGMA quick_check and fails unless it reports ok.
func quickCheck(ctx context.Context, db *sql.DB) error {
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(chk), "ok") {
		return fmt.Errorf("quick_check: %s", chk)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
