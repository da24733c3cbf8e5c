/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package store is a path-addressed JSON document store with SQLite,
// PostgreSQL and in-memory backends. Paths are slash separated; the
// collection of a document is its parent path.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"goscreenwriter/internal/config"
)

// ErrNotFound is returned by Get for absent documents.
var ErrNotFound = errors.New("document not found")

// Document is a stored JSON object.
type Document struct {
	Path string
	ID   string
	Data map[string]any
}

// SetOptions controls write semantics. With Merge, fields absent from the
// written data are preserved (JSON merge patch, RFC 7396).
type SetOptions struct {
	Merge bool
}

// Filter is an equality condition on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Query selects the documents directly inside Collection.
type Query struct {
	Collection string
	OrderBy    string
	Desc       bool
	Where      []Filter
	Limit      int
}

// Store is the document store consumed by the persistence layer.
type Store interface {
	Get(ctx context.Context, path string) (Document, error)
	Set(ctx context.Context, path string, data map[string]any, opts SetOptions) error
	Delete(ctx context.Context, path string) error
	Query(ctx context.Context, q Query) ([]Document, error)
	Close() error
}

// Join builds a document path from segments.
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

// Split returns the collection and id of a document path.
func Split(p string) (collection, id string) {
	p = strings.Trim(p, "/")
	dir, base := path.Split(p)
	return strings.TrimSuffix(dir, "/"), base
}

func validPath(p string) error {
	c, id := Split(p)
	if c == "" || id == "" {
		return fmt.Errorf("invalid document path %q", p)
	}
	return nil
}

func fieldOK(f string) bool {
	if f == "" {
		return false
	}
	for _, r := range f {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func validQuery(q Query) error {
	if strings.Trim(q.Collection, "/") == "" {
		return errors.New("query: collection is required")
	}
	if q.OrderBy != "" && !fieldOK(q.OrderBy) {
		return fmt.Errorf("query: invalid order field %q", q.OrderBy)
	}
	for _, f := range q.Where {
		if !fieldOK(f.Field) {
			return fmt.Errorf("query: invalid filter field %q", f.Field)
		}
	}
	return nil
}

// MergePatch applies patch onto dst following RFC 7396: nested objects merge,
// null removes a key, anything else replaces.
func MergePatch(dst, patch map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range patch {
		if v == nil {
			delete(dst, k)
			continue
		}
		if pm, ok := v.(map[string]any); ok {
			dm, _ := dst[k].(map[string]any)
			dst[k] = MergePatch(dm, pm)
			continue
		}
		dst[k] = v
	}
	return dst
}

// normalize round-trips data through JSON so every backend returns the same
// shapes (float64 numbers, []any arrays, map[string]any objects).
func normalize(data map[string]any) (map[string]any, []byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("encode document: %w", err)
	}
	out, err := decode(raw)
	return out, raw, err
}

func decode(raw []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

// Open selects a backend from configuration. secret is the database password
// from the keyring, used when the DSN carries none.
func Open(ctx context.Context, cfg config.StoreConfig, secret string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite":
		return OpenSQLite(ctx, cfg.Path, cfg.Timeout())
	case "postgres", "pg", "pgx":
		return OpenPostgres(ctx, cfg.DSN, secret, cfg.Timeout())
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
