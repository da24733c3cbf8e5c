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
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps documents in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
}

func NewMemory() *MemoryStore {
	return &MemoryStore{docs: map[string]map[string]any{}}
}

func (m *MemoryStore) Get(ctx context.Context, p string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	p = strings.Trim(p, "/")
	m.mu.RLock()
	data, ok := m.docs[p]
	m.mu.RUnlock()
	if !ok {
		return Document{}, fmt.Errorf("get %s: %w", p, ErrNotFound)
	}
	cp, _, err := normalize(data)
	if err != nil {
		return Document{}, err
	}
	_, id := Split(p)
	return Document{Path: p, ID: id, Data: cp}, nil
}

func (m *MemoryStore) Set(ctx context.Context, p string, data map[string]any, opts SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validPath(p); err != nil {
		return err
	}
	p = strings.Trim(p, "/")
	cp, _, err := normalize(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if opts.Merge {
		m.docs[p] = MergePatch(m.docs[p], cp)
		return nil
	}
	for k, v := range cp {
		if v == nil {
			delete(cp, k)
		}
	}
	m.docs[p] = cp
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.docs, strings.Trim(p, "/"))
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validQuery(q); err != nil {
		return nil, err
	}
	coll := strings.Trim(q.Collection, "/")
	m.mu.RLock()
	var out []Document
	for p, data := range m.docs {
		c, id := Split(p)
		if c != coll || !matches(data, q.Where) {
			continue
		}
		cp, _, err := normalize(data)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		out = append(out, Document{Path: p, ID: id, Data: cp})
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if q.OrderBy != "" {
			if c := compareValues(out[i].Data[q.OrderBy], out[j].Data[q.OrderBy]); c != 0 {
				if q.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return out[i].Path < out[j].Path
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func matches(data map[string]any, where []Filter) bool {
	for _, f := range where {
		if compareValues(data[f.Field], f.Value) != 0 {
			return false
		}
	}
	return true
}

// compareValues orders missing values first, then numbers, then strings.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 1:
		fa, fb := toFloat(a), toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 3:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case float64, float32, int, int32, int64:
		return 1
	case string:
		return 2
	case bool:
		return 3
	}
	return 4
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	}
	return 0
}
