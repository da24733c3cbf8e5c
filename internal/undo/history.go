/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"

	"goscreenwriter/internal/domain"
)

// Entry is an immutable snapshot of the editing state. Blocks is shared with
// the editor, which never mutates a slice in place once it has been published.
// TS is when the snapshot was captured.
type Entry struct {
	Blocks      []domain.Block
	ActiveBlock string
	Selected    []string
	// Key groups pushes that belong to one burst (e.g. typing in one block).
	Key string
	TS  time.Time
}

// Config controls depth caps and coalescing behavior.
type Config struct {
	// MaxDepth limits the number of undo entries kept; the oldest are evicted.
	MaxDepth int
	// MinInterval coalesces pushes carrying the same Key captured within the
	// interval: the later push is dropped so undo returns to the start of the burst.
	// Zero disables coalescing.
	MinInterval time.Duration
}

// DefaultMaxDepth is the undo depth used when Config.MaxDepth is not set.
const DefaultMaxDepth = 100

// History is a bounded past/future stack pair. It is safe for concurrent use.
type History struct {
	cfg Config
	mu  sync.Mutex

	past   []Entry
	future []Entry
	// last push, used for coalescing
	lastKey string
	lastTS  time.Time
}

func NewHistory(cfg Config) *History {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &History{cfg: cfg}
}

// Push records the state before a mutation and invalidates redo.
// It reports whether a new entry was stored (false when coalesced).
func (h *History) Push(e Entry) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e.TS.IsZero() {
		e.TS = time.Now()
	}
	h.future = nil

	coalesce := e.Key != "" && e.Key == h.lastKey && h.cfg.MinInterval > 0 &&
		len(h.past) > 0 && e.TS.Sub(h.lastTS) < h.cfg.MinInterval
	h.lastKey = e.Key
	h.lastTS = e.TS
	if coalesce {
		return false
	}

	h.past = append(h.past, e)
	if over := len(h.past) - h.cfg.MaxDepth; over > 0 {
		h.past = append([]Entry(nil), h.past[over:]...)
	}
	return true
}

// Seal ends the current coalescing burst so the next push is always stored.
func (h *History) Seal() {
	h.mu.Lock()
	h.lastKey = ""
	h.mu.Unlock()
}

// Undo pops the most recent past entry and stores current on the future stack.
func (h *History) Undo(current Entry) (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.past) == 0 {
		return Entry{}, false
	}
	e := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, current)
	h.lastKey = ""
	return e, true
}

// Redo is the mirror of Undo over the future stack.
func (h *History) Redo(current Entry) (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.future) == 0 {
		return Entry{}, false
	}
	e := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, current)
	if over := len(h.past) - h.cfg.MaxDepth; over > 0 {
		h.past = append([]Entry(nil), h.past[over:]...)
	}
	h.lastKey = ""
	return e, true
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past) > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.future) > 0
}

// Stats returns current stack sizes for diagnostics.
func (h *History) Stats() (past, future int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past), len(h.future)
}

// Clear drops both stacks.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past, h.future = nil, nil
	h.lastKey = ""
}
