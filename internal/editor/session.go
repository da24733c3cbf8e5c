/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor owns the authoritative editing state of one screenplay and
// turns rendering-surface events into block mutations. Every mutation
// synchronously refreshes pagination and the derived indexes, records the
// previous state in the history and schedules index persistence.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/index"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/persist"
	"goscreenwriter/internal/undo"
)

var (
	// ErrSaveInProgress is returned by Save while another save is running.
	ErrSaveInProgress = errors.New("save already in progress")
	// ErrUnknownBlock is returned for events naming a block that does not exist.
	ErrUnknownBlock = errors.New("unknown block")
	// ErrClosed is returned for events after Close.
	ErrClosed = errors.New("session closed")
)

// Options configures a Session.
type Options struct {
	HistoryDepth int
	// CoalesceWindow groups consecutive typing in one block into a single undo step.
	CoalesceWindow time.Duration
	Layout         pagination.Layout
	// Clock is used for history timestamps; nil means time.Now.
	Clock func() time.Time
}

// Notice is a transient, dismissable error report.
type Notice struct {
	ID  int
	Err error
	At  time.Time
}

// Session is one editing session over one screenplay.
type Session struct {
	coord   *persist.Coordinator
	opts    Options
	history *undo.History
	log     *slog.Logger

	mu         sync.Mutex
	state      domain.EditorState
	pages      []pagination.Page
	characters []index.CharacterEntry
	headings   []index.SceneHeadingEntry
	hasChanges bool
	saving     bool
	revision   uint64
	closed     bool

	// nmu guards notices; index failures may be reported while mu is held.
	nmu        sync.Mutex
	notices    []Notice
	nextNotice int
}

// Open loads the screenplay through coord. Load failures are returned and
// no session is created.
func Open(ctx context.Context, coord *persist.Coordinator, opts Options) (*Session, error) {
	loaded, err := coord.Load(ctx)
	if err != nil {
		return nil, err
	}
	return newSession(coord, loaded, opts, false), nil
}

// NewSeeded starts a session from supplied blocks without reading the store.
// The content counts as unsaved.
func NewSeeded(coord *persist.Coordinator, blocks []domain.Block, opts Options) *Session {
	return newSession(coord, coord.Seed(blocks), opts, true)
}

func newSession(coord *persist.Coordinator, loaded persist.Loaded, opts Options, dirty bool) *Session {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Layout.LinesPerPage <= 0 || opts.Layout.Metrics == nil {
		opts.Layout = pagination.DefaultLayout().WithLinesPerPage(opts.Layout.LinesPerPage)
	}
	s := &Session{
		coord:      coord,
		opts:       opts,
		history:    undo.NewHistory(undo.Config{MaxDepth: opts.HistoryDepth, MinInterval: opts.CoalesceWindow}),
		log:        applog.WithComponent("editor").With(slog.String("screenplay", coord.Ref().String())),
		state:      loaded.State,
		hasChanges: dirty,
	}
	if s.state.Selected == nil {
		s.state.Selected = domain.NewSelection()
	}
	s.recompute()
	coord.OnIndexError(s.report)
	s.log.Debug("session started", slog.Int("blocks", len(s.state.Blocks)), slog.Bool("bootstrapped", loaded.Bootstrapped))
	return s
}

// recompute refreshes derived data; callers hold mu.
func (s *Session) recompute() {
	s.pages = s.opts.Layout.Organize(s.state.Blocks)
	s.characters = index.DeriveCharacters(s.state.Blocks)
	s.headings = index.DeriveSceneHeadings(s.state.Blocks)
}

func (s *Session) snapshot(key string) undo.Entry {
	return undo.Entry{
		Blocks:      s.state.Blocks,
		ActiveBlock: s.state.ActiveBlock,
		Selected:    s.state.Selected.IDs(),
		Key:         key,
		TS:          s.opts.Clock(),
	}
}

// commit publishes a new block sequence; callers hold mu. next must be a
// fresh slice: published slices are shared with history and pages.
func (s *Session) commit(next []domain.Block, active, key string) {
	s.history.Push(s.snapshot(key))
	s.publish(next, active)
}

func (s *Session) publish(next []domain.Block, active string) {
	s.state.Blocks = domain.Renumber(next)
	if active != "" {
		s.state.ActiveBlock = active
	}
	if domain.IndexOf(s.state.Blocks, s.state.ActiveBlock) < 0 && len(s.state.Blocks) > 0 {
		s.state.ActiveBlock = s.state.Blocks[0].ID
	}
	s.state.Selected = s.state.Selected.Retain(s.state.Blocks)
	s.recompute()
	s.hasChanges = true
	s.revision++
	s.coord.ScheduleIndexes(s.state.Blocks)
}

func (s *Session) restore(e undo.Entry) {
	s.state.Selected = domain.NewSelection(e.Selected...)
	s.publish(e.Blocks, e.ActiveBlock)
}

// Undo restores the state before the most recent mutation.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.history.Undo(s.snapshot(""))
	if ok {
		s.restore(prev)
	}
	return ok
}

// Redo re-applies the most recently undone mutation.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := s.history.Redo(s.snapshot(""))
	if ok {
		s.restore(next)
	}
	return ok
}

func (s *Session) CanUndo() bool { return s.history.CanUndo() }

func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// SetHeader replaces the title page header. It is UI state and not part of the history.
func (s *Session) SetHeader(h domain.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Header != h {
		s.state.Header = h
		s.hasChanges = true
		s.revision++
	}
}

// SetEditingHeader toggles header editing mode.
func (s *Session) SetEditingHeader(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.EditingHeader = on
}

// Save persists UI state and then content. On failure the unsaved flag stays
// set and the error is also queued as a notice.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInProgress
	}
	s.saving = true
	st := s.state.Clone()
	rev := s.revision
	s.mu.Unlock()

	l := applog.WithOperation(s.log, "save")
	stats, err := s.coord.Save(ctx, st)
	if err == nil && !s.coord.FlushIndexes() {
		if _, ierr := s.coord.SyncIndexes(ctx, st.Blocks); ierr != nil {
			l.Error("index sync failed", slog.Any("err", ierr))
			s.pushNotice(ierr)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		l.Error("save failed", slog.Any("err", err))
		s.pushNotice(err)
		return err
	}
	if s.revision == rev {
		s.hasChanges = false
	}
	l.Info("saved", slog.Int("written", stats.Written), slog.Int("deleted", stats.Deleted), slog.Int("unchanged", stats.Unchanged))
	return nil
}

// Close flushes pending index writes. Unsaved content is not written.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	dirty := s.hasChanges
	s.mu.Unlock()
	if dirty {
		s.log.Warn("closing with unsaved changes")
	}
	s.coord.Close()
}

// report queues asynchronous persistence failures.
func (s *Session) report(err error) { s.pushNotice(err) }

func (s *Session) pushNotice(err error) {
	s.nmu.Lock()
	defer s.nmu.Unlock()
	s.nextNotice++
	s.notices = append(s.notices, Notice{ID: s.nextNotice, Err: err, At: s.opts.Clock()})
}

// Notices returns the undismissed notices, oldest first.
func (s *Session) Notices() []Notice {
	s.nmu.Lock()
	defer s.nmu.Unlock()
	return append([]Notice(nil), s.notices...)
}

// DismissNotice removes a notice by id.
func (s *Session) DismissNotice(id int) bool {
	s.nmu.Lock()
	defer s.nmu.Unlock()
	for i, n := range s.notices {
		if n.ID == id {
			s.notices = append(s.notices[:i], s.notices[i+1:]...)
			return true
		}
	}
	return false
}

// State returns a copy of the editor state.
func (s *Session) State() domain.EditorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Pages returns the current page layout. The pages reference the current
// block sequence, which is never modified in place.
func (s *Session) Pages() []pagination.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages
}

func (s *Session) Characters() []index.CharacterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.characters
}

func (s *Session) SceneHeadings() []index.SceneHeadingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headings
}

func (s *Session) HasChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasChanges
}

func (s *Session) IsSaving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// CrashDump writes the in-memory state as JSON into dir and returns the file path.
func (s *Session) CrashDump(dir string) (string, error) {
	st := s.State()
	data, err := json.MarshalIndent(struct {
		Screenplay string             `json:"screenplay"`
		SavedAt    string             `json:"savedAt"`
		State      domain.EditorState `json:"state"`
	}{s.coord.Ref().String(), time.Now().UTC().Format(time.RFC3339), st}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode crash dump: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create crash dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("autosave-%s.json", time.Now().Format("20060102-150405")))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash dump: %w", err)
	}
	return path, nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}
