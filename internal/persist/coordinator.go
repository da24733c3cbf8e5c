/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package persist writes a screenplay to the document store over two
// channels: scene records carrying blocks, and a merge-written editor UI
// state document. It also persists the derived character and scene-heading
// indexes behind a debouncer.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/index"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/store"
)

// Options configures a Coordinator.
type Options struct {
	// NewID generates block ids; nil uses random UUIDs.
	NewID func() string
	// IndexDebounce is the quiet period before derived indexes are written.
	IndexDebounce time.Duration
	// IndexTimeout bounds one debounced index write.
	IndexTimeout time.Duration
	// OnIndexError receives failures of debounced index writes.
	OnIndexError func(error)
}

// Coordinator persists one screenplay.
type Coordinator struct {
	store store.Store
	ref   domain.ScreenplayRef
	opts  Options
	log   *slog.Logger

	mu sync.Mutex
	// saved tracks the last written fingerprint and order per scene record.
	saved map[string]sceneMark
	// known is false until the stored scene ids have been read.
	known bool

	debounce *Debouncer
	emu      sync.Mutex
	onErr    func(error)
}

type sceneMark struct {
	fingerprint string
	order       int
}

// Loaded is the result of Load or Seed.
type Loaded struct {
	State domain.EditorState
	// Bootstrapped is set when the default scene was synthesized.
	Bootstrapped bool
	// Problems lists repaired validation problems, one ValidationError per document.
	Problems []error
}

// SaveStats counts the scene records touched by SaveContent.
type SaveStats struct {
	Written   int
	Deleted   int
	Unchanged int
}

// IndexStats counts the index documents touched by SyncIndexes.
type IndexStats struct {
	CharactersWritten int
	CharactersDeleted int
	HeadingsWritten   int
	HeadingsDeleted   int
}

func New(s store.Store, ref domain.ScreenplayRef, opts Options) *Coordinator {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.IndexTimeout <= 0 {
		opts.IndexTimeout = 10 * time.Second
	}
	return &Coordinator{
		store:    s,
		ref:      ref,
		opts:     opts,
		log:      applog.WithComponent("persist").With(slog.String("screenplay", ref.String())),
		saved:    map[string]sceneMark{},
		debounce: NewDebouncer(opts.IndexDebounce),
		onErr:    opts.OnIndexError,
	}
}

// Ref returns the screenplay this coordinator writes.
func (c *Coordinator) Ref() domain.ScreenplayRef { return c.ref }

// NewID returns a fresh block id.
func (c *Coordinator) NewID() string { return c.opts.NewID() }

// CreateScreenplay writes the metadata document. Empty header fields keep their stored value.
func (c *Coordinator) CreateScreenplay(ctx context.Context, h domain.Header) error {
	path := metadataPath(c.ref)
	data := map[string]any{"updatedAt": time.Now().UTC().Format(time.RFC3339)}
	for k, v := range map[string]string{"title": h.Title, "author": h.Author, "contact": h.Contact} {
		if v != "" {
			data[k] = v
		}
	}
	if err := c.store.Set(ctx, path, data, store.SetOptions{Merge: true}); err != nil {
		return &PersistenceError{Op: "create", Step: "write metadata", Path: path, Err: err}
	}
	return nil
}

// Load reads the screenplay. Content comes from scene records only; the UI
// state document is merged on top. An empty screenplay gets a default scene
// which is written back immediately.
func (c *Coordinator) Load(ctx context.Context) (Loaded, error) {
	l := applog.WithOperation(c.log, "load")
	var out Loaded

	metaPath := metadataPath(c.ref)
	meta, err := c.store.Get(ctx, metaPath)
	if errors.Is(err, store.ErrNotFound) {
		l.Warn("screenplay not found", slog.String("path", metaPath))
		return out, &NotFoundError{Path: metaPath}
	}
	if err != nil {
		return out, &PersistenceError{Op: "load", Step: StepReadMetadata, Path: metaPath, Err: err}
	}

	docs, err := c.store.Query(ctx, store.Query{Collection: scenesCollection(c.ref), OrderBy: "order"})
	if err != nil {
		return out, &PersistenceError{Op: "load", Step: StepReadContent, Path: scenesCollection(c.ref), Err: err}
	}

	c.mu.Lock()
	c.saved = map[string]sceneMark{}
	c.known = true
	var blocks []domain.Block
	for i, doc := range docs {
		sl := DecodeScene(doc, i, c.opts.NewID)
		fp := Fingerprint(sl.Scene.Blocks)
		if !sl.Valid {
			out.Problems = append(out.Problems, sl.Err(doc.Path))
			fp = ""
		}
		c.saved[doc.ID] = sceneMark{fingerprint: fp, order: sl.Scene.Order}
		blocks = append(blocks, sl.Scene.Blocks...)
	}
	c.mu.Unlock()

	blocks, problems := NormalizeBlocks(blocks, c.opts.NewID)
	if len(problems) > 0 {
		out.Problems = append(out.Problems, &ValidationError{Path: scenesCollection(c.ref), Problems: problems})
	}
	if len(blocks) == 0 {
		blocks = domain.DefaultBlocks(c.opts.NewID)
		out.Bootstrapped = true
		if _, err := c.SaveContent(ctx, blocks); err != nil {
			return out, &PersistenceError{Op: "load", Step: StepBootstrap, Path: scenesCollection(c.ref), Err: err}
		}
		l.Info("bootstrapped empty screenplay")
	}

	out.State = domain.EditorState{Blocks: blocks, Selected: domain.NewSelection()}
	out.State.Header = domain.Header{
		Title:   str(meta.Data["title"]),
		Author:  str(meta.Data["author"]),
		Contact: str(meta.Data["contact"]),
	}

	statePath := uiStatePath(c.ref)
	stDoc, err := c.store.Get(ctx, statePath)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		// UI state is convenience data; content is already loaded.
		out.Problems = append(out.Problems, &PersistenceError{Op: "load", Step: StepReadUIState, Path: statePath, Err: err})
	default:
		ui, problems := DecodeUIState(stDoc.Data)
		if len(problems) > 0 {
			out.Problems = append(out.Problems, &ValidationError{Path: statePath, Problems: problems})
		}
		applyUIState(&out.State, ui)
	}
	if domain.IndexOf(out.State.Blocks, out.State.ActiveBlock) < 0 {
		out.State.ActiveBlock = out.State.Blocks[0].ID
	}
	for _, p := range out.Problems {
		l.Warn("repaired stored data", slog.Any("err", p))
	}
	l.Info("screenplay loaded", slog.Int("blocks", len(blocks)), slog.Int("scenes", len(docs)))
	return out, nil
}

func applyUIState(st *domain.EditorState, ui UIState) {
	if domain.IndexOf(st.Blocks, ui.ActiveBlock) >= 0 {
		st.ActiveBlock = ui.ActiveBlock
	}
	st.Selected = domain.NewSelection(ui.Selected...).Retain(st.Blocks)
	if ui.Header != nil {
		st.Header = *ui.Header
	}
	if ui.EditingHeader != nil {
		st.EditingHeader = *ui.EditingHeader
	}
}

// Seed builds the initial state from supplied blocks without reading the
// store. The result satisfies the same invariants as Load.
func (c *Coordinator) Seed(blocks []domain.Block) Loaded {
	var out Loaded
	blocks, problems := NormalizeBlocks(blocks, c.opts.NewID)
	if len(problems) > 0 {
		out.Problems = append(out.Problems, &ValidationError{Path: "seed", Problems: problems})
	}
	if len(blocks) == 0 {
		blocks = domain.DefaultBlocks(c.opts.NewID)
		out.Bootstrapped = true
	}
	c.mu.Lock()
	c.saved = map[string]sceneMark{}
	c.known = false
	c.mu.Unlock()
	out.State = domain.EditorState{Blocks: blocks, ActiveBlock: blocks[0].ID, Selected: domain.NewSelection()}
	return out
}

// Save persists UI state, then content. The first failure stops the sequence.
func (c *Coordinator) Save(ctx context.Context, st domain.EditorState) (SaveStats, error) {
	if err := c.SaveUIState(ctx, st); err != nil {
		return SaveStats{}, err
	}
	return c.SaveContent(ctx, st.Blocks)
}

// SaveUIState merge-writes the ephemeral editor state.
func (c *Coordinator) SaveUIState(ctx context.Context, st domain.EditorState) error {
	path := uiStatePath(c.ref)
	data := map[string]any{
		"activeBlock":    st.ActiveBlock,
		"selectedBlocks": st.Selected.IDs(),
		"header": map[string]any{
			"title":   st.Header.Title,
			"author":  st.Header.Author,
			"contact": st.Header.Contact,
		},
		"editingHeader": st.EditingHeader,
		"updatedAt":     time.Now().UTC().Format(time.RFC3339),
	}
	if err := c.store.Set(ctx, path, data, store.SetOptions{Merge: true}); err != nil {
		c.log.Error("save ui state failed", slog.Any("err", err))
		return &PersistenceError{Op: "save", Step: StepUIState, Path: path, Err: err}
	}
	return nil
}

// SaveContent writes the scene records whose content or order changed since
// the last load or save and deletes records of scenes that no longer exist.
// Progress is kept on failure, so a retry only writes what is still missing.
func (c *Coordinator) SaveContent(ctx context.Context, blocks []domain.Block) (SaveStats, error) {
	l := applog.WithOperation(c.log, "save_content")
	c.mu.Lock()
	defer c.mu.Unlock()
	var stats SaveStats

	if !c.known {
		docs, err := c.store.Query(ctx, store.Query{Collection: scenesCollection(c.ref)})
		if err != nil {
			return stats, &PersistenceError{Op: "save", Step: StepContent, Path: scenesCollection(c.ref), Err: err}
		}
		for _, d := range docs {
			if _, ok := c.saved[d.ID]; !ok {
				c.saved[d.ID] = sceneMark{order: -1}
			}
		}
		c.known = true
	}

	scenes := GroupScenes(blocks)
	live := make(map[string]struct{}, len(scenes))
	for _, sc := range scenes {
		live[sc.ID] = struct{}{}
		fp := Fingerprint(sc.Blocks)
		if m, ok := c.saved[sc.ID]; ok && m.fingerprint == fp && m.order == sc.Order {
			stats.Unchanged++
			continue
		}
		path := scenePath(c.ref, sc.ID)
		if err := c.store.Set(ctx, path, sceneRecord(sc, fp), store.SetOptions{}); err != nil {
			l.Error("write scene failed", slog.String("scene", sc.ID), slog.Any("err", err))
			return stats, &PersistenceError{Op: "save", Step: StepContent, Path: path, Err: err}
		}
		c.saved[sc.ID] = sceneMark{fingerprint: fp, order: sc.Order}
		stats.Written++
	}
	for id := range c.saved {
		if _, ok := live[id]; ok {
			continue
		}
		path := scenePath(c.ref, id)
		if err := c.store.Delete(ctx, path); err != nil {
			l.Error("delete scene failed", slog.String("scene", id), slog.Any("err", err))
			return stats, &PersistenceError{Op: "save", Step: StepContent, Path: path, Err: err}
		}
		delete(c.saved, id)
		stats.Deleted++
	}
	l.Debug("content saved", slog.Int("written", stats.Written), slog.Int("deleted", stats.Deleted), slog.Int("unchanged", stats.Unchanged))
	return stats, nil
}

// ScheduleIndexes queues a debounced index write for blocks. Blocks must not
// be mutated afterwards.
func (c *Coordinator) ScheduleIndexes(blocks []domain.Block) {
	c.debounce.Schedule(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.IndexTimeout)
		defer cancel()
		if _, err := c.SyncIndexes(ctx, blocks); err != nil {
			c.log.Error("index sync failed", slog.Any("err", err))
			c.emu.Lock()
			report := c.onErr
			c.emu.Unlock()
			if report != nil {
				report(err)
			}
		}
	})
}

// OnIndexError replaces the receiver of debounced index write failures.
func (c *Coordinator) OnIndexError(fn func(error)) {
	c.emu.Lock()
	c.onErr = fn
	c.emu.Unlock()
}

// FlushIndexes runs a pending index write now.
func (c *Coordinator) FlushIndexes() bool { return c.debounce.Flush() }

// CancelIndexes drops a pending index write.
func (c *Coordinator) CancelIndexes() bool { return c.debounce.Cancel() }

// IndexesPending reports whether an index write is waiting.
func (c *Coordinator) IndexesPending() bool { return c.debounce.Pending() }

// SyncIndexes writes this screenplay's share of the project-wide character
// and scene-heading indexes. Other screenplays' shares are left alone; an
// entry is deleted only when no screenplay uses it and it has no metadata.
func (c *Coordinator) SyncIndexes(ctx context.Context, blocks []domain.Block) (IndexStats, error) {
	var stats IndexStats
	fail := func(path string, err error) (IndexStats, error) {
		return stats, &PersistenceError{Op: "index", Step: StepIndexes, Path: path, Err: err}
	}
	sp := c.ref.Screenplay

	chars := charactersCollection(c.ref)
	docs, err := c.store.Query(ctx, store.Query{Collection: chars})
	if err != nil {
		return fail(chars, err)
	}
	persisted := make([]index.PersistedCharacter, 0, len(docs))
	for _, d := range docs {
		persisted = append(persisted, decodeCharacter(d))
	}
	res := index.SyncCharacters(persisted, index.DeriveCharacters(blocks), sp)
	changed := map[string]bool{}
	for _, n := range res.Added {
		changed[n] = true
	}
	for _, n := range res.Updated {
		changed[n] = true
	}
	for _, ch := range res.Characters {
		if !changed[index.CanonicalName(ch.Name)] {
			continue
		}
		var share any
		if u, ok := ch.Screenplays[sp]; ok {
			share = map[string]any{"usageCount": u.UsageCount, "sceneCount": u.SceneCount}
		}
		path := store.Join(chars, ch.ID)
		data := map[string]any{
			"name":        ch.Name,
			"usageCount":  ch.UsageCount,
			"sceneCount":  ch.SceneCount,
			"screenplays": map[string]any{sp: share},
		}
		if err := c.store.Set(ctx, path, data, store.SetOptions{Merge: true}); err != nil {
			return fail(path, err)
		}
		stats.CharactersWritten++
	}
	for _, o := range res.Orphaned {
		path := store.Join(chars, o.ID)
		if err := c.store.Delete(ctx, path); err != nil {
			return fail(path, err)
		}
		stats.CharactersDeleted++
	}

	heads := headingsCollection(c.ref)
	existing, err := c.store.Query(ctx, store.Query{Collection: heads})
	if err != nil {
		return fail(heads, err)
	}
	stored := make([]index.PersistedHeading, 0, len(existing))
	for _, d := range existing {
		stored = append(stored, decodeHeading(d))
	}
	hres := index.SyncSceneHeadings(stored, index.CountSceneHeadings(blocks), sp)
	dirty := make(map[string]bool, len(hres.Changed))
	for _, h := range hres.Changed {
		dirty[h] = true
	}
	for _, h := range hres.Headings {
		if !dirty[h.Heading] {
			continue
		}
		var share any
		if n, ok := h.Screenplays[sp]; ok {
			share = n
		}
		path := store.Join(heads, h.ID)
		data := map[string]any{"heading": h.Heading, "count": h.Count, "screenplays": map[string]any{sp: share}}
		if err := c.store.Set(ctx, path, data, store.SetOptions{Merge: true}); err != nil {
			return fail(path, err)
		}
		stats.HeadingsWritten++
	}
	for _, h := range hres.Removed {
		path := store.Join(heads, h.ID)
		if err := c.store.Delete(ctx, path); err != nil {
			return fail(path, err)
		}
		stats.HeadingsDeleted++
	}
	c.log.Debug("indexes synced",
		slog.Int("characters_written", stats.CharactersWritten),
		slog.Int("characters_deleted", stats.CharactersDeleted),
		slog.Int("headings_written", stats.HeadingsWritten),
		slog.Int("headings_deleted", stats.HeadingsDeleted))
	return stats, nil
}

func decodeCharacter(d store.Document) index.PersistedCharacter {
	p := index.PersistedCharacter{ID: d.ID, Name: str(d.Data["name"])}
	p.UsageCount, _ = asInt(d.Data["usageCount"])
	p.SceneCount, _ = asInt(d.Data["sceneCount"])
	for k, v := range d.Data {
		switch k {
		case "name", "usageCount", "sceneCount":
			continue
		case "screenplays":
			m, _ := v.(map[string]any)
			for id, raw := range m {
				share, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				var u index.Usage
				u.UsageCount, _ = asInt(share["usageCount"])
				u.SceneCount, _ = asInt(share["sceneCount"])
				if p.Screenplays == nil {
					p.Screenplays = map[string]index.Usage{}
				}
				p.Screenplays[id] = u
			}
			continue
		}
		if p.Metadata == nil {
			p.Metadata = map[string]any{}
		}
		p.Metadata[k] = v
	}
	return p
}

func decodeHeading(d store.Document) index.PersistedHeading {
	h := index.PersistedHeading{ID: d.ID, Heading: str(d.Data["heading"])}
	h.Count, _ = asInt(d.Data["count"])
	m, _ := d.Data["screenplays"].(map[string]any)
	for id, raw := range m {
		if n, ok := asInt(raw); ok && n > 0 {
			if h.Screenplays == nil {
				h.Screenplays = map[string]int{}
			}
			h.Screenplays[id] = n
		}
	}
	return h
}

// ReadCharacters returns the persisted character index ordered by usage.
func (c *Coordinator) ReadCharacters(ctx context.Context) ([]index.PersistedCharacter, error) {
	docs, err := c.store.Query(ctx, store.Query{Collection: charactersCollection(c.ref), OrderBy: "usageCount", Desc: true})
	if err != nil {
		return nil, &PersistenceError{Op: "read", Step: "read characters", Path: charactersCollection(c.ref), Err: err}
	}
	out := make([]index.PersistedCharacter, 0, len(docs))
	for _, d := range docs {
		out = append(out, decodeCharacter(d))
	}
	return out, nil
}

// ReadSceneHeadingSuggestions returns the most used stored scene headings.
func (c *Coordinator) ReadSceneHeadingSuggestions(ctx context.Context) ([]index.SceneHeadingEntry, error) {
	docs, err := c.store.Query(ctx, store.Query{
		Collection: headingsCollection(c.ref),
		OrderBy:    "count",
		Desc:       true,
		Limit:      index.MaxSceneHeadings,
	})
	if err != nil {
		return nil, &PersistenceError{Op: "read", Step: "read scene headings", Path: headingsCollection(c.ref), Err: err}
	}
	out := make([]index.SceneHeadingEntry, 0, len(docs))
	for _, d := range docs {
		n, _ := asInt(d.Data["count"])
		out = append(out, index.SceneHeadingEntry{Heading: str(d.Data["heading"]), Count: n})
	}
	return out, nil
}

// Close flushes a pending index write.
func (c *Coordinator) Close() {
	if c.debounce.Flush() {
		c.log.Debug("flushed pending index write")
	}
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
