/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"strings"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/format"
)

// Key names as reported by the rendering surface.
type Key string

const (
	KeyEnter     Key = "Enter"
	KeyTab       Key = "Tab"
	KeyBackspace Key = "Backspace"
	KeyDelete    Key = "Delete"
	KeyArrowUp   Key = "ArrowUp"
	KeyArrowDown Key = "ArrowDown"
	KeyEscape    Key = "Escape"
)

// Modifiers held during a key or mouse event.
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Meta  bool
	Alt   bool
}

// Command reports the platform command modifier (Ctrl or Cmd).
func (m Modifiers) Command() bool { return m.Ctrl || m.Meta }

// KeyResult tells the surface what happened. Handled means the default key
// action must be suppressed. Caret is the caret offset in the active block.
type KeyResult struct {
	Handled       bool
	SaveRequested bool
	Caret         int
}

// ContentChange replaces the content of a block. Typing in an action block
// that turns into a scene heading or transition reformats it.
func (s *Session) ContentChange(id, content string, cursor int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	i := domain.IndexOf(s.state.Blocks, id)
	if i < 0 {
		return ErrUnknownBlock
	}
	cur := s.state.Blocks[i]
	if cur.Content == content {
		s.state.ActiveBlock = id
		return nil
	}
	next := format.SetContent(s.state.Blocks, id, content)
	if cur.Type == domain.Action || cur.Type == domain.General {
		if t, ok := format.Classify(content); ok && (t == domain.SceneHeading || t == domain.Transition) {
			next[i].Type = t
		}
	}
	s.commit(next, id, "type:"+id)
	return nil
}

// KeyDown handles editing keys on the block with the caret at cursor.
func (s *Session) KeyDown(id string, key Key, mods Modifiers, cursor int) (KeyResult, error) {
	if mods.Command() {
		return s.shortcut(key, mods)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return KeyResult{}, ErrClosed
	}
	i := domain.IndexOf(s.state.Blocks, id)
	if i < 0 {
		return KeyResult{}, ErrUnknownBlock
	}
	cur := s.state.Blocks[i]
	switch key {
	case KeyEnter:
		if mods.Shift {
			// soft line break inside the block
			return KeyResult{}, nil
		}
		return s.enter(i, cur, cursor), nil
	case KeyTab:
		kind := format.Tab
		if mods.Shift {
			kind = format.ShiftTab
		}
		r := format.Transition(cur.Type, format.Action{Kind: kind}, cur.Content, cursor)
		if r.Type != cur.Type {
			s.history.Seal()
			s.commit(format.SetType(s.state.Blocks, r.Type, id), id, "")
		}
		return KeyResult{Handled: true, Caret: cursor}, nil
	case KeyBackspace, KeyDelete:
		if len(s.state.Selected) > 1 {
			return s.deleteSelection(), nil
		}
		if key == KeyBackspace && cursor == 0 && i > 0 {
			merged, caret, ok := format.Merge(s.state.Blocks, i)
			if ok {
				s.history.Seal()
				s.commit(merged, merged[i-1].ID, "")
				return KeyResult{Handled: true, Caret: caret}, nil
			}
		}
		return KeyResult{}, nil
	case KeyArrowUp:
		if cursor == 0 && i > 0 {
			prev := s.state.Blocks[i-1]
			s.state.ActiveBlock = prev.ID
			return KeyResult{Handled: true, Caret: format.RuneLen(prev.Content)}, nil
		}
	case KeyArrowDown:
		if cursor >= format.RuneLen(cur.Content) && i < len(s.state.Blocks)-1 {
			s.state.ActiveBlock = s.state.Blocks[i+1].ID
			return KeyResult{Handled: true, Caret: 0}, nil
		}
	case KeyEscape:
		s.state.Selected = domain.NewSelection()
		s.state.EditingHeader = false
		return KeyResult{Handled: true, Caret: cursor}, nil
	}
	return KeyResult{}, nil
}

// enter splits the block at cursor. At the end of an action block the
// finished line is classified first, so "JOHN" becomes a cue followed by dialogue.
func (s *Session) enter(i int, cur domain.Block, cursor int) KeyResult {
	blocks := s.state.Blocks
	typ := cur.Type
	if cursor >= format.RuneLen(cur.Content) {
		typ = format.Transition(cur.Type, format.Action{Kind: format.AutoDetect}, cur.Content, cursor).Type
	}
	r := format.Transition(typ, format.Action{Kind: format.Enter}, cur.Content, cursor)
	newID := s.coord.NewID()
	if typ != cur.Type {
		blocks = format.SetType(blocks, typ, cur.ID)
	}
	s.history.Seal()
	s.commit(format.Split(blocks, i, r.SplitAt, r.Type, newID), newID, "")
	return KeyResult{Handled: true, Caret: 0}
}

func (s *Session) deleteSelection() KeyResult {
	keep := make([]domain.Block, 0, len(s.state.Blocks))
	first := -1
	for i, b := range s.state.Blocks {
		if s.state.Selected.Has(b.ID) {
			if first < 0 {
				first = i
			}
			continue
		}
		keep = append(keep, b)
	}
	if len(keep) == 0 {
		keep = append(keep, domain.Block{ID: s.coord.NewID(), Type: domain.Action})
	}
	if first >= len(keep) {
		first = len(keep) - 1
	}
	s.history.Seal()
	s.history.Push(s.snapshot(""))
	s.state.Selected = domain.NewSelection()
	s.publish(keep, keep[first].ID)
	return KeyResult{Handled: true, Caret: 0}
}

func (s *Session) shortcut(key Key, mods Modifiers) (KeyResult, error) {
	switch strings.ToLower(string(key)) {
	case "z":
		if mods.Shift {
			return KeyResult{Handled: true}, s.ifOpen(s.Redo)
		}
		return KeyResult{Handled: true}, s.ifOpen(s.Undo)
	case "y":
		return KeyResult{Handled: true}, s.ifOpen(s.Redo)
	case "s":
		return KeyResult{Handled: true, SaveRequested: true}, nil
	}
	return KeyResult{}, nil
}

func (s *Session) ifOpen(fn func() bool) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	fn()
	return nil
}

// Click focuses a block. Shift or Command toggles it in the multi-selection
// instead of replacing the selection.
func (s *Session) Click(id string, mods Modifiers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if domain.IndexOf(s.state.Blocks, id) < 0 {
		return ErrUnknownBlock
	}
	if mods.Shift || mods.Command() {
		if s.state.Selected.Has(id) {
			delete(s.state.Selected, id)
		} else {
			s.state.Selected[id] = struct{}{}
		}
		return nil
	}
	s.state.ActiveBlock = id
	s.state.EditingHeader = false
	return nil
}

// DoubleClick selects the block.
func (s *Session) DoubleClick(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if domain.IndexOf(s.state.Blocks, id) < 0 {
		return ErrUnknownBlock
	}
	s.state.ActiveBlock = id
	s.state.Selected = domain.NewSelection(id)
	return nil
}

// Focus moves the caret to a block.
func (s *Session) Focus(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if domain.IndexOf(s.state.Blocks, id) < 0 {
		return ErrUnknownBlock
	}
	s.state.ActiveBlock = id
	return nil
}

// MouseDown starts a pointer interaction; without a modifier it clears the multi-selection.
func (s *Session) MouseDown(id string, mods Modifiers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if domain.IndexOf(s.state.Blocks, id) < 0 {
		return ErrUnknownBlock
	}
	if !mods.Shift && !mods.Command() {
		s.state.Selected = domain.NewSelection()
	}
	return nil
}

// FormatChange sets target on the selected blocks, or on the active block
// when nothing is selected. It reports whether any block changed.
func (s *Session) FormatChange(target domain.BlockType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if !target.Valid() {
		return false, fmt.Errorf("format change: unknown block type %q", target)
	}
	ids := s.state.Selected.IDs()
	if len(ids) == 0 {
		if domain.IndexOf(s.state.Blocks, s.state.ActiveBlock) < 0 {
			return false, ErrUnknownBlock
		}
		ids = []string{s.state.ActiveBlock}
	}
	next := s.state.Blocks
	changed := false
	for _, id := range ids {
		i := domain.IndexOf(next, id)
		if i < 0 {
			continue
		}
		r := format.Transition(next[i].Type, format.Action{Kind: format.Explicit, Target: target}, next[i].Content, 0)
		if r.Type != next[i].Type {
			next = format.SetType(next, r.Type, id)
			changed = true
		}
	}
	if !changed {
		return false, nil
	}
	s.history.Seal()
	s.commit(next, "", "")
	return true, nil
}
