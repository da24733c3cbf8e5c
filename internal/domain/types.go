/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model of a screenplay document: typed blocks,
// the editor state that owns them and the scene records they are persisted in.

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// BlockType is the screenplay format of a block.
type BlockType string

const (
	SceneHeading  BlockType = "scene-heading"
	Action        BlockType = "action"
	Character     BlockType = "character"
	Dialogue      BlockType = "dialogue"
	Parenthetical BlockType = "parenthetical"
	Transition    BlockType = "transition"
	Shot          BlockType = "shot"
	General       BlockType = "general"
)

// BlockTypes lists every block type in menu order.
var BlockTypes = []BlockType{SceneHeading, Action, Character, Dialogue, Parenthetical, Transition, Shot, General}

// Valid reports whether t is one of the known block types.
func (t BlockType) Valid() bool {
	for _, k := range BlockTypes {
		if k == t {
			return true
		}
	}
	return false
}

// ParseBlockType accepts the canonical names as well as loose spellings
// such as "Scene Heading" or "scene_heading".
func ParseBlockType(s string) (BlockType, bool) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.NewReplacer("_", "-", " ", "-").Replace(n)
	if n == "sceneheading" || n == "heading" || n == "slugline" {
		n = string(SceneHeading)
	}
	t := BlockType(n)
	return t, t.Valid()
}

// Block is the smallest addressable unit of screenplay content.
// Number is the scene ordinal and is non-zero only on scene headings.
type Block struct {
	ID      string    `json:"id"`
	Type    BlockType `json:"type"`
	Content string    `json:"content"`
	Number  int       `json:"number,omitempty"`
}

// Header is the title page information.
type Header struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Contact string `json:"contact"`
}

// EditorState is the single authoritative state of an editing session.
type EditorState struct {
	Blocks        []Block   `json:"blocks"`
	ActiveBlock   string    `json:"activeBlock"`
	Selected      Selection `json:"selectedBlocks"`
	Header        Header    `json:"header"`
	EditingHeader bool      `json:"editingHeader"`
}

// Clone returns a copy whose selection can be mutated independently.
// Blocks are shared; callers never mutate a block slice in place.
func (s EditorState) Clone() EditorState {
	s.Selected = s.Selected.Clone()
	return s
}

// IndexOf returns the position of the block with id, or -1.
func IndexOf(blocks []Block, id string) int {
	for i := range blocks {
		if blocks[i].ID == id {
			return i
		}
	}
	return -1
}

// Renumber returns a copy of blocks where scene headings are numbered 1..n
// in document order and every other block carries no number.
func Renumber(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	n := 0
	for i, b := range blocks {
		if b.Type == SceneHeading {
			n++
			b.Number = n
		} else {
			b.Number = 0
		}
		out[i] = b
	}
	return out
}

// ValidateBlocks reports empty and duplicate ids as well as numbering errors.
func ValidateBlocks(blocks []Block) error {
	seen := make(map[string]struct{}, len(blocks))
	for i, b := range blocks {
		if b.ID == "" {
			return fmt.Errorf("block %d: empty id", i)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("block %d: duplicate id %q", i, b.ID)
		}
		seen[b.ID] = struct{}{}
		if !b.Type.Valid() {
			return fmt.Errorf("block %s: unknown type %q", b.ID, b.Type)
		}
		if (b.Type == SceneHeading) != (b.Number > 0) {
			return fmt.Errorf("block %s: number %d does not match type %s", b.ID, b.Number, b.Type)
		}
	}
	return nil
}

// DefaultSceneHeading is the content of the heading synthesized for an empty screenplay.
const DefaultSceneHeading = "INT. LOCATION - DAY"

// DefaultBlocks returns the bootstrap content of an empty screenplay.
func DefaultBlocks(newID func() string) []Block {
	return []Block{
		{ID: newID(), Type: SceneHeading, Content: DefaultSceneHeading, Number: 1},
		{ID: newID(), Type: Action, Content: ""},
	}
}

// Selection is a membership set of block ids.
type Selection map[string]struct{}

// NewSelection builds a selection from ids.
func NewSelection(ids ...string) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s Selection) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members sorted, for stable persistence and comparison.
func (s Selection) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the selection as a sorted id list.
func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *Selection) UnmarshalJSON(b []byte) error {
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*s = NewSelection(ids...)
	return nil
}

// Retain drops ids that are not present in blocks.
func (s Selection) Retain(blocks []Block) Selection {
	if len(s) == 0 {
		return Selection{}
	}
	present := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		present[b.ID] = struct{}{}
	}
	out := make(Selection, len(s))
	for id := range s {
		if _, ok := present[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// Scene is a persisted grouping of the blocks belonging to one scene.
// ID is the id of the scene's first block; Order is its position in the screenplay.
type Scene struct {
	ID      string  `json:"id"`
	Order   int     `json:"order"`
	Heading string  `json:"heading,omitempty"`
	Blocks  []Block `json:"blocks"`
}

// ScreenplayRef addresses a screenplay inside a project.
type ScreenplayRef struct {
	Project    string
	Screenplay string
}

func (r ScreenplayRef) String() string { return r.Project + "/" + r.Screenplay }
