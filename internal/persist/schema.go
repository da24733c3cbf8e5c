/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package persist

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/store"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	sceneSchema   = mustSchema("schemas/scene.schema.json")
	uiStateSchema = mustSchema("schemas/editor_state.schema.json")
)

func mustSchema(name string) *gojsonschema.Schema {
	b, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("read %s: %v", name, err))
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
	if err != nil {
		panic(fmt.Sprintf("compile %s: %v", name, err))
	}
	return s
}

func validate(s *gojsonschema.Schema, data map[string]any) []string {
	res, err := s.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return []string{err.Error()}
	}
	if res.Valid() {
		return nil
	}
	out := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		out = append(out, e.String())
	}
	sort.Strings(out)
	return out
}

// SceneLoad is a decoded scene record. When Valid is false, Scene holds the
// normalized result and Problems describes what was repaired.
type SceneLoad struct {
	Scene    domain.Scene
	Valid    bool
	Problems []string
}

// Err returns the problems as a ValidationError, or nil for valid records.
func (l SceneLoad) Err(path string) error {
	if l.Valid {
		return nil
	}
	return &ValidationError{Path: path, Problems: l.Problems}
}

// DecodeScene converts a stored scene record into blocks, never failing:
// missing ids get new ones, unknown types become action and non-text content
// is converted to text. Stored scene numbers are kept for change detection;
// Load re-derives them. fallbackOrder is used when the order field is unusable.
func DecodeScene(doc store.Document, fallbackOrder int, newID func() string) SceneLoad {
	load := SceneLoad{Scene: domain.Scene{ID: doc.ID, Order: fallbackOrder}}
	load.Problems = validate(sceneSchema, doc.Data)

	if n, ok := asInt(doc.Data["order"]); ok && n >= 0 {
		load.Scene.Order = n
	}
	items, _ := doc.Data["blocks"].([]any)
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			load.Problems = append(load.Problems, fmt.Sprintf("blocks.%d: dropped non-object entry", i))
			continue
		}
		b := domain.Block{}
		b.ID, _ = m["id"].(string)
		if strings.TrimSpace(b.ID) == "" {
			b.ID = newID()
		}
		raw, _ := m["type"].(string)
		if t, ok := domain.ParseBlockType(raw); ok {
			b.Type = t
		} else {
			b.Type = domain.Action
		}
		switch c := m["content"].(type) {
		case string:
			b.Content = c
		case nil:
		default:
			b.Content = fmt.Sprint(c)
		}
		if n, ok := asInt(m["number"]); ok && n > 0 {
			b.Number = n
		}
		load.Scene.Blocks = append(load.Scene.Blocks, b)
	}
	if len(load.Scene.Blocks) > 0 && load.Scene.Blocks[0].Type == domain.SceneHeading {
		load.Scene.Heading = load.Scene.Blocks[0].Content
	}
	load.Valid = len(load.Problems) == 0
	return load
}

// UIState is the decoded editor state document. Nil fields were absent or invalid.
type UIState struct {
	ActiveBlock   string
	Selected      []string
	Header        *domain.Header
	EditingHeader *bool
}

// DecodeUIState reads the fields it can trust from the editor state document.
func DecodeUIState(data map[string]any) (UIState, []string) {
	problems := validate(uiStateSchema, data)
	var st UIState
	st.ActiveBlock, _ = data["activeBlock"].(string)
	if sel, ok := data["selectedBlocks"].([]any); ok {
		for _, v := range sel {
			if id, ok := v.(string); ok && id != "" {
				st.Selected = append(st.Selected, id)
			}
		}
	}
	if h, ok := data["header"].(map[string]any); ok {
		hdr := domain.Header{}
		hdr.Title, _ = h["title"].(string)
		hdr.Author, _ = h["author"].(string)
		hdr.Contact, _ = h["contact"].(string)
		st.Header = &hdr
	}
	if b, ok := data["editingHeader"].(bool); ok {
		st.EditingHeader = &b
	}
	return st, problems
}

// NormalizeBlocks repairs a block sequence from an untrusted source: empty or
// duplicate ids are replaced, unknown types become action and scene numbers
// are re-derived.
func NormalizeBlocks(blocks []domain.Block, newID func() string) ([]domain.Block, []string) {
	var problems []string
	seen := make(map[string]struct{}, len(blocks))
	out := make([]domain.Block, len(blocks))
	for i, b := range blocks {
		if strings.TrimSpace(b.ID) == "" {
			b.ID = newID()
			problems = append(problems, fmt.Sprintf("block %d: missing id", i))
		} else if _, dup := seen[b.ID]; dup {
			problems = append(problems, fmt.Sprintf("block %d: duplicate id %s", i, b.ID))
			b.ID = newID()
		}
		if !b.Type.Valid() {
			problems = append(problems, fmt.Sprintf("block %d: unknown type %q", i, b.Type))
			b.Type = domain.Action
		}
		seen[b.ID] = struct{}{}
		out[i] = b
	}
	return domain.Renumber(out), problems
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x != float64(int(x)) {
			return 0, false
		}
		return int(x), true
	case int:
		return x, true
	case int64:
		return int(x), true
	}
	return 0, false
}
