/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package index

import "testing"

func TestSyncCharactersKeepsMetadata(t *testing.T) {
	persisted := []PersistedCharacter{
		{ID: "john", Name: "JOHN", UsageCount: 2, SceneCount: 1},
		{ID: "ghost", Name: "GHOST", UsageCount: 1, SceneCount: 1, Metadata: map[string]any{"description": "Haunts the attic"}},
		{ID: "extra", Name: "EXTRA", UsageCount: 1, SceneCount: 1},
		{ID: "blank", Name: "BLANK", Metadata: map[string]any{"description": ""}},
	}
	derived := []CharacterEntry{
		{Name: "MARY", UsageCount: 1, SceneCount: 1},
		{Name: "JOHN", UsageCount: 3, SceneCount: 2},
	}
	res := SyncCharacters(persisted, derived, "s1")

	if len(res.Added) != 1 || res.Added[0] != "MARY" {
		t.Fatalf("unexpected added %+v", res.Added)
	}
	byName := map[string]PersistedCharacter{}
	for _, c := range res.Characters {
		byName[c.Name] = c
	}
	if c, ok := byName["JOHN"]; !ok || c.UsageCount != 3 || c.SceneCount != 2 || c.ID != "john" {
		t.Fatalf("JOHN not updated: %+v", c)
	}
	ghost, ok := byName["GHOST"]
	if !ok {
		t.Fatalf("entry with metadata must never be removed")
	}
	if ghost.UsageCount != 0 || ghost.Metadata["description"] != "Haunts the attic" {
		t.Fatalf("unexpected ghost %+v", ghost)
	}
	if _, ok := byName["EXTRA"]; ok {
		t.Fatalf("unused entry without metadata should be orphaned")
	}
	if len(res.Orphaned) != 2 {
		t.Fatalf("expected EXTRA and BLANK orphaned, got %+v", res.Orphaned)
	}
	if byName["MARY"].ID != DocID("MARY") {
		t.Fatalf("new entry needs a derived id: %+v", byName["MARY"])
	}
	if len(res.Characters) != 3 {
		t.Fatalf("expected 3 characters, got %+v", res.Characters)
	}
}

func TestSyncCharactersStable(t *testing.T) {
	derived := []CharacterEntry{{Name: "A", UsageCount: 1, SceneCount: 1}}
	first := SyncCharacters(nil, derived, "s1")
	second := SyncCharacters(first.Characters, derived, "s1")
	if len(second.Added) != 0 || len(second.Updated) != 0 || len(second.Orphaned) != 0 {
		t.Fatalf("second sync should be a no-op, got %+v", second)
	}
}

func TestSyncCharactersKeepsOtherScreenplays(t *testing.T) {
	a := SyncCharacters(nil, []CharacterEntry{{Name: "ALICE", UsageCount: 2, SceneCount: 1}}, "a")
	b := SyncCharacters(a.Characters, []CharacterEntry{
		{Name: "BOB", UsageCount: 1, SceneCount: 1},
		{Name: "ALICE", UsageCount: 3, SceneCount: 2},
	}, "b")
	byName := map[string]PersistedCharacter{}
	for _, c := range b.Characters {
		byName[c.Name] = c
	}
	if alice := byName["ALICE"]; alice.UsageCount != 5 || alice.SceneCount != 3 || len(alice.Screenplays) != 2 {
		t.Fatalf("ALICE totals should sum both screenplays: %+v", alice)
	}

	// b drops ALICE and BOB; only b's share goes away
	c := SyncCharacters(b.Characters, nil, "b")
	if len(c.Orphaned) != 1 || c.Orphaned[0].Name != "BOB" {
		t.Fatalf("only BOB should be orphaned, got %+v", c.Orphaned)
	}
	if len(c.Characters) != 1 || c.Characters[0].UsageCount != 2 || c.Characters[0].Screenplays["a"] != (Usage{UsageCount: 2, SceneCount: 1}) {
		t.Fatalf("ALICE should keep screenplay a's usage: %+v", c.Characters)
	}
	if len(c.Updated) != 1 || c.Updated[0] != "ALICE" {
		t.Fatalf("expected ALICE updated, got %+v", c.Updated)
	}
}

func TestSyncSceneHeadingsKeepsOtherScreenplays(t *testing.T) {
	a := SyncSceneHeadings(nil, []SceneHeadingEntry{{Heading: "INT. KITCHEN - DAY", Count: 2}}, "a")
	if len(a.Headings) != 1 || len(a.Changed) != 1 || a.Headings[0].ID != DocID("INT. KITCHEN - DAY") {
		t.Fatalf("unexpected first sync %+v", a)
	}
	b := SyncSceneHeadings(a.Headings, []SceneHeadingEntry{
		{Heading: "EXT. STREET - NIGHT", Count: 1},
		{Heading: "INT. KITCHEN - DAY", Count: 1},
	}, "b")
	counts := map[string]int{}
	for _, h := range b.Headings {
		counts[h.Heading] = h.Count
	}
	if counts["INT. KITCHEN - DAY"] != 3 || counts["EXT. STREET - NIGHT"] != 1 || len(b.Removed) != 0 {
		t.Fatalf("unexpected counts %+v removed %+v", counts, b.Removed)
	}

	again := SyncSceneHeadings(b.Headings, []SceneHeadingEntry{
		{Heading: "EXT. STREET - NIGHT", Count: 1},
		{Heading: "INT. KITCHEN - DAY", Count: 1},
	}, "b")
	if len(again.Changed) != 0 || len(again.Removed) != 0 {
		t.Fatalf("unchanged input should be a no-op, got %+v", again)
	}

	gone := SyncSceneHeadings(b.Headings, nil, "b")
	if len(gone.Removed) != 1 || gone.Removed[0].Heading != "EXT. STREET - NIGHT" {
		t.Fatalf("only the heading unique to b should go, got %+v", gone.Removed)
	}
	if len(gone.Headings) != 1 || gone.Headings[0].Count != 2 {
		t.Fatalf("kitchen should fall back to a's count: %+v", gone.Headings)
	}
}
