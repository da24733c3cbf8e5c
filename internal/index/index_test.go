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

import (
	"fmt"
	"strings"
	"testing"

	"goscreenwriter/internal/domain"
)

func b(t domain.BlockType, c string) domain.Block { return domain.Block{Type: t, Content: c} }

func TestCanonicalName(t *testing.T) {
	cases := map[string]string{
		"john":                 "JOHN",
		"  John  (V.O.) ":      "JOHN",
		"MARY (CONT'D)":        "MARY",
		"MARY (O.S.) ^":        "MARY",
		"DR.  WHO":             "DR. WHO",
		"ANNA (V.O.) (CONT'D)": "ANNA",
		"":                     "",
	}
	for in, want := range cases {
		if got := CanonicalName(in); got != want {
			t.Fatalf("CanonicalName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveCharacters(t *testing.T) {
	blocks := []domain.Block{
		b(domain.Character, "JOHN"),
		b(domain.SceneHeading, "INT. A - DAY"),
		b(domain.Character, "mary"),
		b(domain.Dialogue, "Hi"),
		b(domain.Character, "JOHN (V.O.)"),
		b(domain.Character, "MARY"),
		b(domain.SceneHeading, "INT. B - DAY"),
		b(domain.Character, "JOHN"),
		b(domain.Character, "   "),
	}
	got := DeriveCharacters(blocks)
	want := []CharacterEntry{
		{Name: "JOHN", UsageCount: 3, SceneCount: 3},
		{Name: "MARY", UsageCount: 2, SceneCount: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestDeriveSceneHeadingsRankingAndCap(t *testing.T) {
	var blocks []domain.Block
	// 25 distinct headings seen once, then "INT. B" twice more and "INT. A" once more
	for i := 0; i < 25; i++ {
		blocks = append(blocks, b(domain.SceneHeading, fmt.Sprintf("INT. ROOM %d - DAY", i)))
	}
	blocks = append(blocks,
		b(domain.SceneHeading, "int.  room 5 - day"),
		b(domain.SceneHeading, "INT. ROOM 5 - DAY"),
		b(domain.SceneHeading, "INT. ROOM 3 - DAY"),
		b(domain.Action, "INT. ROOM 3 - DAY"),
	)
	got := DeriveSceneHeadings(blocks)
	if len(got) != MaxSceneHeadings {
		t.Fatalf("expected %d headings, got %d", MaxSceneHeadings, len(got))
	}
	if got[0].Heading != "INT. ROOM 5 - DAY" || got[0].Count != 3 {
		t.Fatalf("unexpected first %+v", got[0])
	}
	if got[1].Heading != "INT. ROOM 3 - DAY" || got[1].Count != 2 {
		t.Fatalf("unexpected second %+v", got[1])
	}
	// remaining ties keep first-seen order
	if got[2].Heading != "INT. ROOM 0 - DAY" || got[3].Heading != "INT. ROOM 1 - DAY" || got[4].Heading != "INT. ROOM 2 - DAY" || got[5].Heading != "INT. ROOM 4 - DAY" {
		t.Fatalf("ties not in first-seen order: %+v", got[2:6])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Count > got[i-1].Count {
			t.Fatalf("not sorted at %d: %+v", i, got)
		}
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"JOHN":             "john",
		"Dr. Who":          "dr-who",
		"INT. HOUSE - DAY": "int-house-day",
		"   ":              "_",
		"Zoë":              "zoë",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDocIDSeparatesKeysThatSlugAlike(t *testing.T) {
	pairs := [][2]string{
		{"INT. HOUSE - DAY", "INT HOUSE DAY"},
		{"JOHN-PAUL", "JOHN PAUL"},
	}
	for _, p := range pairs {
		if Slug(p[0]) != Slug(p[1]) {
			t.Fatalf("expected %q and %q to share a slug", p[0], p[1])
		}
		if DocID(p[0]) == DocID(p[1]) {
			t.Fatalf("DocID collides for %q and %q", p[0], p[1])
		}
		if DocID(p[0]) != DocID(p[0]) || !strings.HasPrefix(DocID(p[0]), Slug(p[0])+"-") {
			t.Fatalf("DocID(%q) = %q should be stable and readable", p[0], DocID(p[0]))
		}
	}
}
