/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package format

import (
	"testing"

	"goscreenwriter/internal/domain"
)

func TestEnterAtEnd(t *testing.T) {
	cases := []struct {
		cur     domain.BlockType
		content string
		want    domain.BlockType
	}{
		{domain.Character, "JOHN", domain.Dialogue},
		{domain.Character, "", domain.Action},
		{domain.Character, "   ", domain.Action},
		{domain.Dialogue, "Hello.", domain.Action},
		{domain.Parenthetical, "(quietly)", domain.Dialogue},
		{domain.SceneHeading, "INT. HOUSE - DAY", domain.Action},
		{domain.Action, "He runs.", domain.Action},
		{domain.Transition, "CUT TO:", domain.Action},
		{domain.Shot, "CLOSE ON", domain.Action},
		{domain.General, "x", domain.Action},
	}
	for _, c := range cases {
		r := Transition(c.cur, Action{Kind: Enter}, c.content, RuneLen(c.content))
		if !r.Split || r.SplitAt != RuneLen(c.content) {
			t.Fatalf("%s: expected split at end, got %+v", c.cur, r)
		}
		if r.Type != c.want {
			t.Fatalf("enter on %s %q: got %s want %s", c.cur, c.content, r.Type, c.want)
		}
	}
}

func TestEnterMidSplitKeepsType(t *testing.T) {
	r := Transition(domain.Dialogue, Action{Kind: Enter}, "Hello there", 5)
	if r.Type != domain.Dialogue || r.SplitAt != 5 {
		t.Fatalf("unexpected %+v", r)
	}
	// cursor is clamped
	r = Transition(domain.Character, Action{Kind: Enter}, "JOHN", 99)
	if r.SplitAt != 4 || r.Type != domain.Dialogue {
		t.Fatalf("unexpected clamp result %+v", r)
	}
	r = Transition(domain.Action, Action{Kind: Enter}, "abc", -3)
	if r.SplitAt != 0 || r.Type != domain.Action {
		t.Fatalf("unexpected negative clamp result %+v", r)
	}
}

func TestTabCycle(t *testing.T) {
	seq := []domain.BlockType{domain.Action, domain.Character, domain.Transition, domain.Shot, domain.Action}
	for i := 0; i < len(seq)-1; i++ {
		if got := Transition(seq[i], Action{Kind: Tab}, "", 0).Type; got != seq[i+1] {
			t.Fatalf("tab on %s: got %s want %s", seq[i], got, seq[i+1])
		}
	}
	if got := Transition(domain.Dialogue, Action{Kind: Tab}, "", 0).Type; got != domain.Parenthetical {
		t.Fatalf("tab on dialogue: %s", got)
	}
	if got := Transition(domain.Parenthetical, Action{Kind: Tab}, "", 0).Type; got != domain.Dialogue {
		t.Fatalf("tab on parenthetical: %s", got)
	}
	if got := Transition(domain.SceneHeading, Action{Kind: Tab}, "", 0).Type; got != domain.Action {
		t.Fatalf("tab on heading: %s", got)
	}
	if got := Transition(domain.Character, Action{Kind: ShiftTab}, "", 0).Type; got != domain.Action {
		t.Fatalf("shift-tab on character: %s", got)
	}
	if got := Transition(domain.Action, Action{Kind: ShiftTab}, "", 0).Type; got != domain.Shot {
		t.Fatalf("shift-tab on action: %s", got)
	}
}

func TestExplicit(t *testing.T) {
	if got := Transition(domain.Action, Action{Kind: Explicit, Target: domain.Shot}, "", 0).Type; got != domain.Shot {
		t.Fatalf("explicit: %s", got)
	}
	if got := Transition(domain.Action, Action{Kind: Explicit, Target: "bogus"}, "", 0).Type; got != domain.Action {
		t.Fatalf("invalid explicit target must be ignored, got %s", got)
	}
}

func TestDetect(t *testing.T) {
	cases := []struct {
		cur     domain.BlockType
		content string
		want    domain.BlockType
	}{
		{domain.Action, "INT. KITCHEN - NIGHT", domain.SceneHeading},
		{domain.Action, "ext. beach - day", domain.Action},
		{domain.Action, "Est. 1952, the diner is empty.", domain.Action},
		{domain.Action, "int x is declared on the whiteboard", domain.Action},
		{domain.Action, "INT. Kitchen - Day", domain.Action},
		{domain.Action, "INT./EXT. CAR - MOVING", domain.SceneHeading},
		{domain.Action, "CUT TO:", domain.Transition},
		{domain.Action, "FADE IN:", domain.Transition},
		{domain.Action, "(beat)", domain.Parenthetical},
		{domain.Action, "MARY", domain.Character},
		{domain.Action, "MARY (V.O.)", domain.Character},
		{domain.Action, "She walks in.", domain.Action},
		{domain.Action, "BANG!", domain.Action},
		{domain.General, "JOHN", domain.Character},
		{domain.Dialogue, "JOHN", domain.Dialogue},
		{domain.Action, "", domain.Action},
	}
	for _, c := range cases {
		if got := Transition(c.cur, Action{Kind: AutoDetect}, c.content, 0).Type; got != c.want {
			t.Fatalf("detect %s %q: got %s want %s", c.cur, c.content, got, c.want)
		}
	}
}

func TestSplitMerge(t *testing.T) {
	blocks := []domain.Block{
		{ID: "a", Type: domain.Action, Content: "Hello world"},
		{ID: "b", Type: domain.Character, Content: "JOHN"},
	}
	split := Split(blocks, 0, 5, domain.Action, "n")
	if len(split) != 3 || split[0].Content != "Hello" || split[1].ID != "n" || split[1].Content != " world" || split[2].ID != "b" {
		t.Fatalf("unexpected split %+v", split)
	}
	if blocks[0].Content != "Hello world" {
		t.Fatalf("input mutated")
	}

	merged, caret, ok := Merge(split, 1)
	if !ok || caret != 5 || len(merged) != 2 || merged[0].Content != "Hello world" || merged[0].ID != "a" {
		t.Fatalf("unexpected merge %+v caret=%d ok=%v", merged, caret, ok)
	}
	if _, _, ok := Merge(merged, 0); ok {
		t.Fatalf("merging first block must be refused")
	}
}

func TestSplitMultibyte(t *testing.T) {
	blocks := []domain.Block{{ID: "a", Type: domain.Dialogue, Content: "Grüße dich"}}
	out := Split(blocks, 0, 5, domain.Dialogue, "n")
	if out[0].Content != "Grüße" || out[1].Content != " dich" {
		t.Fatalf("rune split failed: %+v", out)
	}
}

func TestSetTypeAndRemove(t *testing.T) {
	blocks := []domain.Block{{ID: "a", Type: domain.Action}, {ID: "b", Type: domain.Action}, {ID: "c", Type: domain.Action}}
	out := SetType(blocks, domain.Shot, "a", "c")
	if out[0].Type != domain.Shot || out[1].Type != domain.Action || out[2].Type != domain.Shot {
		t.Fatalf("unexpected %+v", out)
	}
	if blocks[0].Type != domain.Action {
		t.Fatalf("input mutated")
	}
	if r := Remove(blocks, 1); len(r) != 2 || r[1].ID != "c" {
		t.Fatalf("unexpected remove %+v", r)
	}
}
