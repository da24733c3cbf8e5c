/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"testing"

	"goscreenwriter/internal/domain"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("b%d", n)
	}
}

func TestParseScenesAndDialogue(t *testing.T) {
	input := `INT. KITCHEN - NIGHT

Mary stirs a pot.
Steam rises.

MARY
(quietly)
It's ready.
Come and eat.

; a note that is dropped

CUT TO:

EXT. GARDEN - DAY

JOHN (V.O.)
Coming!`

	blocks, errs := Parse(input, seqIDs())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	want := []struct {
		typ     domain.BlockType
		content string
	}{
		{domain.SceneHeading, "INT. KITCHEN - NIGHT"},
		{domain.Action, "Mary stirs a pot.\nSteam rises."},
		{domain.Character, "MARY"},
		{domain.Parenthetical, "(quietly)"},
		{domain.Dialogue, "It's ready.\nCome and eat."},
		{domain.Transition, "CUT TO:"},
		{domain.SceneHeading, "EXT. GARDEN - DAY"},
		{domain.Character, "JOHN (V.O.)"},
		{domain.Dialogue, "Coming!"},
	}
	if len(blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(want), len(blocks), blocks)
	}
	for i, w := range want {
		if blocks[i].Type != w.typ || blocks[i].Content != w.content {
			t.Fatalf("block %d: got %s %q want %s %q", i, blocks[i].Type, blocks[i].Content, w.typ, w.content)
		}
	}
	if blocks[0].Number != 1 || blocks[6].Number != 2 || blocks[1].Number != 0 {
		t.Fatalf("unexpected numbering: %d %d %d", blocks[0].Number, blocks[6].Number, blocks[1].Number)
	}
	if err := domain.ValidateBlocks(blocks); err != nil {
		t.Fatalf("invalid blocks: %v", err)
	}
}

func TestForcedMarkers(t *testing.T) {
	input := `.flashback

@mcClane
Yippee.

!THE END IS NEAR

>SMASH CUT<

>FADE TO GREEN`

	blocks, errs := Parse(input, seqIDs())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	types := []domain.BlockType{domain.SceneHeading, domain.Character, domain.Dialogue, domain.Action, domain.General, domain.Transition}
	if len(blocks) != len(types) {
		t.Fatalf("expected %d blocks, got %+v", len(types), blocks)
	}
	for i, typ := range types {
		if blocks[i].Type != typ {
			t.Fatalf("block %d: got %s want %s (%q)", i, blocks[i].Type, typ, blocks[i].Content)
		}
	}
	if blocks[0].Content != "flashback" || blocks[4].Content != "SMASH CUT" {
		t.Fatalf("markers not stripped: %q %q", blocks[0].Content, blocks[4].Content)
	}
}

func TestParseReportsProblems(t *testing.T) {
	blocks, errs := Parse("Opening line.\n\n.\n", seqIDs())
	if len(errs) != 1 || errs[0].Line != 3 {
		t.Fatalf("expected one problem on line 3, got %+v", errs)
	}
	if len(blocks) != 2 || blocks[1].Type != domain.Action {
		t.Fatalf("problem line must be kept as action, got %+v", blocks)
	}
}

func TestParseEmpty(t *testing.T) {
	blocks, errs := Parse("  \n\n", nil)
	if len(blocks) != 0 || len(errs) != 0 {
		t.Fatalf("expected nothing, got %+v %+v", blocks, errs)
	}
}
