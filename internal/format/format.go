/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package format implements the screenplay formatting grammar: which block
// type follows on Enter, how Tab cycles a block's type, how plain text is
// recognized as a block type, and the split/merge edits Enter and Backspace perform.
package format

import (
	"goscreenwriter/internal/domain"
)

// Kind is an editing action that can change block types.
type Kind int

const (
	Enter Kind = iota
	Tab
	ShiftTab
	Explicit
	AutoDetect
)

func (k Kind) String() string {
	switch k {
	case Enter:
		return "enter"
	case Tab:
		return "tab"
	case ShiftTab:
		return "shift-tab"
	case Explicit:
		return "explicit"
	case AutoDetect:
		return "auto-detect"
	default:
		return "unknown"
	}
}

// Action is a formatting request. Target is used only by Explicit.
type Action struct {
	Kind   Kind
	Target domain.BlockType
}

// Result describes the outcome of a transition.
// For Enter, Type is the type of the newly created tail block and Split is
// true with SplitAt the rune offset the current block is cut at.
// For every other action, Type is the new type of the current block.
type Result struct {
	Type    domain.BlockType
	Split   bool
	SplitAt int
}

// tabCycle is the forward Tab order for every type.
var tabCycle = map[domain.BlockType]domain.BlockType{
	domain.Action:        domain.Character,
	domain.Character:     domain.Transition,
	domain.Transition:    domain.Shot,
	domain.Shot:          domain.Action,
	domain.SceneHeading:  domain.Action,
	domain.Dialogue:      domain.Parenthetical,
	domain.Parenthetical: domain.Dialogue,
	domain.General:       domain.Action,
}

// reverseCycle walks the main cycle backwards; off-cycle types fall back to the forward table.
var reverseCycle = map[domain.BlockType]domain.BlockType{
	domain.Action:     domain.Shot,
	domain.Shot:       domain.Transition,
	domain.Transition: domain.Character,
	domain.Character:  domain.Action,
}

// Transition computes the block type resulting from action applied to a block
// of type current holding content with the caret at cursor (rune offset).
func Transition(current domain.BlockType, action Action, content string, cursor int) Result {
	switch action.Kind {
	case Enter:
		at := clamp(cursor, RuneLen(content))
		tail := string([]rune(content)[at:])
		return Result{Type: NextOnEnter(current, content, tail), Split: true, SplitAt: at}
	case Tab:
		return Result{Type: cycle(tabCycle, current)}
	case ShiftTab:
		if t, ok := reverseCycle[current]; ok {
			return Result{Type: t}
		}
		return Result{Type: cycle(tabCycle, current)}
	case Explicit:
		if action.Target.Valid() {
			return Result{Type: action.Target}
		}
		return Result{Type: current}
	case AutoDetect:
		return Result{Type: Detect(current, content)}
	default:
		return Result{Type: current}
	}
}

// NextOnEnter returns the type of the block created by Enter. The grammar
// applies when the caret sits at the end of the block (tail empty); a split
// inside the content carries the current type into the tail.
func NextOnEnter(current domain.BlockType, content, tail string) domain.BlockType {
	if tail != "" {
		return current
	}
	switch current {
	case domain.Character:
		if isBlank(content) {
			return domain.Action
		}
		return domain.Dialogue
	case domain.Parenthetical:
		return domain.Dialogue
	case domain.Dialogue:
		return domain.Action
	default:
		return domain.Action
	}
}

func cycle(table map[domain.BlockType]domain.BlockType, t domain.BlockType) domain.BlockType {
	if next, ok := table[t]; ok {
		return next
	}
	return domain.Action
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

// RuneLen is the caret length of content.
func RuneLen(s string) int { return len([]rune(s)) }

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
