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

import "fmt"

// Plain-text screenplay import.
//
// Paragraphs are separated by blank lines. The first line of a paragraph is
// classified by its shape (scene heading, transition, parenthetical, character
// cue); anything else is action. Lines following a character cue in the same
// paragraph are dialogue, or parentheticals when they start with "(".
// Further lines of an action or dialogue paragraph are kept as soft line breaks.
//
// Forced markers override the shape:
//   .HEADING   scene heading
//   !text      action
//   @NAME      character
//   >TEXT      transition
//   >TEXT<     general (centered text)
// Lines starting with ";" are author notes and are dropped.

// Error represents a parse problem with position context.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) String() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
}
