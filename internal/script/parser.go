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
	"bufio"
	"strings"

	"github.com/google/uuid"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/format"
)

// Parse converts screenplay text into an ordered, renumbered block sequence.
// newID supplies block ids; nil uses random UUIDs.
func Parse(input string, newID func() string) ([]domain.Block, []Error) {
	if newID == nil {
		newID = uuid.NewString
	}
	var blocks []domain.Block
	var errs []Error

	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	last := -1
	inDialogue := false

	emit := func(t domain.BlockType, text string) {
		blocks = append(blocks, domain.Block{ID: newID(), Type: t, Content: text})
		last = len(blocks) - 1
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		trim := strings.TrimSpace(line)
		if trim == "" {
			last = -1
			inDialogue = false
			continue
		}
		if strings.HasPrefix(trim, ";") {
			continue
		}

		if inDialogue {
			switch {
			case strings.HasPrefix(trim, "("):
				emit(domain.Parenthetical, trim)
			case blocks[last].Type == domain.Dialogue:
				blocks[last].Content += "\n" + trim
			default:
				emit(domain.Dialogue, trim)
			}
			continue
		}

		// Action paragraphs continue until a blank line.
		if last >= 0 && blocks[last].Type == domain.Action {
			blocks[last].Content += "\n" + trim
			continue
		}

		t, text, problem := classifyLine(trim)
		if problem != "" {
			errs = append(errs, Error{Line: lineNo, Column: 1, Message: problem})
		}
		emit(t, text)
		inDialogue = t == domain.Character
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Column: 1, Message: err.Error()})
	}
	return domain.Renumber(blocks), errs
}

func classifyLine(trim string) (domain.BlockType, string, string) {
	switch {
	case strings.HasPrefix(trim, ".") && !strings.HasPrefix(trim, ".."):
		text := strings.TrimSpace(trim[1:])
		if text == "" {
			return domain.Action, trim, "forced scene heading without text"
		}
		return domain.SceneHeading, text, ""
	case strings.HasPrefix(trim, "!"):
		return domain.Action, strings.TrimSpace(trim[1:]), ""
	case strings.HasPrefix(trim, "@"):
		text := strings.TrimSpace(trim[1:])
		if text == "" {
			return domain.Action, trim, "forced character without name"
		}
		return domain.Character, text, ""
	case strings.HasPrefix(trim, ">") && strings.HasSuffix(trim, "<") && len(trim) > 1:
		return domain.General, strings.TrimSpace(trim[1 : len(trim)-1]), ""
	case strings.HasPrefix(trim, ">"):
		return domain.Transition, strings.TrimSpace(trim[1:]), ""
	}
	if t, ok := format.Classify(trim); ok {
		return t, trim, ""
	}
	return domain.Action, trim, ""
}
