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
	"regexp"
	"strings"
	"unicode"

	"goscreenwriter/internal/domain"
)

// Patterns follow common screenplay conventions.
var (
	reSceneHeading  = regexp.MustCompile(`^(INT\.?/EXT\.?|EXT\.?/INT\.?|I/E|INT|EXT|EST)[\.\s]`)
	reTransition    = regexp.MustCompile(`^[A-Z0-9 '\.\-]+ TO:$|^FADE (IN|OUT)[:\.]$|^FADE TO BLACK\.$|^CUT TO BLACK\.$`)
	reParenthetical = regexp.MustCompile(`^\s*\(`)
)

// MaxCueLength bounds the length of a line recognized as a character cue.
const MaxCueLength = 38

// Classify returns the block type content looks like, or ok=false when the
// content has no distinctive shape (plain action).
func Classify(content string) (domain.BlockType, bool) {
	trim := strings.TrimSpace(content)
	if trim == "" {
		return "", false
	}
	switch {
	case reSceneHeading.MatchString(trim) && isShout(trim):
		return domain.SceneHeading, true
	case reTransition.MatchString(trim):
		return domain.Transition, true
	case reParenthetical.MatchString(trim):
		return domain.Parenthetical, true
	case isCue(trim):
		return domain.Character, true
	}
	return "", false
}

// Detect applies Classify without destroying an existing format: only action,
// general and empty blocks are reclassified.
func Detect(current domain.BlockType, content string) domain.BlockType {
	if current != domain.Action && current != domain.General && current.Valid() {
		return current
	}
	if t, ok := Classify(content); ok {
		return t
	}
	if !current.Valid() {
		return domain.Action
	}
	return current
}

// isShout reports a single line with at least one letter and no lower-case letters.
func isShout(s string) bool {
	if strings.ContainsAny(s, "\n\r") {
		return false
	}
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if unicode.IsLower(r) {
				return false
			}
			letters++
		}
	}
	return letters > 0
}

// isCue reports an all-caps single short line. A trailing extension such as
// "(V.O.)" is allowed.
func isCue(s string) bool {
	if RuneLen(s) > MaxCueLength || !isShout(s) {
		return false
	}
	// sentences ending in terminal punctuation are shouted action, not cues
	last := s[len(s)-1]
	return last != '.' && last != '!' && last != '?' && last != ':'
}
