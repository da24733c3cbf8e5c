/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"strings"
	"testing"
)

func TestLinesCountsWrapsAndBreaks(t *testing.T) {
	cases := []struct {
		name string
		text string
		cols int
		want int
	}{
		{"empty", "", 60, 1},
		{"short", "Rain hammers the roof.", 60, 1},
		{"exact fit", strings.Repeat("a", 10), 10, 1},
		{"two words wrap", "aaaaa bbbbb", 10, 2},
		{"soft breaks", "one\ntwo\nthree", 60, 3},
		{"blank line kept", "one\n\nthree", 60, 3},
		{"long word broken", strings.Repeat("x", 25), 10, 3},
		{"no wrap", "a b c d e f", 0, 1},
	}
	for _, c := range cases {
		if got := Lines(c.text, c.cols); got != c.want {
			t.Fatalf("%s: Lines(%q, %d) = %d, want %d", c.name, c.text, c.cols, got, c.want)
		}
	}
}

func TestLayoutKeepsWidthsWithinBox(t *testing.T) {
	l := NewWordWrap(BasicProvider{})
	maxW := l.CellWidth() * 12
	box := l.Layout("The quick brown fox jumps over the lazy dog", maxW)
	if len(box.Lines) < 3 {
		t.Fatalf("expected wrapping into several lines, got %d", len(box.Lines))
	}
	for _, ln := range box.Lines {
		if ln.Width > maxW {
			t.Fatalf("line %q wider than box: %v > %v", ln.Text, ln.Width, maxW)
		}
	}
}

func TestLinesDeterministic(t *testing.T) {
	text := strings.Repeat("Dialogue that goes on and on. ", 12)
	a, b := Lines(text, 35), Lines(text, 35)
	if a != b || a < 2 {
		t.Fatalf("expected stable multi-line result, got %d and %d", a, b)
	}
}
