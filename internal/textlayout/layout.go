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

// Line estimation for screenplay blocks. Screenplays are set in a monospaced
// 12pt face, so a column budget per block type maps directly to a pixel width
// in any monospaced face; the measurement stays behind a Provider so that a
// proportional face can be swapped in without touching the pagination rules.

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Provider resolves the face used for measurement.
type Provider interface {
	Face() font.Face
}

// BasicProvider uses x/image/basicfont Face7x13, a monospaced face, which
// keeps measurement deterministic across platforms.
type BasicProvider struct{}

func (BasicProvider) Face() font.Face { return basicfont.Face7x13 }

// Line is a single laid out line.
type Line struct {
	Text  string
	Width fixed.Int26_6
}

// TextBox is the result of laying out text into a box width.
type TextBox struct {
	Lines []Line
}

// WordWrapLayouter breaks on spaces and explicit line breaks; it does not
// hyphenate. Words wider than the box are broken at the box edge.
type WordWrapLayouter struct{ Provider Provider }

func NewWordWrap(provider Provider) *WordWrapLayouter { return &WordWrapLayouter{Provider: provider} }

func (l *WordWrapLayouter) face() font.Face {
	if l.Provider == nil {
		return BasicProvider{}.Face()
	}
	return l.Provider.Face()
}

// CellWidth is the advance of one monospaced column.
func (l *WordWrapLayouter) CellWidth() fixed.Int26_6 {
	adv, ok := l.face().GlyphAdvance('M')
	if !ok || adv <= 0 {
		return fixed.I(7)
	}
	return adv
}

// Layout wraps text into lines no wider than maxWidth. Empty text yields one empty line.
func (l *WordWrapLayouter) Layout(text string, maxWidth fixed.Int26_6) TextBox {
	d := &font.Drawer{Face: l.face()}
	space := d.MeasureString(" ")
	var box TextBox
	for _, para := range strings.Split(text, "\n") {
		var cur strings.Builder
		var curW fixed.Int26_6
		flush := func() {
			box.Lines = append(box.Lines, Line{Text: cur.String(), Width: curW})
			cur.Reset()
			curW = 0
		}
		words := strings.Fields(para)
		if len(words) == 0 {
			flush()
			continue
		}
		for _, w := range words {
			ww := d.MeasureString(w)
			if cur.Len() > 0 && curW+space+ww > maxWidth {
				flush()
			}
			// a word wider than the box is broken rune by rune
			for ww > maxWidth && maxWidth > 0 {
				head, rest := splitAtWidth(d, w, maxWidth-curW)
				if head == "" {
					_, size := utf8.DecodeRuneInString(w)
					head, rest = w[:size], w[size:]
				}
				cur.WriteString(head)
				curW += d.MeasureString(head)
				flush()
				w = rest
				ww = d.MeasureString(w)
			}
			if w == "" {
				continue
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
				curW += space
			}
			cur.WriteString(w)
			curW += ww
		}
		if cur.Len() > 0 {
			flush()
		}
	}
	return box
}

// splitAtWidth returns the longest prefix of s that fits into width and the remainder.
func splitAtWidth(d *font.Drawer, s string, width fixed.Int26_6) (string, string) {
	var w fixed.Int26_6
	for i, r := range s {
		adv, _ := d.Face.GlyphAdvance(r)
		if w+adv > width {
			return s[:i], s[i:]
		}
		w += adv
	}
	return s, ""
}

var defaultLayouter = NewWordWrap(BasicProvider{})

// Lines returns how many lines text occupies when wrapped to cols monospaced columns.
// A non-positive cols disables wrapping; empty text still occupies one line.
func Lines(text string, cols int) int {
	return LinesWith(defaultLayouter, text, cols)
}

// LinesWith is Lines with an explicit layouter.
func LinesWith(l *WordWrapLayouter, text string, cols int) int {
	if cols <= 0 {
		return strings.Count(text, "\n") + 1
	}
	box := l.Layout(text, l.CellWidth()*fixed.Int26_6(cols))
	if len(box.Lines) == 0 {
		return 1
	}
	return len(box.Lines)
}
