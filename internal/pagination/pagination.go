/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package pagination groups a block sequence into fixed-capacity screenplay
// pages. Extents are estimated in lines of 12pt Courier at 6 lines per inch.
package pagination

import (
	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/textlayout"
)

// DefaultLinesPerPage is the body capacity of a US Letter page with standard margins.
const DefaultLinesPerPage = 55

// Metric is the geometry of one block type.
type Metric struct {
	Cols        int // wrap width in monospaced cells
	SpaceBefore int // blank lines above the block, dropped at the top of a page
}

// Layout holds the page capacity and per-type metrics.
type Layout struct {
	LinesPerPage int
	Metrics      map[domain.BlockType]Metric
}

// DefaultLayout returns standard screenplay geometry.
func DefaultLayout() Layout {
	return Layout{
		LinesPerPage: DefaultLinesPerPage,
		Metrics: map[domain.BlockType]Metric{
			domain.SceneHeading:  {Cols: 60, SpaceBefore: 2},
			domain.Action:        {Cols: 60, SpaceBefore: 1},
			domain.Character:     {Cols: 38, SpaceBefore: 1},
			domain.Parenthetical: {Cols: 25, SpaceBefore: 0},
			domain.Dialogue:      {Cols: 35, SpaceBefore: 0},
			domain.Transition:    {Cols: 60, SpaceBefore: 1},
			domain.Shot:          {Cols: 60, SpaceBefore: 1},
			domain.General:       {Cols: 60, SpaceBefore: 1},
		},
	}
}

// WithLinesPerPage returns a copy of l with a different capacity. Non-positive values keep the current one.
func (l Layout) WithLinesPerPage(n int) Layout {
	if n > 0 {
		l.LinesPerPage = n
	}
	return l
}

// Page is a derived group of blocks. Blocks is a subslice of the input to
// Organize, so it references rather than copies the blocks.
type Page struct {
	Number int // 1-based
	Start  int // index of the first block in the input
	End    int // index past the last block
	Lines  int // estimated lines used
	Blocks []domain.Block
}

// Organize paginates blocks with DefaultLayout.
func Organize(blocks []domain.Block) []Page {
	return DefaultLayout().Organize(blocks)
}

// Organize walks blocks in order and closes a page whenever the next
// keep-together chain would overflow it. A character cue never ends a page
// apart from its parenthetical/dialogue, and a scene heading never ends a page
// apart from the block that follows it. A chain larger than a page starts a
// fresh page and overflows it. The result always holds at least one page.
func (l Layout) Organize(blocks []domain.Block) []Page {
	capacity := l.LinesPerPage
	if capacity <= 0 {
		capacity = DefaultLinesPerPage
	}
	var pages []Page
	cur := Page{Number: 1}
	for i := 0; i < len(blocks); {
		end := chainEnd(blocks, i)
		need := l.chainLines(blocks[i:end], cur.Lines == 0)
		if cur.Lines > 0 && cur.Lines+need > capacity {
			cur.End = i
			cur.Blocks = blocks[cur.Start:i:i]
			pages = append(pages, cur)
			cur = Page{Number: cur.Number + 1, Start: i}
			need = l.chainLines(blocks[i:end], true)
		}
		cur.Lines += need
		i = end
	}
	cur.End = len(blocks)
	cur.Blocks = blocks[cur.Start:cur.End:cur.End]
	return append(pages, cur)
}

// chainEnd returns the index past the keep-together chain starting at i.
func chainEnd(blocks []domain.Block, i int) int {
	j := i + 1
	for j < len(blocks) && keepsWithNext(blocks[j-1].Type, blocks[j].Type) {
		j++
	}
	return j
}

func keepsWithNext(cur, next domain.BlockType) bool {
	switch cur {
	case domain.Character:
		return next == domain.Dialogue || next == domain.Parenthetical
	case domain.Parenthetical:
		return next == domain.Dialogue
	case domain.SceneHeading:
		return true
	}
	return false
}

func (l Layout) chainLines(chain []domain.Block, topOfPage bool) int {
	n := 0
	for k, b := range chain {
		n += l.Extent(b, topOfPage && k == 0)
	}
	return n
}

// Extent is the estimated number of lines b occupies, including spacing
// unless it opens a page.
func (l Layout) Extent(b domain.Block, topOfPage bool) int {
	m, ok := l.Metrics[b.Type]
	if !ok {
		m = Metric{Cols: 60, SpaceBefore: 1}
	}
	n := textlayout.Lines(b.Content, m.Cols)
	if !topOfPage {
		n += m.SpaceBefore
	}
	return n
}

// PageOf returns the 1-based page number holding blockID, or 0.
func PageOf(pages []Page, blockID string) int {
	for _, p := range pages {
		for _, b := range p.Blocks {
			if b.ID == blockID {
				return p.Number
			}
		}
	}
	return 0
}
