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
	"goscreenwriter/internal/domain"
)

// Split cuts blocks[idx] at the rune offset at. The head keeps the block's id
// and type; the tail gets newID and tailType and is inserted right after it.
// The input slice is never modified.
func Split(blocks []domain.Block, idx, at int, tailType domain.BlockType, newID string) []domain.Block {
	if idx < 0 || idx >= len(blocks) {
		return blocks
	}
	cur := blocks[idx]
	runes := []rune(cur.Content)
	at = clamp(at, len(runes))
	head := cur
	head.Content = string(runes[:at])
	tail := domain.Block{ID: newID, Type: tailType, Content: string(runes[at:])}

	out := make([]domain.Block, 0, len(blocks)+1)
	out = append(out, blocks[:idx]...)
	out = append(out, head, tail)
	out = append(out, blocks[idx+1:]...)
	return out
}

// Merge folds blocks[idx] into its predecessor, which keeps its id and type.
// It returns the new slice and the caret offset at the join point in the
// merged block. ok is false when there is no predecessor.
func Merge(blocks []domain.Block, idx int) (out []domain.Block, caret int, ok bool) {
	if idx <= 0 || idx >= len(blocks) {
		return blocks, 0, false
	}
	prev := blocks[idx-1]
	caret = RuneLen(prev.Content)
	prev.Content += blocks[idx].Content

	out = make([]domain.Block, 0, len(blocks)-1)
	out = append(out, blocks[:idx-1]...)
	out = append(out, prev)
	out = append(out, blocks[idx+1:]...)
	return out, caret, true
}

// SetType returns a copy of blocks with the types of the listed ids replaced.
func SetType(blocks []domain.Block, t domain.BlockType, ids ...string) []domain.Block {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]domain.Block, len(blocks))
	for i, b := range blocks {
		if _, ok := want[b.ID]; ok {
			b.Type = t
		}
		out[i] = b
	}
	return out
}

// SetContent returns a copy of blocks with the content of id replaced.
func SetContent(blocks []domain.Block, id, content string) []domain.Block {
	out := make([]domain.Block, len(blocks))
	copy(out, blocks)
	if i := domain.IndexOf(out, id); i >= 0 {
		out[i].Content = content
	}
	return out
}

// Remove returns a copy of blocks without blocks[idx].
func Remove(blocks []domain.Block, idx int) []domain.Block {
	if idx < 0 || idx >= len(blocks) {
		return blocks
	}
	out := make([]domain.Block, 0, len(blocks)-1)
	out = append(out, blocks[:idx]...)
	return append(out, blocks[idx+1:]...)
}
