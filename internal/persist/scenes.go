/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package persist

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"goscreenwriter/internal/domain"
)

// GroupScenes splits blocks into scene records. Every scene heading opens a
// scene; blocks before the first heading form a leading scene. A scene's id
// is the id of its first block and its order is its position.
// Blocks of each scene are subslices of the input.
func GroupScenes(blocks []domain.Block) []domain.Scene {
	var out []domain.Scene
	start := 0
	for i := 1; i <= len(blocks); i++ {
		if i < len(blocks) && blocks[i].Type != domain.SceneHeading {
			continue
		}
		group := blocks[start:i]
		sc := domain.Scene{ID: group[0].ID, Order: len(out), Blocks: group}
		if group[0].Type == domain.SceneHeading {
			sc.Heading = group[0].Content
		}
		out = append(out, sc)
		start = i
	}
	return out
}

// Fingerprint identifies the content of a scene record.
func Fingerprint(blocks []domain.Block) string {
	h := sha256.New()
	for _, b := range blocks {
		h.Write([]byte(b.ID))
		h.Write([]byte{0})
		h.Write([]byte(b.Type))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(b.Number)))
		h.Write([]byte{0})
		h.Write([]byte(b.Content))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func sceneRecord(sc domain.Scene, fp string) map[string]any {
	blocks := make([]any, 0, len(sc.Blocks))
	for _, b := range sc.Blocks {
		m := map[string]any{"id": b.ID, "type": string(b.Type), "content": b.Content}
		if b.Number > 0 {
			m["number"] = b.Number
		}
		blocks = append(blocks, m)
	}
	rec := map[string]any{"order": sc.Order, "blocks": blocks, "fingerprint": fp}
	if sc.Heading != "" {
		rec["heading"] = sc.Heading
	}
	return rec
}
