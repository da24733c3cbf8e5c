/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package index derives the character and scene-heading indexes from block
// content and reconciles them with previously persisted entries.
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"goscreenwriter/internal/domain"
)

// MaxSceneHeadings bounds the scene-heading suggestion list.
const MaxSceneHeadings = 20

// CharacterEntry is a derived character index entry.
type CharacterEntry struct {
	Name       string `json:"name"`
	UsageCount int    `json:"usageCount"`
	SceneCount int    `json:"sceneCount"`
}

// SceneHeadingEntry is a derived unique scene heading.
type SceneHeadingEntry struct {
	Heading string `json:"heading"`
	Count   int    `json:"count"`
}

var (
	reExtension = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
	reSpace     = regexp.MustCompile(`\s+`)
)

// CanonicalName normalizes a character cue to its index key: trailing
// extensions like (V.O.), (O.S.) or (CONT'D) and the dual-dialogue caret are
// removed, whitespace collapsed and the result upper-cased.
func CanonicalName(cue string) string {
	s := strings.TrimSpace(cue)
	for {
		prev := s
		s = strings.TrimSpace(strings.TrimSuffix(s, "^"))
		s = reExtension.ReplaceAllString(s, "")
		if s == prev {
			break
		}
	}
	return strings.ToUpper(reSpace.ReplaceAllString(s, " "))
}

// CanonicalHeading normalizes a scene heading for deduplication.
func CanonicalHeading(h string) string {
	return strings.ToUpper(reSpace.ReplaceAllString(strings.TrimSpace(h), " "))
}

// DeriveCharacters returns one entry per canonical character name in order of
// first appearance. SceneCount counts the distinct scenes the name speaks in;
// blocks before the first scene heading form their own scene.
func DeriveCharacters(blocks []domain.Block) []CharacterEntry {
	var out []CharacterEntry
	pos := map[string]int{}
	lastScene := map[string]int{}
	scene := 0
	for _, b := range blocks {
		switch b.Type {
		case domain.SceneHeading:
			scene++
		case domain.Character:
			name := CanonicalName(b.Content)
			if name == "" {
				continue
			}
			i, ok := pos[name]
			if !ok {
				i = len(out)
				pos[name] = i
				out = append(out, CharacterEntry{Name: name})
			}
			out[i].UsageCount++
			if s, seen := lastScene[name]; !seen || s != scene {
				out[i].SceneCount++
				lastScene[name] = scene
			}
		}
	}
	return out
}

// DeriveSceneHeadings ranks unique headings by count descending with ties in
// first-seen order, truncated to MaxSceneHeadings.
func DeriveSceneHeadings(blocks []domain.Block) []SceneHeadingEntry {
	out := CountSceneHeadings(blocks)
	if len(out) > MaxSceneHeadings {
		out = out[:MaxSceneHeadings]
	}
	return out
}

// CountSceneHeadings is DeriveSceneHeadings without the bound.
func CountSceneHeadings(blocks []domain.Block) []SceneHeadingEntry {
	var out []SceneHeadingEntry
	pos := map[string]int{}
	for _, b := range blocks {
		if b.Type != domain.SceneHeading {
			continue
		}
		h := CanonicalHeading(b.Content)
		if h == "" {
			continue
		}
		if i, ok := pos[h]; ok {
			out[i].Count++
			continue
		}
		pos[h] = len(out)
		out = append(out, SceneHeadingEntry{Heading: h, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// DocID returns the store document id of an index key: a readable slug
// followed by a digest of the key, so keys that slug alike stay distinct.
func DocID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return Slug(key) + "-" + hex.EncodeToString(sum[:6])
}

// Slug turns a name into a store-safe document id.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r > 127:
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "_"
	}
	return s
}
