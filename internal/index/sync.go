/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package index

// Usage is one screenplay's share of a character entry.
type Usage struct {
	UsageCount int
	SceneCount int
}

// PersistedCharacter is a character index entry as stored, including
// user-entered metadata the derivation knows nothing about. Character
// entries are shared by all screenplays of a project; the totals are the sum
// of the per-screenplay contributions.
type PersistedCharacter struct {
	ID          string
	Name        string
	UsageCount  int
	SceneCount  int
	Screenplays map[string]Usage
	Metadata    map[string]any // description and other manual fields
}

// HasMetadata reports whether the entry carries any non-empty manual field.
func (p PersistedCharacter) HasMetadata() bool {
	for _, v := range p.Metadata {
		switch x := v.(type) {
		case nil:
		case string:
			if x != "" {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// withUsage returns a copy of p with the contribution of screenplay replaced
// by u (removed when u is nil) and the totals recomputed.
func (p PersistedCharacter) withUsage(screenplay string, u *Usage) PersistedCharacter {
	m := make(map[string]Usage, len(p.Screenplays)+1)
	for k, v := range p.Screenplays {
		if k != screenplay {
			m[k] = v
		}
	}
	if u != nil {
		m[screenplay] = *u
	}
	p.Screenplays = m
	p.UsageCount, p.SceneCount = 0, 0
	for _, v := range m {
		p.UsageCount += v.UsageCount
		p.SceneCount += v.SceneCount
	}
	return p
}

func characterChanged(a, b PersistedCharacter, screenplay string) bool {
	ua, okA := a.Screenplays[screenplay]
	ub, okB := b.Screenplays[screenplay]
	return okA != okB || ua != ub || a.UsageCount != b.UsageCount || a.SceneCount != b.SceneCount || a.Name != b.Name
}

// SyncResult is the reconciled character list plus the changes that produced it.
type SyncResult struct {
	// Characters is the reconciled list: derived order first, then retained entries.
	Characters []PersistedCharacter
	Added      []string // canonical names not persisted before
	Updated    []string // persisted names whose contribution or totals changed
	// Orphaned lists entries no screenplay uses any more and that carry no
	// metadata. They are not part of Characters and may be deleted by the caller.
	Orphaned []PersistedCharacter
}

// SyncCharacters reconciles the characters derived from one screenplay
// against the project's persisted list. Only the contribution of screenplay
// is replaced; other screenplays' usages are kept. Entries with metadata are
// kept even when nothing uses them any more.
func SyncCharacters(persisted []PersistedCharacter, derived []CharacterEntry, screenplay string) SyncResult {
	var res SyncResult
	byName := make(map[string]int, len(persisted))
	for i, p := range persisted {
		byName[CanonicalName(p.Name)] = i
	}
	used := make(map[int]bool, len(derived))
	for _, d := range derived {
		u := Usage{UsageCount: d.UsageCount, SceneCount: d.SceneCount}
		i, ok := byName[d.Name]
		if !ok {
			res.Added = append(res.Added, d.Name)
			res.Characters = append(res.Characters, PersistedCharacter{ID: DocID(d.Name), Name: d.Name}.withUsage(screenplay, &u))
			continue
		}
		used[i] = true
		p := persisted[i]
		q := p.withUsage(screenplay, &u)
		q.Name = d.Name
		if q.ID == "" {
			q.ID = DocID(d.Name)
		}
		if characterChanged(p, q, screenplay) {
			res.Updated = append(res.Updated, d.Name)
		}
		res.Characters = append(res.Characters, q)
	}
	for i, p := range persisted {
		if used[i] {
			continue
		}
		q := p.withUsage(screenplay, nil)
		if len(q.Screenplays) == 0 && !q.HasMetadata() {
			res.Orphaned = append(res.Orphaned, p)
			continue
		}
		if characterChanged(p, q, screenplay) {
			res.Updated = append(res.Updated, CanonicalName(p.Name))
		}
		res.Characters = append(res.Characters, q)
	}
	return res
}

// PersistedHeading is a project-wide unique scene heading as stored.
// Count is the sum of the per-screenplay counts.
type PersistedHeading struct {
	ID          string
	Heading     string
	Count       int
	Screenplays map[string]int
}

// HeadingSyncResult is the reconciled heading list plus the changes that produced it.
type HeadingSyncResult struct {
	Headings []PersistedHeading
	Changed  []string // canonical headings whose stored entry must be written
	// Removed lists entries no screenplay uses any more.
	Removed []PersistedHeading
}

// SyncSceneHeadings replaces the contribution of screenplay to the project's
// heading list with derived, which should be the unbounded CountSceneHeadings result.
func SyncSceneHeadings(persisted []PersistedHeading, derived []SceneHeadingEntry, screenplay string) HeadingSyncResult {
	var res HeadingSyncResult
	want := make(map[string]int, len(derived))
	for _, d := range derived {
		want[CanonicalHeading(d.Heading)] += d.Count
	}
	seen := make(map[string]bool, len(persisted))
	apply := func(p PersistedHeading, key string) {
		m := make(map[string]int, len(p.Screenplays)+1)
		for k, v := range p.Screenplays {
			if k != screenplay {
				m[k] = v
			}
		}
		if n := want[key]; n > 0 {
			m[screenplay] = n
		}
		total := 0
		for _, v := range m {
			total += v
		}
		if len(m) == 0 {
			res.Removed = append(res.Removed, p)
			return
		}
		before, had := p.Screenplays[screenplay]
		after, has := m[screenplay]
		if had != has || before != after || p.Count != total || p.Heading != key {
			res.Changed = append(res.Changed, key)
		}
		p.Heading, p.Count, p.Screenplays = key, total, m
		if p.ID == "" {
			p.ID = DocID(key)
		}
		res.Headings = append(res.Headings, p)
	}
	for _, p := range persisted {
		key := CanonicalHeading(p.Heading)
		if seen[key] {
			continue
		}
		seen[key] = true
		apply(p, key)
	}
	for _, d := range derived {
		key := CanonicalHeading(d.Heading)
		if seen[key] {
			continue
		}
		seen[key] = true
		apply(PersistedHeading{ID: DocID(key)}, key)
	}
	return res
}
