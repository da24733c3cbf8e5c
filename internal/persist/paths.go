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
	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/store"
)

// Document locations for one screenplay.

func metadataPath(r domain.ScreenplayRef) string {
	return store.Join("projects", r.Project, "screenplays", r.Screenplay)
}

func scenesCollection(r domain.ScreenplayRef) string {
	return store.Join(metadataPath(r), "scenes")
}

func scenePath(r domain.ScreenplayRef, sceneID string) string {
	return store.Join(scenesCollection(r), sceneID)
}

func uiStatePath(r domain.ScreenplayRef) string {
	return store.Join(metadataPath(r), "editor", "state")
}

func charactersCollection(r domain.ScreenplayRef) string {
	return store.Join("projects", r.Project, "characters")
}

func headingsCollection(r domain.ScreenplayRef) string {
	return store.Join("projects", r.Project, "unique_scene_headings")
}
