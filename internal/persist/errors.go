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
	"errors"
	"fmt"
	"strings"

	"goscreenwriter/internal/store"
)

// Save and load steps reported by PersistenceError.
const (
	StepReadMetadata = "read metadata"
	StepReadContent  = "read content"
	StepReadUIState  = "read ui state"
	StepBootstrap    = "write default scene"
	StepUIState      = "save ui state"
	StepContent      = "save content"
	StepIndexes      = "sync indexes"
)

// NotFoundError reports a missing screenplay or referenced document.
// Editing cannot start without it.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return "not found: " + e.Path }

func (e *NotFoundError) Unwrap() error { return store.ErrNotFound }

// PersistenceError reports a failed store read or write. The in-memory
// state is kept, so the operation can be retried.
type PersistenceError struct {
	Op   string // load, save, index
	Step string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s failed (%s): %v", e.Op, e.Step, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Op, e.Step, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ValidationError lists problems found in stored data. Loading recovers
// from them by substituting defaults; the error is informational.
type ValidationError struct {
	Path     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid document %s: %s", e.Path, strings.Join(e.Problems, "; "))
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
