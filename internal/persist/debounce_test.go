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
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerRunsLatestOnce(t *testing.T) {
	d := NewDebouncer(time.Hour)
	var got atomic.Int32
	for i := 1; i <= 5; i++ {
		v := int32(i)
		d.Schedule(func() { got.Store(v) })
	}
	if !d.Pending() {
		t.Fatalf("expected pending write")
	}
	if !d.Flush() {
		t.Fatalf("flush should run the pending write")
	}
	if got.Load() != 5 {
		t.Fatalf("expected latest function to run, got %d", got.Load())
	}
	if d.Pending() || d.Flush() {
		t.Fatalf("nothing should be pending after flush")
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(time.Hour)
	ran := false
	d.Schedule(func() { ran = true })
	if !d.Cancel() {
		t.Fatalf("cancel should report the pending write")
	}
	d.Flush()
	if ran {
		t.Fatalf("cancelled write must not run")
	}
}

func TestDebouncerFiresAfterQuietPeriod(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	done := make(chan struct{})
	var calls atomic.Int32
	d.Schedule(func() { calls.Add(1) })
	d.Schedule(func() { calls.Add(1); close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("debounced write did not fire")
	}
	d.Flush()
	if calls.Load() != 1 {
		t.Fatalf("expected a single run, got %d", calls.Load())
	}
}

func TestDebouncerZeroDelayRunsImmediately(t *testing.T) {
	d := NewDebouncer(0)
	ran := false
	d.Schedule(func() { ran = true })
	if !ran || d.Pending() {
		t.Fatalf("zero delay must run synchronously")
	}
}
