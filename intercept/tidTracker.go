//
// Copyright 2024-2026 The Riftfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package intercept

import (
	"sync"
)

// The notifTidTracker helps serialize the processing of syscall
// notifications per thread, so that only one notification is processed per
// thread-id (tid) at any given time. Notifications of different tids
// proceed in parallel; this matches the kernel's own guarantee that a
// stopped thread has at most one notification in flight, while protecting
// the per-thread error slot from interleaved writers.

type notifTidTracker struct {
	mu       sync.RWMutex
	tidTable map[uint32]*tidData
}

type tidData struct {
	refcnt int
	mu     sync.Mutex
}

func newNotifTidTracker() *notifTidTracker {
	return &notifTidTracker{
		tidTable: make(map[uint32]*tidData),
	}
}

// Adds the given tid to the tracker's table of tracked tids.
func (t *notifTidTracker) track(tid uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// If tid not present in tidTable, add entry with count = 1; else
	// increase the tid's refcount.
	td, ok := t.tidTable[tid]
	if !ok {
		t.tidTable[tid] = &tidData{refcnt: 1}
	} else {
		td.refcnt++
		t.tidTable[tid] = td
	}
}

// Removes the given tid from the tracker's table of tracked tids.
func (t *notifTidTracker) untrack(tid uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	td, ok := t.tidTable[tid]
	if !ok {
		return
	}

	td.refcnt--

	if td.refcnt > 0 {
		t.tidTable[tid] = td
	} else {
		delete(t.tidTable, tid)
	}
}

// Requests a lock on the given tid. Blocks if another goroutine has it.
func (t *notifTidTracker) Lock(tid uint32) {
	t.track(tid)

	t.mu.RLock()
	td, ok := t.tidTable[tid]
	t.mu.RUnlock()
	if !ok {
		return
	}

	// Grab the per-tid lock.
	td.mu.Lock()
}

// Releases the lock on the given tid. Must be called after Lock().
func (t *notifTidTracker) Unlock(tid uint32) {
	t.mu.RLock()
	td, ok := t.tidTable[tid]
	t.mu.RUnlock()
	if !ok {
		return
	}

	// Release the per-tid lock.
	td.mu.Unlock()

	t.untrack(tid)
}
