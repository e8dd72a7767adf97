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

package vfs

import (
	"sync/atomic"
)

// fdTableSize bounds the descriptor numbers the table can track; it matches
// the usual RLIMIT_NOFILE hard ceiling.
const fdTableSize = 1 << 16

// openFd records one live descriptor handed out by a claimed open.
type openFd struct {
	path  string // virtual path the descriptor was opened at
	flags int32  // open flags after normalization
	dir   bool
}

// fdTable is a flat, lock-free descriptor table indexed by fd number.
// Registration and release are single CAS operations, lookups a single
// atomic load, so concurrent open/close traffic never serializes here.
type fdTable struct {
	slots [fdTableSize]atomic.Pointer[openFd]
	live  atomic.Int64
}

func newFdTable() *fdTable {
	return &fdTable{}
}

// register claims the slot for fd. Registering an fd that is already live
// means a descriptor number was reused without release; that is a
// bookkeeping bug, reported to the caller.
func (t *fdTable) register(fd int32, e *openFd) error {
	if fd < 0 || int(fd) >= fdTableSize {
		return ErrBadFd
	}
	if !t.slots[fd].CompareAndSwap(nil, e) {
		return ErrFdBusy
	}
	t.live.Add(1)
	return nil
}

func (t *fdTable) lookup(fd int32) (*openFd, bool) {
	if fd < 0 || int(fd) >= fdTableSize {
		return nil, false
	}
	e := t.slots[fd].Load()
	return e, e != nil
}

// release empties the slot for fd and returns its record.
func (t *fdTable) release(fd int32) (*openFd, bool) {
	if fd < 0 || int(fd) >= fdTableSize {
		return nil, false
	}
	e := t.slots[fd].Swap(nil)
	if e == nil {
		return nil, false
	}
	t.live.Add(-1)
	return e, true
}

// liveCount returns the number of registered descriptors.
func (t *fdTable) liveCount() int64 {
	return t.live.Load()
}
