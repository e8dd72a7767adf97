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

// Package errstate implements the per-thread error-code bridge shared by
// the raw-syscall backend and the virtual filesystem.
//
// POSIX reports failures through a per-thread errno; the interception layer
// mirrors that convention with one error slot per calling kernel thread,
// keyed by the tid each notification carries. Whichever component completes
// an intercepted call last (raw backend or VFS) is authoritative for the
// slot; after a successful call the slot's content is meaningless and must
// not be consulted.
package errstate

import (
	"sync"
	"syscall"

	"github.com/riftfs/riftfs/domain"
)

type bridge struct {
	mu    sync.RWMutex
	slots map[uint32]syscall.Errno
}

// NewBridge returns an empty errno bridge.
func NewBridge() domain.ErrnoBridgeIface {
	return &bridge{
		slots: make(map[uint32]syscall.Errno),
	}
}

func (b *bridge) SetErrno(tid uint32, errno syscall.Errno) {
	b.mu.Lock()
	b.slots[tid] = errno
	b.mu.Unlock()
}

func (b *bridge) Errno(tid uint32) syscall.Errno {
	b.mu.RLock()
	e := b.slots[tid]
	b.mu.RUnlock()
	return e
}

// ClearThread drops the slot of an exited thread so the table does not grow
// unboundedly across tracee generations.
func (b *bridge) ClearThread(tid uint32) {
	b.mu.Lock()
	delete(b.slots, tid)
	b.mu.Unlock()
}
