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

package errstate

import (
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBridge_PerThreadIsolation(t *testing.T) {
	b := NewBridge()

	b.SetErrno(100, syscall.ENOENT)
	b.SetErrno(200, syscall.EACCES)

	assert.Equal(t, syscall.ENOENT, b.Errno(100))
	assert.Equal(t, syscall.EACCES, b.Errno(200))

	// Unknown thread reads as zero (no error recorded).
	assert.Equal(t, syscall.Errno(0), b.Errno(300))

	b.ClearThread(100)
	assert.Equal(t, syscall.Errno(0), b.Errno(100))
	assert.Equal(t, syscall.EACCES, b.Errno(200))
}

func TestBridge_LastWriterWins(t *testing.T) {
	b := NewBridge()

	b.SetErrno(1, syscall.EIO)
	b.SetErrno(1, syscall.EPERM)
	assert.Equal(t, syscall.EPERM, b.Errno(1))
}

func TestBridge_ConcurrentAccess(t *testing.T) {
	b := NewBridge()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(tid uint32) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				b.SetErrno(tid, syscall.ENOENT)
				if got := b.Errno(tid); got != syscall.ENOENT {
					t.Errorf("tid %d observed foreign errno %v", tid, got)
					return
				}
			}
			b.ClearThread(tid)
		}(uint32(i))
	}
	wg.Wait()
}
