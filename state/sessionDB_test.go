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

package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	sts := NewSessionStateService()

	s := sts.SessionCreate(1234, 7)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, uint32(1234), s.Pid())
	assert.Equal(t, int32(7), s.SeccompFd())

	// Not registered until added.
	assert.Nil(t, sts.SessionLookupByPid(1234))
	assert.Equal(t, 0, sts.SessionCount())

	require.NoError(t, sts.SessionAdd(s))
	assert.Equal(t, 1, sts.SessionCount())

	got := sts.SessionLookupByPid(1234)
	require.NotNil(t, got)
	assert.Equal(t, s.ID(), got.ID())

	require.NoError(t, sts.SessionDelete(s))
	assert.Nil(t, sts.SessionLookupByPid(1234))
	assert.Equal(t, 0, sts.SessionCount())
}

func TestSessionAddDuplicatePid(t *testing.T) {
	sts := NewSessionStateService()

	s1 := sts.SessionCreate(99, 3)
	require.NoError(t, sts.SessionAdd(s1))

	s2 := sts.SessionCreate(99, 4)
	assert.ErrorIs(t, sts.SessionAdd(s2), errSessionExists)
	assert.Equal(t, 1, sts.SessionCount())
}

func TestSessionDeleteUnknown(t *testing.T) {
	sts := NewSessionStateService()

	s := sts.SessionCreate(50, 3)
	assert.ErrorIs(t, sts.SessionDelete(s), errSessionUnknown)

	// Deleting a stale handle (same pid, different session id) must not
	// remove the live registration.
	require.NoError(t, sts.SessionAdd(s))
	stale := sts.SessionCreate(50, 3)
	assert.ErrorIs(t, sts.SessionDelete(stale), errSessionUnknown)
	assert.Equal(t, 1, sts.SessionCount())
}

func TestSessionIdsUnique(t *testing.T) {
	sts := NewSessionStateService()

	seen := make(map[string]bool)
	for pid := uint32(1); pid <= 100; pid++ {
		s := sts.SessionCreate(pid, int32(pid))
		require.False(t, seen[s.ID()], "duplicate session id")
		seen[s.ID()] = true
		require.NoError(t, sts.SessionAdd(s))
	}
	assert.Equal(t, 100, sts.SessionCount())
}

func TestSessionConcurrentAccess(t *testing.T) {
	sts := NewSessionStateService()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(base uint32) {
			defer wg.Done()
			for i := uint32(0); i < 100; i++ {
				pid := base + i
				s := sts.SessionCreate(pid, int32(pid))
				if err := sts.SessionAdd(s); err != nil {
					t.Errorf("add pid %d: %v", pid, err)
					return
				}
				if sts.SessionLookupByPid(pid) == nil {
					t.Errorf("lookup miss pid %d", pid)
					return
				}
				if err := sts.SessionDelete(s); err != nil {
					t.Errorf("delete pid %d: %v", pid, err)
					return
				}
			}
		}(uint32((w + 1) * 1000))
	}
	wg.Wait()

	assert.Equal(t, 0, sts.SessionCount())
}
