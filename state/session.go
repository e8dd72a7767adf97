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
	"time"

	"github.com/google/uuid"
)

// session holds the state of one registered tracee.
type session struct {
	id        string
	pid       uint32
	seccompFd int32
	ctime     time.Time
}

func newSession(pid uint32, seccompFd int32) *session {
	return &session{
		id:        uuid.New().String(),
		pid:       pid,
		seccompFd: seccompFd,
		ctime:     time.Now(),
	}
}

func (s *session) ID() string {
	return s.id
}

func (s *session) Pid() uint32 {
	return s.pid
}

func (s *session) SeccompFd() int32 {
	return s.seccompFd
}

func (s *session) Ctime() time.Time {
	return s.ctime
}
