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

// Package state tracks the tracee sessions registered with the daemon. One
// session exists per process whose seccomp notifications are delivered
// here; registration and teardown are driven by the interception service.
package state

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/riftfs/riftfs/domain"
)

var (
	errSessionExists  = errors.New("state: session already registered for pid")
	errSessionUnknown = errors.New("state: session not found")
)

type sessionStateService struct {
	sync.RWMutex

	// Sessions indexed by session id and by tracee pid. Both tables hold
	// the same *session values; pidTable exists for the notification path,
	// which only ever knows the pid.
	idTable  map[string]*session
	pidTable map[uint32]*session
}

func NewSessionStateService() domain.SessionStateServiceIface {
	return &sessionStateService{
		idTable:  make(map[string]*session),
		pidTable: make(map[uint32]*session),
	}
}

func (sts *sessionStateService) SessionCreate(
	pid uint32, seccompFd int32) domain.SessionIface {

	return newSession(pid, seccompFd)
}

func (sts *sessionStateService) SessionAdd(s domain.SessionIface) error {
	sts.Lock()
	defer sts.Unlock()

	if _, ok := sts.pidTable[s.Pid()]; ok {
		logrus.Errorf("Session for pid %d already present", s.Pid())
		return errSessionExists
	}

	sess, ok := s.(*session)
	if !ok {
		sess = &session{id: s.ID(), pid: s.Pid(), seccompFd: s.SeccompFd()}
	}
	sts.idTable[sess.id] = sess
	sts.pidTable[sess.pid] = sess

	logrus.Debugf("Session %s registered (pid %d, notify fd %d)",
		sess.id, sess.pid, sess.seccompFd)
	return nil
}

func (sts *sessionStateService) SessionDelete(s domain.SessionIface) error {
	sts.Lock()
	defer sts.Unlock()

	sess, ok := sts.pidTable[s.Pid()]
	if !ok || sess.id != s.ID() {
		return errSessionUnknown
	}
	delete(sts.idTable, sess.id)
	delete(sts.pidTable, sess.pid)

	logrus.Debugf("Session %s deleted (pid %d)", sess.id, sess.pid)
	return nil
}

func (sts *sessionStateService) SessionLookupByPid(pid uint32) domain.SessionIface {
	sts.RLock()
	defer sts.RUnlock()

	sess, ok := sts.pidTable[pid]
	if !ok {
		return nil
	}
	return sess
}

func (sts *sessionStateService) SessionCount() int {
	sts.RLock()
	defer sts.RUnlock()

	return len(sts.pidTable)
}
