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

//go:build linux

package intercept

import (
	"errors"
	"fmt"
	"reflect"
	"syscall"
	"testing"
	"unsafe"
)

func Test_syscallTracer_createErrorResponse(t *testing.T) {

	// Expected results.

	var r1 = &sysResponse{
		ID:    0,
		Error: int32(syscall.EPERM),
		Val:   0,
		Flags: 0,
	}
	var r2 = &sysResponse{
		ID:    1,
		Error: int32(syscall.EINVAL),
		Val:   0,
		Flags: 0,
	}

	type args struct {
		id  uint64
		err error
	}
	tests := []struct {
		name string
		args args
		want *sysResponse
	}{
		// A received syscall.Errno error must be honored (no modifications allowed).
		{"1", args{0, syscall.EPERM}, r1},

		// Verify that "errorString" errors are properly type-asserted.
		{"2", args{1, fmt.Errorf("testing errorString error type 1")}, r2},

		// Same as above but with another error constructor.
		{"3", args{1, errors.New("testing errorString error type 2")}, r2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer := &syscallTracer{
				calls: nil,
			}
			if got := tracer.createErrorResponse(tt.args.id, tt.args.err); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("syscallTracer.createErrorResponse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_syscallTracer_createContinueResponse(t *testing.T) {
	tracer := &syscallTracer{}

	resp := tracer.createContinueResponse(55)
	if resp.ID != 55 || resp.Error != 0 || resp.Val != 0 || resp.Flags == 0 {
		t.Errorf("unexpected continue response: %+v", resp)
	}
}

// A session must remember every injected descriptor pair and every tid it
// saw, and hand both back exactly once at teardown: the daemon-side fds
// are the keys fcntl/fchmod resolve against, and the tids own error slots
// that would otherwise leak across tracee generations.
func Test_traceeSessionTracking(t *testing.T) {
	s := newTraceeSession(1234, 10, 0)

	s.trackInjected(7, 88)
	s.trackInjected(9, 91)
	s.trackTid(1234)
	s.trackTid(1235)
	s.trackTid(1235) // duplicate notifications collapse

	if dfd, ok := s.translate(7); !ok || dfd != 88 {
		t.Errorf("translate(7) = %d, %v; want 88, true", dfd, ok)
	}
	if _, ok := s.translate(8); ok {
		t.Errorf("translate(8) matched an fd that was never injected")
	}

	tids, daemonFds := s.drain()
	if len(tids) != 2 {
		t.Errorf("drain() returned %d tids, want 2", len(tids))
	}
	if len(daemonFds) != 2 {
		t.Errorf("drain() returned %d daemon fds, want 2", len(daemonFds))
	}
	if _, ok := s.translate(7); ok {
		t.Errorf("translate(7) matched after drain")
	}
	if tids2, fds2 := s.drain(); len(tids2) != 0 || len(fds2) != 0 {
		t.Errorf("second drain() not empty: %v, %v", tids2, fds2)
	}
}

// fd-taking notifications resolve the tracee's descriptor number through
// the session that delivered them; unknown numbers and unknown sessions
// must both decline.
func Test_syscallTracer_translateFd(t *testing.T) {
	tracer := &syscallTracer{sessions: make(map[int32]*traceeSession)}

	s := newTraceeSession(42, 5, 0)
	s.trackInjected(3, 77)
	tracer.sessions[5] = s

	if dfd, ok := tracer.translateFd(5, 3); !ok || dfd != 77 {
		t.Errorf("translateFd(5, 3) = %d, %v; want 77, true", dfd, ok)
	}
	if _, ok := tracer.translateFd(5, 4); ok {
		t.Errorf("translateFd(5, 4) matched an untracked fd")
	}
	if _, ok := tracer.translateFd(6, 3); ok {
		t.Errorf("translateFd(6, 3) matched an unknown session")
	}
}

// The addfd ioctl payload layout is part of the kernel ABI; a drifting
// struct size silently breaks descriptor injection.
func Test_seccompNotifAddFdLayout(t *testing.T) {
	if size := unsafe.Sizeof(seccompNotifAddFd{}); size != 24 {
		t.Errorf("seccompNotifAddFd size = %d, want 24", size)
	}
}

func Test_kernelAtLeast(t *testing.T) {
	// Any kernel able to run this test satisfies these.
	ok, err := kernelAtLeast(2, 6)
	if err != nil || !ok {
		t.Errorf("kernelAtLeast(2, 6) = %v, %v", ok, err)
	}

	ok, err = kernelAtLeast(999, 0)
	if err != nil || ok {
		t.Errorf("kernelAtLeast(999, 0) = %v, %v", ok, err)
	}
}
