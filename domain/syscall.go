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

package domain

import "syscall"

// SyscallCtx identifies one intercepted call as it travels through the
// dispatch pipeline. It carries the identity of the kernel thread that
// issued the call (the per-thread error slot is keyed by Tid) plus the
// bookkeeping the answering frontend needs.
type SyscallCtx struct {
	Tid   uint32 // kernel thread-id of the caller
	ReqId uint64 // notification id (zero for in-process calls)
	Uid   uint32 // effective uid of the caller
	Gid   uint32 // effective gid of the caller

	// PassedThrough is set by a frontend-owned passthrough backend that
	// cannot produce the result itself and instead defers the call back to
	// the kernel (seccomp "continue" semantics). Frontends that execute
	// pass-through calls eagerly (the raw-syscall backend) never set it.
	PassedThrough bool
}

// StatBuf is the normalized stat payload exchanged across the dispatch
// boundary. Whoever answers the call (raw backend or VFS) fills it; the
// frontend is responsible for encoding it into the caller's ABI-specific
// struct stat.
type StatBuf struct {
	Ino   uint64
	Size  int64
	Mode  uint32
	Nlink uint32
	Uid   uint32
	Gid   uint32
	Mtime int64
}

// PassthroughIface is "the real function": the backend a dispatch entry
// invokes when the call must reach the real filesystem, either because the
// bootstrap phase is hazardous or because the VFS declined to claim the
// path. Two implementations exist: the raw-syscall backend (executes the
// call directly against the kernel) and the tracer's kernel-continue
// backend (marks the context PassedThrough and lets the kernel resume the
// original syscall in the caller's own context).
//
// Every method mirrors the return convention of the call it stands in for:
// a sentinel negative result on failure with the caller's error slot set
// through the errno bridge.
type PassthroughIface interface {
	Open(ctx *SyscallCtx, path string, flags int32, mode uint32) int64
	Openat(ctx *SyscallCtx, dirfd int32, path string, flags int32, mode uint32) int64
	Rename(ctx *SyscallCtx, oldPath string, newPath string) int64
	Renameat(ctx *SyscallCtx, oldDirfd int32, oldPath string, newDirfd int32, newPath string) int64
	Fcntl(ctx *SyscallCtx, fd int32, cmd int32, arg uint64) int64
	Mkdir(ctx *SyscallCtx, path string, mode uint32) int64
	Unlink(ctx *SyscallCtx, path string) int64
	Stat(ctx *SyscallCtx, path string, buf *StatBuf) int64
	Fchmod(ctx *SyscallCtx, fd int32, mode uint32) int64
}

// ErrnoBridgeIface is the neutral accessor pair through which both the
// raw-syscall backend and the VFS observe and publish the per-thread error
// code. The last component to complete a call is authoritative; the value
// must not be trusted after a successful call.
type ErrnoBridgeIface interface {
	SetErrno(tid uint32, errno syscall.Errno)
	Errno(tid uint32) syscall.Errno

	// ClearThread drops the slot of a thread that is known to have exited.
	ClearThread(tid uint32)
}
