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

// Package rawsys issues kernel syscalls directly via the CPU's trap
// mechanism, bypassing every higher layer of this daemon. It is the
// designated hazard-avoidance path: intercepted calls land here whenever
// the bootstrap state machine reports a hazardous phase, and the daemon's
// own internals use it whenever touching the real filesystem must not
// recurse through the interception logic.
//
// The kernels this package supports do not agree on how a trap reports
// failure: the Linux convention is a small negative return value (within
// 4096 of zero) holding the negated error number, while the XNU convention
// is a condition flag set by the trap instruction with the error number in
// the result register. Both are folded into the single Result shape below;
// no caller ever sees a raw kernel encoding.
//
// Functions in this package allocate nothing beyond the argument strings
// they NUL-terminate, take no locks, and call into no other component of
// the daemon.
package rawsys

import (
	"syscall"

	"github.com/riftfs/riftfs/domain"
)

// Result is the normalized outcome of one raw kernel trap.
//
// Invariant: when Err is set, Code holds the positive error number, never
// the kernel's negative-return or carry-flag encoding.
type Result struct {
	Code int64
	Err  bool
}

// Errno returns the error number carried by a failed Result, 0 otherwise.
func (r Result) Errno() syscall.Errno {
	if !r.Err {
		return 0
	}
	return syscall.Errno(r.Code)
}

func errResult(e syscall.Errno) Result {
	return Result{Code: int64(e), Err: true}
}

func okResult(code int64) Result {
	return Result{Code: code}
}

// Backend adapts the raw trap primitives to the dispatch layer's
// pass-through contract: on failure it publishes the error number to the
// calling thread's error slot and returns the sentinel (-1); on success it
// returns the kernel's result unmodified.
type Backend struct {
	errno domain.ErrnoBridgeIface
}

var _ domain.PassthroughIface = (*Backend)(nil)

func NewBackend(errno domain.ErrnoBridgeIface) *Backend {
	return &Backend{errno: errno}
}

func (b *Backend) complete(ctx *domain.SyscallCtx, r Result) int64 {
	if r.Err {
		b.errno.SetErrno(ctx.Tid, syscall.Errno(r.Code))
		return -1
	}
	return r.Code
}

func (b *Backend) Open(ctx *domain.SyscallCtx, path string, flags int32, mode uint32) int64 {
	return b.complete(ctx, rawOpen(path, flags, mode))
}

func (b *Backend) Openat(ctx *domain.SyscallCtx, dirfd int32, path string, flags int32, mode uint32) int64 {
	return b.complete(ctx, rawOpenat(dirfd, path, flags, mode))
}

func (b *Backend) Rename(ctx *domain.SyscallCtx, oldPath string, newPath string) int64 {
	return b.complete(ctx, rawRename(oldPath, newPath))
}

func (b *Backend) Renameat(ctx *domain.SyscallCtx, oldDirfd int32, oldPath string, newDirfd int32, newPath string) int64 {
	return b.complete(ctx, rawRenameat(oldDirfd, oldPath, newDirfd, newPath))
}

func (b *Backend) Fcntl(ctx *domain.SyscallCtx, fd int32, cmd int32, arg uint64) int64 {
	return b.complete(ctx, rawFcntl(fd, cmd, arg))
}

func (b *Backend) Mkdir(ctx *domain.SyscallCtx, path string, mode uint32) int64 {
	return b.complete(ctx, rawMkdir(path, mode))
}

func (b *Backend) Unlink(ctx *domain.SyscallCtx, path string) int64 {
	return b.complete(ctx, rawUnlink(path))
}

func (b *Backend) Stat(ctx *domain.SyscallCtx, path string, buf *domain.StatBuf) int64 {
	return b.complete(ctx, rawStat(path, buf))
}

func (b *Backend) Fchmod(ctx *domain.SyscallCtx, fd int32, mode uint32) int64 {
	return b.complete(ctx, rawFchmod(fd, mode))
}

// Close releases a daemon-held descriptor without recursing through any
// interception logic. Used by the tracer after injecting a descriptor into
// a tracee.
func (b *Backend) Close(fd int32) error {
	r := rawClose(fd)
	if r.Err {
		return syscall.Errno(r.Code)
	}
	return nil
}
