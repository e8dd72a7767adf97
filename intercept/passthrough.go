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
	"github.com/riftfs/riftfs/domain"
)

// kernelContinue is the tracer's pass-through backend. Unlike the
// raw-syscall backend it cannot execute the call on behalf of the tracee
// (the result must materialize in the tracee's own context, resolving
// descriptors and relative paths there), so it marks the context and the
// tracer answers the notification with "continue": the kernel resumes the
// original syscall in the caller as if it had never been intercepted.
//
// The returned value is never delivered to the tracee; once PassedThrough
// is set the frontend discards it.
type kernelContinue struct{}

func NewKernelContinue() domain.PassthroughIface {
	return kernelContinue{}
}

func (kernelContinue) Open(ctx *domain.SyscallCtx, path string, flags int32, mode uint32) int64 {
	ctx.PassedThrough = true
	return 0
}

func (kernelContinue) Openat(ctx *domain.SyscallCtx, dirfd int32, path string, flags int32, mode uint32) int64 {
	ctx.PassedThrough = true
	return 0
}

func (kernelContinue) Rename(ctx *domain.SyscallCtx, oldPath string, newPath string) int64 {
	ctx.PassedThrough = true
	return 0
}

func (kernelContinue) Renameat(ctx *domain.SyscallCtx, oldDirfd int32, oldPath string, newDirfd int32, newPath string) int64 {
	ctx.PassedThrough = true
	return 0
}

func (kernelContinue) Fcntl(ctx *domain.SyscallCtx, fd int32, cmd int32, arg uint64) int64 {
	ctx.PassedThrough = true
	return 0
}

func (kernelContinue) Mkdir(ctx *domain.SyscallCtx, path string, mode uint32) int64 {
	ctx.PassedThrough = true
	return 0
}

func (kernelContinue) Unlink(ctx *domain.SyscallCtx, path string) int64 {
	ctx.PassedThrough = true
	return 0
}

func (kernelContinue) Stat(ctx *domain.SyscallCtx, path string, buf *domain.StatBuf) int64 {
	ctx.PassedThrough = true
	return 0
}

func (kernelContinue) Fchmod(ctx *domain.SyscallCtx, fd int32, mode uint32) int64 {
	ctx.PassedThrough = true
	return 0
}
