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

package rawsys

import (
	"runtime"
	"syscall"
	"unsafe"

	"github.com/riftfs/riftfs/domain"
)

// XNU reports failure through a condition flag set by the trap instruction
// with the error number left in the result register. The libSystem
// trampoline the runtime routes these calls through folds that flag into
// the err return, so the normalization below is identical in shape to the
// Linux side. Both Mach architectures share one BSD syscall number space,
// so no per-architecture bindings are needed here.
//
// Syscall is an ordinary function, not a keepalive-annotated trap wrapper:
// a pointer converted to uintptr in its argument list is already dead by
// the time the trap runs. Callers passing buffer pointers must pin the
// referent with runtime.KeepAlive until Syscall returns.
func Syscall(nr uintptr, a1, a2, a3, a4 uintptr) Result {
	r1, _, err := syscall.Syscall6(nr, a1, a2, a3, a4, 0, 0)
	if err != 0 {
		return errResult(err)
	}
	return okResult(int64(r1))
}

func pathArg(path string) (*byte, syscall.Errno) {
	p, err := syscall.BytePtrFromString(path)
	if err != nil {
		return nil, syscall.EINVAL
	}
	return p, 0
}

func rawOpen(path string, flags int32, mode uint32) Result {
	p, e := pathArg(path)
	if e != 0 {
		return errResult(e)
	}
	r := Syscall(uintptr(syscall.SYS_OPEN),
		uintptr(unsafe.Pointer(p)), uintptr(flags), uintptr(mode), 0)
	runtime.KeepAlive(p)
	return r
}

func rawOpenat(dirfd int32, path string, flags int32, mode uint32) Result {
	p, e := pathArg(path)
	if e != 0 {
		return errResult(e)
	}
	r := Syscall(uintptr(syscall.SYS_OPENAT),
		uintptr(dirfd), uintptr(unsafe.Pointer(p)), uintptr(flags), uintptr(mode))
	runtime.KeepAlive(p)
	return r
}

func rawRename(oldPath string, newPath string) Result {
	po, e := pathArg(oldPath)
	if e != 0 {
		return errResult(e)
	}
	pn, e := pathArg(newPath)
	if e != 0 {
		return errResult(e)
	}
	r := Syscall(uintptr(syscall.SYS_RENAME),
		uintptr(unsafe.Pointer(po)), uintptr(unsafe.Pointer(pn)), 0, 0)
	runtime.KeepAlive(po)
	runtime.KeepAlive(pn)
	return r
}

func rawRenameat(oldDirfd int32, oldPath string, newDirfd int32, newPath string) Result {
	po, e := pathArg(oldPath)
	if e != 0 {
		return errResult(e)
	}
	pn, e := pathArg(newPath)
	if e != 0 {
		return errResult(e)
	}
	r := Syscall(uintptr(syscall.SYS_RENAMEAT),
		uintptr(oldDirfd), uintptr(unsafe.Pointer(po)),
		uintptr(newDirfd), uintptr(unsafe.Pointer(pn)))
	runtime.KeepAlive(po)
	runtime.KeepAlive(pn)
	return r
}

func rawFcntl(fd int32, cmd int32, arg uint64) Result {
	return Syscall(uintptr(syscall.SYS_FCNTL),
		uintptr(fd), uintptr(cmd), uintptr(arg), 0)
}

func rawMkdir(path string, mode uint32) Result {
	p, e := pathArg(path)
	if e != 0 {
		return errResult(e)
	}
	r := Syscall(uintptr(syscall.SYS_MKDIR),
		uintptr(unsafe.Pointer(p)), uintptr(mode), 0, 0)
	runtime.KeepAlive(p)
	return r
}

func rawUnlink(path string) Result {
	p, e := pathArg(path)
	if e != 0 {
		return errResult(e)
	}
	r := Syscall(uintptr(syscall.SYS_UNLINK),
		uintptr(unsafe.Pointer(p)), 0, 0, 0)
	runtime.KeepAlive(p)
	return r
}

func rawStat(path string, buf *domain.StatBuf) Result {
	p, e := pathArg(path)
	if e != 0 {
		return errResult(e)
	}
	var st syscall.Stat_t
	r := Syscall(uintptr(syscall.SYS_STAT64),
		uintptr(unsafe.Pointer(p)), uintptr(unsafe.Pointer(&st)), 0, 0)
	runtime.KeepAlive(p)
	if !r.Err {
		buf.Ino = st.Ino
		buf.Size = st.Size
		buf.Mode = uint32(st.Mode)
		buf.Nlink = uint32(st.Nlink)
		buf.Uid = st.Uid
		buf.Gid = st.Gid
		buf.Mtime = st.Mtimespec.Sec
	}
	return r
}

func rawFchmod(fd int32, mode uint32) Result {
	return Syscall(uintptr(syscall.SYS_FCHMOD),
		uintptr(fd), uintptr(mode), 0, 0)
}

func rawClose(fd int32) Result {
	return Syscall(uintptr(syscall.SYS_CLOSE), uintptr(fd), 0, 0, 0)
}
