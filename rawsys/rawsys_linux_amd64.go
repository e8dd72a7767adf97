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
	"unsafe"

	"github.com/riftfs/riftfs/domain"

	"golang.org/x/sys/unix"
)

// x86-64 retains the legacy path-taking syscalls, so the plain variants
// trap directly instead of being routed through their *at counterparts.
const (
	sysFcntl  = uintptr(unix.SYS_FCNTL)
	sysFchmod = uintptr(unix.SYS_FCHMOD)
)

func rawOpen(path string, flags int32, mode uint32) Result {
	p, e := pathArg(path)
	if e != 0 {
		return errResult(e)
	}
	r := Syscall(uintptr(unix.SYS_OPEN),
		uintptr(unsafe.Pointer(p)), uintptr(flags), uintptr(mode), 0)
	runtime.KeepAlive(p)
	return r
}

func rawOpenat(dirfd int32, path string, flags int32, mode uint32) Result {
	p, e := pathArg(path)
	if e != 0 {
		return errResult(e)
	}
	r := Syscall(uintptr(unix.SYS_OPENAT),
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
	r := Syscall(uintptr(unix.SYS_RENAME),
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
	r := Syscall(uintptr(unix.SYS_RENAMEAT),
		uintptr(oldDirfd), uintptr(unsafe.Pointer(po)),
		uintptr(newDirfd), uintptr(unsafe.Pointer(pn)))
	runtime.KeepAlive(po)
	runtime.KeepAlive(pn)
	return r
}

func rawMkdir(path string, mode uint32) Result {
	p, e := pathArg(path)
	if e != 0 {
		return errResult(e)
	}
	r := Syscall(uintptr(unix.SYS_MKDIR),
		uintptr(unsafe.Pointer(p)), uintptr(mode), 0, 0)
	runtime.KeepAlive(p)
	return r
}

func rawUnlink(path string) Result {
	p, e := pathArg(path)
	if e != 0 {
		return errResult(e)
	}
	r := Syscall(uintptr(unix.SYS_UNLINK),
		uintptr(unsafe.Pointer(p)), 0, 0, 0)
	runtime.KeepAlive(p)
	return r
}

func rawStat(path string, buf *domain.StatBuf) Result {
	p, e := pathArg(path)
	if e != 0 {
		return errResult(e)
	}
	var st unix.Stat_t
	r := Syscall(uintptr(unix.SYS_STAT),
		uintptr(unsafe.Pointer(p)), uintptr(unsafe.Pointer(&st)), 0, 0)
	runtime.KeepAlive(p)
	if !r.Err {
		statFromKernel(&st, buf)
	}
	return r
}
