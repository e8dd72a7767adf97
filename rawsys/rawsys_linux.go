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
	"syscall"

	"github.com/riftfs/riftfs/domain"

	"golang.org/x/sys/unix"
)

// Syscall issues one raw kernel trap with up to four arguments and folds
// the Linux negative-errno convention into a Result. RawSyscall6 is used
// rather than Syscall6 so the runtime scheduler is not entered; none of
// the calls issued here block indefinitely.
//
// Syscall is an ordinary function, not a keepalive-annotated trap wrapper:
// a pointer converted to uintptr in its argument list is already dead by
// the time the trap runs. Callers passing buffer pointers must pin the
// referent with runtime.KeepAlive until Syscall returns.
func Syscall(nr uintptr, a1, a2, a3, a4 uintptr) Result {
	r1, _, err := unix.RawSyscall6(nr, a1, a2, a3, a4, 0, 0)
	if err != 0 {
		return errResult(err)
	}
	return okResult(int64(r1))
}

func pathArg(path string) (*byte, syscall.Errno) {
	p, err := unix.BytePtrFromString(path)
	if err != nil {
		// Embedded NUL; the kernel would never see such a path.
		return nil, unix.EINVAL
	}
	return p, 0
}

func rawFcntl(fd int32, cmd int32, arg uint64) Result {
	// The third fcntl argument travels at full register width whether the
	// command treats it as an int or a pointer.
	return Syscall(sysFcntl, uintptr(fd), uintptr(cmd), uintptr(arg), 0)
}

func rawFchmod(fd int32, mode uint32) Result {
	return Syscall(sysFchmod, uintptr(fd), uintptr(mode), 0, 0)
}

func rawClose(fd int32) Result {
	return Syscall(uintptr(unix.SYS_CLOSE), uintptr(fd), 0, 0, 0)
}

func statFromKernel(st *unix.Stat_t, buf *domain.StatBuf) {
	buf.Ino = st.Ino
	buf.Size = st.Size
	buf.Mode = uint32(st.Mode)
	buf.Nlink = uint32(st.Nlink)
	buf.Uid = st.Uid
	buf.Gid = st.Gid
	buf.Mtime = st.Mtim.Sec
}
