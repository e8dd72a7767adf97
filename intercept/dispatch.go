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

	"github.com/sirupsen/logrus"
)

// Dispatcher multiplexes every intercepted call between the virtual
// filesystem and the pass-through backend. Each entry point runs the same
// sequence: normalize the raw arguments, query the bootstrap phase, and
// branch.
//
// While the phase is hazardous the virtual filesystem is never consulted,
// whatever the path; pass-through is the safe default during bootstrap.
// Outside the hazard window the virtual filesystem decides per path whether
// it claims the call; the dispatcher never inspects paths itself. A "not
// claimed" answer falls back to pass-through.
//
// Results and error codes propagate byte-for-byte: the dispatcher chooses
// which backend produces the answer and adds nothing of its own.
type Dispatcher struct {
	phase       domain.PhaseMonitorIface
	vfs         domain.VirtualFSIface
	passthrough domain.PassthroughIface
}

func NewDispatcher(
	phase domain.PhaseMonitorIface,
	vfs domain.VirtualFSIface,
	passthrough domain.PassthroughIface) *Dispatcher {

	return &Dispatcher{
		phase:       phase,
		vfs:         vfs,
		passthrough: passthrough,
	}
}

// Open dispatches an open(path, flags, mode...) call. The rawMode register
// value is gated through the trampoline before anything else runs.
func (d *Dispatcher) Open(ctx *domain.SyscallCtx, path string, flags int32, rawMode uint64) int64 {
	mode := modeArg(flags, rawMode)

	if d.phase.IsHazardousPhase() {
		return d.passthrough.Open(ctx, path, flags, mode)
	}
	if ret, claimed := d.vfs.OpenImpl(ctx, path, flags, mode); claimed {
		logrus.Debugf("open(%q) claimed virtually: ret %d, tid %d", path, ret, ctx.Tid)
		return ret
	}
	return d.passthrough.Open(ctx, path, flags, mode)
}

func (d *Dispatcher) Openat(ctx *domain.SyscallCtx, dirfd int32, path string, flags int32, rawMode uint64) int64 {
	mode := modeArg(flags, rawMode)

	if d.phase.IsHazardousPhase() {
		return d.passthrough.Openat(ctx, dirfd, path, flags, mode)
	}
	if ret, claimed := d.vfs.OpenatImpl(ctx, dirfd, path, flags, mode); claimed {
		logrus.Debugf("openat(%d, %q) claimed virtually: ret %d, tid %d", dirfd, path, ret, ctx.Tid)
		return ret
	}
	return d.passthrough.Openat(ctx, dirfd, path, flags, mode)
}

// Openat2 carries a decoded open_how. The call has no legacy variadic
// form: mode arrives explicitly in the struct, so no trampoline gating
// applies. It funnels into the openat contract, which is exact for the
// flag and mode set this layer virtualizes.
//
// Resolve-scoped lookups (RESOLVE_BENEATH and friends) are never claimed:
// the virtual tree has no notion of those scopes, and ignoring them would
// silently loosen the caller's constraint.
func (d *Dispatcher) Openat2(ctx *domain.SyscallCtx, dirfd int32, path string, how openHow) int64 {
	if d.phase.IsHazardousPhase() || how.Resolve != 0 {
		return d.passthrough.Openat(ctx, dirfd, path, int32(how.Flags), uint32(how.Mode))
	}
	if ret, claimed := d.vfs.OpenatImpl(ctx, dirfd, path, int32(how.Flags), uint32(how.Mode)); claimed {
		logrus.Debugf("openat2(%d, %q) claimed virtually: ret %d, tid %d", dirfd, path, ret, ctx.Tid)
		return ret
	}
	return d.passthrough.Openat(ctx, dirfd, path, int32(how.Flags), uint32(how.Mode))
}

func (d *Dispatcher) Rename(ctx *domain.SyscallCtx, oldPath string, newPath string) int64 {
	if d.phase.IsHazardousPhase() {
		return d.passthrough.Rename(ctx, oldPath, newPath)
	}
	if ret, claimed := d.vfs.RenameImpl(ctx, oldPath, newPath); claimed {
		return ret
	}
	return d.passthrough.Rename(ctx, oldPath, newPath)
}

func (d *Dispatcher) Renameat(ctx *domain.SyscallCtx, oldDirfd int32, oldPath string, newDirfd int32, newPath string) int64 {
	if d.phase.IsHazardousPhase() {
		return d.passthrough.Renameat(ctx, oldDirfd, oldPath, newDirfd, newPath)
	}
	if ret, claimed := d.vfs.RenameatImpl(ctx, oldDirfd, oldPath, newDirfd, newPath); claimed {
		return ret
	}
	return d.passthrough.Renameat(ctx, oldDirfd, oldPath, newDirfd, newPath)
}

func (d *Dispatcher) Fcntl(ctx *domain.SyscallCtx, fd int32, cmd int32, rawArg uint64) int64 {
	arg := fcntlArg(rawArg)

	if d.phase.IsHazardousPhase() {
		return d.passthrough.Fcntl(ctx, fd, cmd, arg)
	}
	if ret, claimed := d.vfs.FcntlImpl(ctx, fd, cmd, arg); claimed {
		return ret
	}
	return d.passthrough.Fcntl(ctx, fd, cmd, arg)
}

func (d *Dispatcher) Mkdir(ctx *domain.SyscallCtx, path string, mode uint32) int64 {
	if d.phase.IsHazardousPhase() {
		return d.passthrough.Mkdir(ctx, path, mode)
	}
	if ret, claimed := d.vfs.MkdirImpl(ctx, path, mode); claimed {
		return ret
	}
	return d.passthrough.Mkdir(ctx, path, mode)
}

func (d *Dispatcher) Unlink(ctx *domain.SyscallCtx, path string) int64 {
	if d.phase.IsHazardousPhase() {
		return d.passthrough.Unlink(ctx, path)
	}
	if ret, claimed := d.vfs.UnlinkImpl(ctx, path); claimed {
		return ret
	}
	return d.passthrough.Unlink(ctx, path)
}

func (d *Dispatcher) Stat(ctx *domain.SyscallCtx, path string, buf *domain.StatBuf) int64 {
	if d.phase.IsHazardousPhase() {
		return d.passthrough.Stat(ctx, path, buf)
	}
	if ret, claimed := d.vfs.StatImpl(ctx, path, buf); claimed {
		return ret
	}
	return d.passthrough.Stat(ctx, path, buf)
}

func (d *Dispatcher) Fchmod(ctx *domain.SyscallCtx, fd int32, mode uint32) int64 {
	if d.phase.IsHazardousPhase() {
		return d.passthrough.Fchmod(ctx, fd, mode)
	}
	if ret, claimed := d.vfs.FchmodImpl(ctx, fd, mode); claimed {
		return ret
	}
	return d.passthrough.Fchmod(ctx, fd, mode)
}
