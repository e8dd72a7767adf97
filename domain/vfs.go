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

// VnodeEntry describes one virtual filesystem object held in the manifest.
// The struct crosses the IPC boundary, hence the explicit json tags.
type VnodeEntry struct {
	Path        string   `json:"path"`
	ContentHash [32]byte `json:"contentHash"`
	Size        int64    `json:"size"`
	Mode        uint32   `json:"mode"`
	Mtime       int64    `json:"mtime"`
	Kind        VnodeKind `json:"kind"`
}

type VnodeKind uint8

const (
	VnodeFile VnodeKind = iota
	VnodeDir
	VnodeSymlink
)

func (e *VnodeEntry) IsDir() bool { return e.Kind == VnodeDir }

// VirtualFSIface is the operation contract the interception dispatch calls
// into when the bootstrap phase is not hazardous. Every method returns the
// call's result plus a claimed flag: claimed == false means the path (or
// descriptor) is outside the virtual filesystem and the call must be passed
// through to the real kernel untouched. On a claimed failure the method
// returns the sentinel (-1) and sets the caller's error slot through the
// errno bridge before returning; the dispatch layer propagates both
// byte-for-byte and never re-interprets them.
type VirtualFSIface interface {
	OpenImpl(ctx *SyscallCtx, path string, flags int32, mode uint32) (ret int64, claimed bool)
	OpenatImpl(ctx *SyscallCtx, dirfd int32, path string, flags int32, mode uint32) (ret int64, claimed bool)
	RenameImpl(ctx *SyscallCtx, oldPath string, newPath string) (ret int64, claimed bool)
	RenameatImpl(ctx *SyscallCtx, oldDirfd int32, oldPath string, newDirfd int32, newPath string) (ret int64, claimed bool)
	FcntlImpl(ctx *SyscallCtx, fd int32, cmd int32, arg uint64) (ret int64, claimed bool)
	MkdirImpl(ctx *SyscallCtx, path string, mode uint32) (ret int64, claimed bool)
	UnlinkImpl(ctx *SyscallCtx, path string) (ret int64, claimed bool)
	StatImpl(ctx *SyscallCtx, path string, buf *StatBuf) (ret int64, claimed bool)
	FchmodImpl(ctx *SyscallCtx, fd int32, mode uint32) (ret int64, claimed bool)
}

// VirtualFSServiceIface extends the operation contract with the service
// lifecycle and the manifest surface the IPC control plane operates on.
type VirtualFSServiceIface interface {
	VirtualFSIface

	// Setup constructs the service's internal state (manifest, content
	// store, descriptor table). It performs its own filesystem I/O under
	// the phase monitor's re-entrant marker and advances the phase to
	// Ready on success.
	Setup() error

	// CloseFd releases a descriptor previously produced by a claimed open.
	// Frontends call it once the descriptor has been handed over (injected
	// into a tracee) or is otherwise no longer needed.
	CloseFd(fd int32) error

	// Manifest surface, consumed by the IPC service.
	ManifestGet(path string) (*VnodeEntry, bool)
	ManifestUpsert(entry VnodeEntry) error
	ManifestRemove(path string) error
	ManifestListDir(path string) ([]*VnodeEntry, error)

	// Prefixes returns the configured virtual path prefixes.
	Prefixes() []string
}
