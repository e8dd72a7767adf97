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

// ProcessIface exposes the attributes of a tracee process the interception
// layer needs in order to normalize its syscall arguments: relative paths
// are resolved against the tracee's cwd (or an open directory descriptor),
// never the daemon's own.
type ProcessIface interface {
	Pid() uint32
	Uid() uint32
	Gid() uint32
	Cwd() string
	Root() string

	// GetFd returns the path backing the given descriptor of the tracee
	// (resolved through /proc/<pid>/fd).
	GetFd(fd int32) (string, error)

	// ResolveProcSelf rewrites /proc/self and /proc/thread-self components
	// of the given path so they refer to the tracee, not the daemon.
	ResolveProcSelf(path string) (string, error)
}

type ProcessServiceIface interface {
	Setup(ios IOServiceIface)
	ProcessCreate(pid uint32, uid uint32, gid uint32) ProcessIface
}
