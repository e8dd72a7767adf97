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

type IpcServiceIface interface {
	Setup(vfs VirtualFSServiceIface, sts SessionStateServiceIface) error
	Init() error
	Close() error
}

// SessionIface represents one registered tracee: a process whose syscalls
// are being delivered to this daemon.
type SessionIface interface {
	ID() string
	Pid() uint32
	SeccompFd() int32
}

type SessionStateServiceIface interface {
	SessionCreate(pid uint32, seccompFd int32) SessionIface
	SessionAdd(s SessionIface) error
	SessionDelete(s SessionIface) error
	SessionLookupByPid(pid uint32) SessionIface
	SessionCount() int
}
