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

import "os"

type Inode = uint64

//
// IOnode interface serves as an abstract-class to represent all the I/O
// resources the daemon itself touches (content-store blobs, manifest
// snapshots, procfs attributes of tracee processes). All such transactions
// go through the methods exposed by this interface so that unit-tests can
// swap the backing filesystem for an in-memory one.
//

type IOServiceType = int

const (
	Unknown          IOServiceType = iota
	IOOsFileService                // host filesystem, production
	IOMemFileService               // in-memory filesystem, unit-testing
)

type IOServiceIface interface {
	NewIOnode(name string, path string, attr os.FileMode) IOnodeIface
	OpenNode(i IOnodeIface) error
	ReadNode(i IOnodeIface, p []byte) (int, error)
	WriteNode(i IOnodeIface, p []byte) (int, error)
	CloseNode(i IOnodeIface) error
	ReadFileNode(i IOnodeIface) ([]byte, error)
	WriteFileNode(i IOnodeIface, p []byte) error
	StatNode(i IOnodeIface) (os.FileInfo, error)
	MkdirAllNode(i IOnodeIface) error
	RemoveNode(i IOnodeIface) error
	PathNode(i IOnodeIface) string
	GetServiceType() IOServiceType
}

type IOnodeIface interface {
	Open() error
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	ReadFile() ([]byte, error)
	WriteFile(p []byte) error
	Mkdir() error
	MkdirAll() error
	Remove() error
	Stat() (os.FileInfo, error)

	Name() string
	Path() string
	OpenFlags() int
	OpenMode() os.FileMode
	SetOpenFlags(flags int)
	SetOpenMode(mode os.FileMode)
}
