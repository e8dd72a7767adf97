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

// Package sysio concentrates the daemon's own file I/O (content-store
// blobs, manifest snapshots, procfs reads) behind the IOnode abstraction,
// so the backing filesystem can be swapped for an in-memory one in tests.
package sysio

import (
	"os"

	"github.com/riftfs/riftfs/domain"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Ensure the specializations implement the service interfaces.
var _ domain.IOnodeIface = (*IOnodeFile)(nil)
var _ domain.IOServiceIface = (*ioFileService)(nil)

func NewIOService(t domain.IOServiceType) domain.IOServiceIface {

	switch t {
	case domain.IOOsFileService:
		return &ioFileService{fs: afero.NewOsFs(), kind: domain.IOOsFileService}

	case domain.IOMemFileService:
		return &ioFileService{fs: afero.NewMemMapFs(), kind: domain.IOMemFileService}

	default:
		logrus.Panicf("Unsupported ioService required: %v", t)
	}

	return nil
}

// I/O service providing filesystem interaction capabilities over an afero
// backend.
type ioFileService struct {
	fs   afero.Fs
	kind domain.IOServiceType
}

func (s *ioFileService) NewIOnode(n string, p string, attr os.FileMode) domain.IOnodeIface {
	return &IOnodeFile{
		name: n,
		path: p,
		attr: attr,
		fs:   s.fs,
	}
}

func (s *ioFileService) OpenNode(i domain.IOnodeIface) error {
	return i.Open()
}

func (s *ioFileService) ReadNode(i domain.IOnodeIface, p []byte) (int, error) {
	return i.Read(p)
}

func (s *ioFileService) WriteNode(i domain.IOnodeIface, p []byte) (int, error) {
	return i.Write(p)
}

func (s *ioFileService) CloseNode(i domain.IOnodeIface) error {
	return i.Close()
}

func (s *ioFileService) ReadFileNode(i domain.IOnodeIface) ([]byte, error) {
	return i.ReadFile()
}

func (s *ioFileService) WriteFileNode(i domain.IOnodeIface, p []byte) error {
	return i.WriteFile(p)
}

func (s *ioFileService) StatNode(i domain.IOnodeIface) (os.FileInfo, error) {
	return i.Stat()
}

func (s *ioFileService) MkdirAllNode(i domain.IOnodeIface) error {
	return i.MkdirAll()
}

func (s *ioFileService) RemoveNode(i domain.IOnodeIface) error {
	return i.Remove()
}

func (s *ioFileService) PathNode(i domain.IOnodeIface) string {
	return i.Path()
}

func (s *ioFileService) GetServiceType() domain.IOServiceType {
	return s.kind
}

// IOnode specialization for filesystem interaction.
type IOnodeFile struct {
	name  string
	path  string
	flags int
	attr  os.FileMode
	fs    afero.Fs
	file  afero.File
}

func (i *IOnodeFile) Open() error {
	file, err := i.fs.OpenFile(i.path, i.flags, i.attr)
	if err != nil {
		return err
	}

	i.file = file
	return nil
}

func (i *IOnodeFile) Read(p []byte) (int, error) {
	return i.file.Read(p)
}

func (i *IOnodeFile) Write(p []byte) (int, error) {
	return i.file.Write(p)
}

func (i *IOnodeFile) Close() error {
	return i.file.Close()
}

func (i *IOnodeFile) ReadFile() ([]byte, error) {
	return afero.ReadFile(i.fs, i.path)
}

func (i *IOnodeFile) WriteFile(p []byte) error {
	return afero.WriteFile(i.fs, i.path, p, i.attr)
}

func (i *IOnodeFile) Mkdir() error {
	return i.fs.Mkdir(i.path, i.attr)
}

func (i *IOnodeFile) MkdirAll() error {
	return i.fs.MkdirAll(i.path, i.attr)
}

func (i *IOnodeFile) Remove() error {
	return i.fs.Remove(i.path)
}

func (i *IOnodeFile) Stat() (os.FileInfo, error) {
	return i.fs.Stat(i.path)
}

func (i *IOnodeFile) Name() string {
	return i.name
}

func (i *IOnodeFile) Path() string {
	return i.path
}

func (i *IOnodeFile) OpenFlags() int {
	return i.flags
}

func (i *IOnodeFile) OpenMode() os.FileMode {
	return i.attr
}

func (i *IOnodeFile) SetOpenFlags(flags int) {
	i.flags = flags
}

func (i *IOnodeFile) SetOpenMode(mode os.FileMode) {
	i.attr = mode
}
