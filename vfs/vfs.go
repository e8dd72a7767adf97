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

// Package vfs implements the virtual filesystem the interception layer
// dispatches into: a prefix-scoped, manifest-driven tree whose regular
// files are materialized from a content-addressable blob store. The service
// claims only paths below its configured prefixes; everything else is
// declined so the dispatch layer can fall back to the real kernel.
package vfs

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/sirupsen/logrus"

	"github.com/riftfs/riftfs/domain"
	"github.com/riftfs/riftfs/rawsys"
)

var (
	ErrNotFound   = errors.New("vfs: no such vnode")
	ErrNotDir     = errors.New("vfs: vnode is not a directory")
	ErrIsDir      = errors.New("vfs: vnode is a directory")
	ErrNotEmpty   = errors.New("vfs: directory not empty")
	ErrInvalid    = errors.New("vfs: invalid vnode operation")
	ErrNotManaged = errors.New("vfs: path outside managed prefixes")
	ErrBadFd      = errors.New("vfs: descriptor out of table range")
	ErrFdBusy     = errors.New("vfs: descriptor slot already registered")
)

// Service implements domain.VirtualFSServiceIface. The virtual tree is
// read-only through the syscall surface except for namespace operations
// (mkdir, unlink, rename, fchmod); content enters through the manifest API
// on the control plane.
type Service struct {
	phase domain.PhaseMonitorIface
	errno domain.ErrnoBridgeIface
	raw   *rawsys.Backend
	ios   domain.IOServiceIface

	prefixes   *iradix.Tree
	prefixList []string

	mfst *manifest
	cas  *contentStore
	fdt  *fdTable

	// store is nil when dataDir is empty (ephemeral mode, unit tests).
	store   *manifestStore
	storeMu sync.Mutex
	dataDir string
}

// NewService wires the virtual filesystem. prefixes are the absolute paths
// the service claims; dataDir holds the content store, the directory
// skeleton and the manifest database, or is empty for an ephemeral tree.
func NewService(
	phase domain.PhaseMonitorIface,
	errno domain.ErrnoBridgeIface,
	raw *rawsys.Backend,
	ios domain.IOServiceIface,
	prefixes []string,
	dataDir string) *Service {

	tree := iradix.New()
	var list []string
	for _, p := range prefixes {
		clean := filepath.Clean(p)
		if !filepath.IsAbs(clean) {
			logrus.Panicf("virtual prefix %q is not absolute", p)
		}
		tree, _, _ = tree.Insert([]byte(clean), clean)
		list = append(list, clean)
	}

	return &Service{
		phase:      phase,
		errno:      errno,
		raw:        raw,
		ios:        ios,
		prefixes:   tree,
		prefixList: list,
		mfst:       newManifest(),
		cas:        newContentStore(ios, filepath.Join(dataDir, "store")),
		fdt:        newFdTable(),
		dataDir:    dataDir,
	}
}

// Setup builds the service's internal state. All of its filesystem I/O runs
// under the re-entrant marker so intercepted calls issued meanwhile cannot
// recurse into the half-built tree. Advances the phase to Ready on success.
func (s *Service) Setup() error {
	release := s.phase.EnterReentrant()
	defer release()

	if s.dataDir != "" {
		dir := s.ios.NewIOnode("", s.dataDir, 0700)
		if err := s.ios.MkdirAllNode(dir); err != nil {
			return err
		}
	}
	if err := s.cas.init(); err != nil {
		return err
	}

	if s.dataDir != "" {
		store, err := openManifestStore(filepath.Join(s.dataDir, "manifest.db"))
		if err != nil {
			return err
		}
		s.store = store

		entries, err := store.load()
		if err != nil {
			return err
		}
		for _, e := range entries {
			s.mfst.upsert(e)
		}
	}

	// The prefix roots always exist as directories, whether or not the
	// persisted manifest mentions them.
	for _, p := range s.prefixList {
		if _, ok := s.mfst.get(p); !ok {
			s.mfst.upsert(domain.VnodeEntry{Path: p, Mode: 0755, Kind: domain.VnodeDir})
		}
		if err := s.makeSkelDir(p); err != nil {
			return err
		}
	}

	s.phase.Advance(domain.Ready)

	logrus.Infof("vfs service ready: %d prefixes, %d vnodes",
		len(s.prefixList), s.mfst.len())
	return nil
}

// Close snapshots the manifest and releases the persistence handle.
func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	if err := s.store.snapshot(s.mfst.entries()); err != nil {
		logrus.Warnf("Failed to snapshot manifest on close: %v", err)
	}
	return s.store.close()
}

func (s *Service) Prefixes() []string {
	out := make([]string, len(s.prefixList))
	copy(out, s.prefixList)
	return out
}

// claimed reports whether path falls under a configured prefix, returning
// the cleaned path. Matching is per path component: /virt never claims
// /virtual.
func (s *Service) claimed(path string) (string, bool) {
	if !filepath.IsAbs(path) {
		return path, false
	}
	clean := filepath.Clean(path)

	prefix, _, ok := s.prefixes.Root().LongestPrefix([]byte(clean))
	if !ok {
		return clean, false
	}
	p := string(prefix)
	if clean != p && !strings.HasPrefix(clean, p+"/") {
		return clean, false
	}
	return clean, true
}

// fail publishes errno through the bridge and yields the call's sentinel.
func (s *Service) fail(ctx *domain.SyscallCtx, errno syscall.Errno) int64 {
	s.errno.SetErrno(ctx.Tid, errno)
	return -1
}

//
// Syscall operation contract.
//

func (s *Service) OpenImpl(
	ctx *domain.SyscallCtx, path string, flags int32, mode uint32) (int64, bool) {

	clean, ok := s.claimed(path)
	if !ok {
		return 0, false
	}

	entry, ok := s.mfst.get(clean)
	if !ok {
		if flags&syscall.O_CREAT != 0 {
			// Content only enters through the manifest API.
			return s.fail(ctx, syscall.EROFS), true
		}
		return s.fail(ctx, syscall.ENOENT), true
	}

	accmode := flags & syscall.O_ACCMODE
	if accmode != syscall.O_RDONLY || flags&syscall.O_TRUNC != 0 {
		if entry.IsDir() {
			return s.fail(ctx, syscall.EISDIR), true
		}
		return s.fail(ctx, syscall.EROFS), true
	}

	var backing string
	if entry.IsDir() {
		backing = s.skelPath(clean)
	} else {
		if !s.cas.has(entry.ContentHash) {
			logrus.Errorf("vnode %s references missing blob %x", clean, entry.ContentHash[:4])
			return s.fail(ctx, syscall.EIO), true
		}
		backing = s.cas.blobPath(entry.ContentHash)
	}

	openFlags := flags | syscall.O_CLOEXEC
	ret := s.raw.Open(ctx, backing, openFlags, 0)
	if ret < 0 {
		// The bridge already holds the raw backend's errno, but a missing
		// backing object is store corruption, not a caller mistake.
		if s.errno.Errno(ctx.Tid) == syscall.ENOENT {
			s.errno.SetErrno(ctx.Tid, syscall.EIO)
		}
		return -1, true
	}

	if err := s.fdt.register(int32(ret), &openFd{
		path:  clean,
		flags: openFlags,
		dir:   entry.IsDir(),
	}); err != nil {
		logrus.Errorf("Failed to track descriptor %d for %s: %v", ret, clean, err)
		s.raw.Close(int32(ret))
		return s.fail(ctx, syscall.EMFILE), true
	}
	return ret, true
}

func (s *Service) OpenatImpl(
	ctx *domain.SyscallCtx, dirfd int32, path string, flags int32, mode uint32) (int64, bool) {

	// Relative paths reach this point only when the frontend could not
	// resolve the anchor descriptor; they are never ours.
	if !filepath.IsAbs(path) {
		return 0, false
	}
	return s.OpenImpl(ctx, path, flags, mode)
}

func (s *Service) RenameImpl(
	ctx *domain.SyscallCtx, oldPath string, newPath string) (int64, bool) {

	oldClean, oldIn := s.claimed(oldPath)
	newClean, newIn := s.claimed(newPath)

	if !oldIn && !newIn {
		return 0, false
	}
	// A rename across the virtual boundary would have to move content
	// between the manifest and the real filesystem; callers get the same
	// answer a cross-device rename does.
	if oldIn != newIn {
		return s.fail(ctx, syscall.EXDEV), true
	}

	// Prefix roots anchor the virtual tree; they move for no one.
	for _, p := range s.prefixList {
		if oldClean == p || newClean == p {
			return s.fail(ctx, syscall.EBUSY), true
		}
	}
	if _, ok := s.mfst.get(parentOf(newClean)); !ok {
		return s.fail(ctx, syscall.ENOENT), true
	}

	if err := s.mfst.rename(oldClean, newClean); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return s.fail(ctx, syscall.ENOENT), true
		case errors.Is(err, ErrNotDir):
			return s.fail(ctx, syscall.ENOTDIR), true
		case errors.Is(err, ErrIsDir):
			return s.fail(ctx, syscall.EISDIR), true
		case errors.Is(err, ErrNotEmpty):
			return s.fail(ctx, syscall.ENOTEMPTY), true
		case errors.Is(err, ErrInvalid):
			return s.fail(ctx, syscall.EINVAL), true
		}
		return s.fail(ctx, syscall.EIO), true
	}

	// Keep the on-disk directory skeleton aligned; blobs are content-keyed
	// and never move.
	if entry, ok := s.mfst.get(newClean); ok && entry.IsDir() {
		if ret := s.raw.Rename(ctx, s.skelPath(oldClean), s.skelPath(newClean)); ret < 0 {
			logrus.Warnf("Failed to move skeleton dir %s -> %s", oldClean, newClean)
		}
	}

	s.persistSnapshot()
	return 0, true
}

func (s *Service) RenameatImpl(
	ctx *domain.SyscallCtx, oldDirfd int32, oldPath string, newDirfd int32, newPath string) (int64, bool) {

	if !filepath.IsAbs(oldPath) || !filepath.IsAbs(newPath) {
		return 0, false
	}
	return s.RenameImpl(ctx, oldPath, newPath)
}

func (s *Service) FcntlImpl(
	ctx *domain.SyscallCtx, fd int32, cmd int32, arg uint64) (int64, bool) {

	if _, ok := s.fdt.lookup(fd); !ok {
		return 0, false
	}

	switch cmd {
	case syscall.F_GETFL, syscall.F_GETFD:
		// The descriptor is real; the kernel is authoritative for its flags.
		return s.raw.Fcntl(ctx, fd, cmd, arg), true
	case syscall.F_SETFL:
		// Only the status flags a read-only descriptor can carry.
		const settable = syscall.O_NONBLOCK | syscall.O_APPEND
		return s.raw.Fcntl(ctx, fd, cmd, arg&settable), true
	default:
		return 0, false
	}
}

func (s *Service) MkdirImpl(
	ctx *domain.SyscallCtx, path string, mode uint32) (int64, bool) {

	clean, ok := s.claimed(path)
	if !ok {
		return 0, false
	}

	if _, ok := s.mfst.get(clean); ok {
		return s.fail(ctx, syscall.EEXIST), true
	}
	parent, ok := s.mfst.get(parentOf(clean))
	if !ok {
		return s.fail(ctx, syscall.ENOENT), true
	}
	if !parent.IsDir() {
		return s.fail(ctx, syscall.ENOTDIR), true
	}

	s.mfst.upsert(domain.VnodeEntry{
		Path: clean,
		Mode: mode & 0o7777,
		Kind: domain.VnodeDir,
	})
	if err := s.makeSkelDir(clean); err != nil {
		logrus.Warnf("Failed to create skeleton dir for %s: %v", clean, err)
	}

	s.persistUpsert(clean)
	return 0, true
}

func (s *Service) UnlinkImpl(ctx *domain.SyscallCtx, path string) (int64, bool) {

	clean, ok := s.claimed(path)
	if !ok {
		return 0, false
	}

	entry, ok := s.mfst.get(clean)
	if !ok {
		return s.fail(ctx, syscall.ENOENT), true
	}
	if entry.IsDir() {
		return s.fail(ctx, syscall.EISDIR), true
	}

	if err := s.mfst.remove(clean); err != nil {
		return s.fail(ctx, syscall.ENOENT), true
	}

	// The blob stays: other vnodes may share the content.
	s.persistRemove(clean)
	return 0, true
}

func (s *Service) StatImpl(
	ctx *domain.SyscallCtx, path string, buf *domain.StatBuf) (int64, bool) {

	clean, ok := s.claimed(path)
	if !ok {
		return 0, false
	}

	entry, ok := s.mfst.get(clean)
	if !ok {
		return s.fail(ctx, syscall.ENOENT), true
	}

	fillStatBuf(entry, ctx, buf)
	return 0, true
}

func (s *Service) FchmodImpl(
	ctx *domain.SyscallCtx, fd int32, mode uint32) (int64, bool) {

	e, ok := s.fdt.lookup(fd)
	if !ok {
		return 0, false
	}

	if err := s.mfst.chmod(e.path, mode); err != nil {
		return s.fail(ctx, syscall.ENOENT), true
	}
	s.persistUpsert(e.path)
	return 0, true
}

// CloseFd releases a descriptor produced by a claimed open.
func (s *Service) CloseFd(fd int32) error {
	if _, ok := s.fdt.release(fd); !ok {
		return ErrBadFd
	}
	return s.raw.Close(fd)
}

//
// Manifest surface (IPC control plane).
//

func (s *Service) ManifestGet(path string) (*domain.VnodeEntry, bool) {
	clean, ok := s.claimed(path)
	if !ok {
		return nil, false
	}
	return s.mfst.get(clean)
}

// ManifestUpsert installs or replaces a vnode entry. Missing parent
// directories are created implicitly so a control plane can push a deep
// tree without ordering constraints.
func (s *Service) ManifestUpsert(entry domain.VnodeEntry) error {
	clean, ok := s.claimed(entry.Path)
	if !ok {
		return ErrNotManaged
	}
	entry.Path = clean

	if entry.Kind == domain.VnodeFile && !s.cas.has(entry.ContentHash) {
		return ErrNotFound
	}

	for dir := parentOf(clean); ; dir = parentOf(dir) {
		if _, managed := s.claimed(dir); !managed {
			break
		}
		if _, ok := s.mfst.get(dir); ok {
			break
		}
		s.mfst.upsert(domain.VnodeEntry{Path: dir, Mode: 0755, Kind: domain.VnodeDir})
		s.persistUpsert(dir)
		if err := s.makeSkelDir(dir); err != nil {
			return err
		}
	}

	s.mfst.upsert(entry)
	if entry.IsDir() {
		if err := s.makeSkelDir(clean); err != nil {
			return err
		}
	}
	s.persistUpsert(clean)
	return nil
}

func (s *Service) ManifestRemove(path string) error {
	clean, ok := s.claimed(path)
	if !ok {
		return ErrNotManaged
	}
	for _, p := range s.prefixList {
		if clean == p {
			return ErrNotEmpty
		}
	}
	if err := s.mfst.remove(clean); err != nil {
		return err
	}
	s.persistRemove(clean)
	return nil
}

func (s *Service) ManifestListDir(path string) ([]*domain.VnodeEntry, error) {
	clean, ok := s.claimed(path)
	if !ok {
		return nil, ErrNotManaged
	}
	return s.mfst.listDir(clean)
}

// ContentPut stores a blob and returns its address, for control planes that
// push content alongside manifest entries.
func (s *Service) ContentPut(data []byte) ([32]byte, error) {
	return s.cas.put(data)
}

// ContentGet retrieves a blob by address.
func (s *Service) ContentGet(hash [32]byte) ([]byte, error) {
	return s.cas.get(hash)
}

// LiveFds returns the number of descriptors currently tracked.
func (s *Service) LiveFds() int64 {
	return s.fdt.liveCount()
}

//
// Internal helpers.
//

// skelPath maps a virtual directory path to its on-disk placeholder. The
// skeleton gives directory opens a real descriptor to hand out.
func (s *Service) skelPath(virtual string) string {
	return filepath.Join(s.dataDir, "skel", virtual)
}

func (s *Service) makeSkelDir(virtual string) error {
	node := s.ios.NewIOnode("", s.skelPath(virtual), 0755)
	return s.ios.MkdirAllNode(node)
}

func (s *Service) persistUpsert(path string) {
	if s.store == nil {
		return
	}
	entry, ok := s.mfst.get(path)
	if !ok {
		return
	}
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	if err := s.store.upsert(*entry); err != nil {
		logrus.Warnf("Manifest persistence lagging: %v", err)
	}
}

func (s *Service) persistRemove(path string) {
	if s.store == nil {
		return
	}
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	if err := s.store.remove(path); err != nil {
		logrus.Warnf("Manifest persistence lagging: %v", err)
	}
}

func (s *Service) persistSnapshot() {
	if s.store == nil {
		return
	}
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	if err := s.store.snapshot(s.mfst.entries()); err != nil {
		logrus.Warnf("Manifest persistence lagging: %v", err)
	}
}

// fillStatBuf encodes a vnode entry into the normalized stat payload. The
// inode number is derived from the content hash for files and from the path
// for directories, so it is stable across daemon restarts.
func fillStatBuf(entry *domain.VnodeEntry, ctx *domain.SyscallCtx, buf *domain.StatBuf) {
	switch entry.Kind {
	case domain.VnodeDir:
		buf.Mode = syscall.S_IFDIR | (entry.Mode & 0o7777)
		buf.Nlink = 2
		buf.Ino = pathInode(entry.Path)
	case domain.VnodeSymlink:
		buf.Mode = syscall.S_IFLNK | (entry.Mode & 0o7777)
		buf.Nlink = 1
		buf.Ino = hashInode(entry.ContentHash)
	default:
		buf.Mode = syscall.S_IFREG | (entry.Mode & 0o7777)
		buf.Nlink = 1
		buf.Ino = hashInode(entry.ContentHash)
	}
	buf.Size = entry.Size
	buf.Uid = ctx.Uid
	buf.Gid = ctx.Gid
	buf.Mtime = entry.Mtime
}
