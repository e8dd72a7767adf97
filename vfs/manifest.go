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

package vfs

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/btree"

	"github.com/riftfs/riftfs/domain"
)

// manifest is the path-ordered vnode table. Lookups take the read lock and
// may run concurrently; every mutation takes the write lock, so a mutation
// of one sub-path is exclusive with any other access of that sub-path.
type manifest struct {
	sync.RWMutex
	tree *btree.BTreeG[*domain.VnodeEntry]
}

func newManifest() *manifest {
	return &manifest{
		tree: btree.NewBTreeG[*domain.VnodeEntry](func(a, b *domain.VnodeEntry) bool {
			return a.Path < b.Path
		}),
	}
}

// get returns a copy of the entry at path; the tree's own entries never
// escape the lock.
func (m *manifest) get(path string) (*domain.VnodeEntry, bool) {
	m.RLock()
	defer m.RUnlock()

	e, ok := m.tree.Get(&domain.VnodeEntry{Path: path})
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

func (m *manifest) upsert(entry domain.VnodeEntry) {
	m.Lock()
	defer m.Unlock()

	m.tree.Set(&entry)
}

// remove drops the entry at path. A directory can only be removed once it
// has no children.
func (m *manifest) remove(path string) error {
	m.Lock()
	defer m.Unlock()

	e, ok := m.tree.Get(&domain.VnodeEntry{Path: path})
	if !ok {
		return ErrNotFound
	}
	if e.IsDir() && m.hasChildLocked(path) {
		return ErrNotEmpty
	}
	m.tree.Delete(e)
	return nil
}

// rename moves the entry at oldPath, and its whole subtree when it is a
// directory, to newPath. An existing destination is replaced the way
// rename(2) replaces it: a file replaces a file, a directory replaces an
// empty directory; the kind mismatches POSIX rejects surface as ErrNotDir,
// ErrIsDir or ErrNotEmpty.
func (m *manifest) rename(oldPath, newPath string) error {
	m.Lock()
	defer m.Unlock()

	src, ok := m.tree.Get(&domain.VnodeEntry{Path: oldPath})
	if !ok {
		return ErrNotFound
	}
	if oldPath == newPath {
		return nil
	}
	if strings.HasPrefix(newPath, oldPath+"/") {
		// A directory cannot move into its own subtree.
		return ErrInvalid
	}

	if dst, ok := m.tree.Get(&domain.VnodeEntry{Path: newPath}); ok {
		switch {
		case src.IsDir() && !dst.IsDir():
			return ErrNotDir
		case !src.IsDir() && dst.IsDir():
			return ErrIsDir
		case dst.IsDir() && m.hasChildLocked(newPath):
			return ErrNotEmpty
		}
		m.tree.Delete(dst)
	}

	moved := []*domain.VnodeEntry{src}
	if src.IsDir() {
		prefix := oldPath + "/"
		m.tree.Ascend(&domain.VnodeEntry{Path: prefix}, func(e *domain.VnodeEntry) bool {
			if !strings.HasPrefix(e.Path, prefix) {
				return false
			}
			moved = append(moved, e)
			return true
		})
	}

	for _, e := range moved {
		m.tree.Delete(e)
		cp := *e
		cp.Path = newPath + strings.TrimPrefix(e.Path, oldPath)
		m.tree.Set(&cp)
	}
	return nil
}

func (m *manifest) chmod(path string, mode uint32) error {
	m.Lock()
	defer m.Unlock()

	e, ok := m.tree.Get(&domain.VnodeEntry{Path: path})
	if !ok {
		return ErrNotFound
	}
	cp := *e
	cp.Mode = mode & 0o7777
	m.tree.Set(&cp)
	return nil
}

// listDir returns copies of the immediate children of the directory at
// path, in path order.
func (m *manifest) listDir(path string) ([]*domain.VnodeEntry, error) {
	m.RLock()
	defer m.RUnlock()

	dir, ok := m.tree.Get(&domain.VnodeEntry{Path: path})
	if !ok {
		return nil, ErrNotFound
	}
	if !dir.IsDir() {
		return nil, ErrNotDir
	}

	var out []*domain.VnodeEntry
	prefix := path + "/"
	if path == "/" {
		prefix = "/"
	}
	m.tree.Ascend(&domain.VnodeEntry{Path: prefix}, func(e *domain.VnodeEntry) bool {
		if !strings.HasPrefix(e.Path, prefix) {
			return false
		}
		// Skip grandchildren; only direct entries of the directory.
		if strings.Contains(e.Path[len(prefix):], "/") {
			return true
		}
		cp := *e
		out = append(out, &cp)
		return true
	})
	return out, nil
}

// entries returns a copy of the whole table, used for persistence
// snapshots.
func (m *manifest) entries() []domain.VnodeEntry {
	m.RLock()
	defer m.RUnlock()

	out := make([]domain.VnodeEntry, 0, m.tree.Len())
	m.tree.Scan(func(e *domain.VnodeEntry) bool {
		out = append(out, *e)
		return true
	})
	return out
}

func (m *manifest) len() int {
	m.RLock()
	defer m.RUnlock()
	return m.tree.Len()
}

// hasChildLocked reports whether any entry lives directly or transitively
// under the directory at path. Caller holds at least the read lock.
func (m *manifest) hasChildLocked(path string) bool {
	prefix := path + "/"
	found := false
	m.tree.Ascend(&domain.VnodeEntry{Path: prefix}, func(e *domain.VnodeEntry) bool {
		found = strings.HasPrefix(e.Path, prefix)
		return false
	})
	return found
}

// parentOf returns the parent directory path of a cleaned absolute path.
func parentOf(path string) string {
	return filepath.Dir(path)
}
