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
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftfs/riftfs/domain"
)

func dirEntry(path string) domain.VnodeEntry {
	return domain.VnodeEntry{Path: path, Mode: 0755, Kind: domain.VnodeDir}
}

func fileEntry(path string, size int64) domain.VnodeEntry {
	return domain.VnodeEntry{Path: path, Size: size, Mode: 0644, Kind: domain.VnodeFile}
}

func TestManifestGetReturnsCopy(t *testing.T) {
	m := newManifest()
	m.upsert(fileEntry("/virt/a", 10))

	e1, ok := m.get("/virt/a")
	require.True(t, ok)
	e1.Size = 999

	e2, ok := m.get("/virt/a")
	require.True(t, ok)
	assert.Equal(t, int64(10), e2.Size)
}

func TestManifestRemove(t *testing.T) {
	m := newManifest()
	m.upsert(dirEntry("/virt"))
	m.upsert(dirEntry("/virt/d"))
	m.upsert(fileEntry("/virt/d/f", 1))

	assert.ErrorIs(t, m.remove("/virt/missing"), ErrNotFound)
	assert.ErrorIs(t, m.remove("/virt/d"), ErrNotEmpty)

	require.NoError(t, m.remove("/virt/d/f"))
	require.NoError(t, m.remove("/virt/d"))
	_, ok := m.get("/virt/d")
	assert.False(t, ok)
}

func TestManifestRenameSubtree(t *testing.T) {
	m := newManifest()
	m.upsert(dirEntry("/virt"))
	m.upsert(dirEntry("/virt/old"))
	m.upsert(fileEntry("/virt/old/a", 1))
	m.upsert(fileEntry("/virt/old/b", 2))
	m.upsert(dirEntry("/virt/old/sub"))
	m.upsert(fileEntry("/virt/old/sub/c", 3))
	m.upsert(fileEntry("/virt/older", 4)) // sibling with a common string prefix

	require.NoError(t, m.rename("/virt/old", "/virt/new"))

	for _, path := range []string{
		"/virt/new", "/virt/new/a", "/virt/new/b", "/virt/new/sub", "/virt/new/sub/c",
	} {
		_, ok := m.get(path)
		assert.True(t, ok, "missing %s after rename", path)
	}
	_, ok := m.get("/virt/old")
	assert.False(t, ok)

	// The sibling must not be swept up by the subtree move.
	_, ok = m.get("/virt/older")
	assert.True(t, ok)
}

// rename follows the rename(2) replacement rules: a file replaces a file,
// a directory replaces an empty directory, everything else is rejected.
func TestManifestRenameReplaces(t *testing.T) {
	m := newManifest()
	m.upsert(fileEntry("/virt/a", 1))
	m.upsert(fileEntry("/virt/b", 2))
	m.upsert(dirEntry("/virt/src"))
	m.upsert(fileEntry("/virt/src/f", 3))
	m.upsert(dirEntry("/virt/empty"))

	require.NoError(t, m.rename("/virt/a", "/virt/b"))
	got, ok := m.get("/virt/b")
	require.True(t, ok)
	assert.Equal(t, int64(1), got.Size, "destination must carry the source entry")
	_, ok = m.get("/virt/a")
	assert.False(t, ok)

	require.NoError(t, m.rename("/virt/src", "/virt/empty"))
	_, ok = m.get("/virt/empty/f")
	assert.True(t, ok)
	_, ok = m.get("/virt/src")
	assert.False(t, ok)

	// Renaming onto itself is a no-op success.
	require.NoError(t, m.rename("/virt/b", "/virt/b"))
	_, ok = m.get("/virt/b")
	assert.True(t, ok)
}

func TestManifestRenameErrors(t *testing.T) {
	m := newManifest()
	m.upsert(fileEntry("/virt/a", 1))
	m.upsert(dirEntry("/virt/d"))
	m.upsert(fileEntry("/virt/d/f", 2))
	m.upsert(dirEntry("/virt/e"))

	assert.ErrorIs(t, m.rename("/virt/missing", "/virt/x"), ErrNotFound)
	assert.ErrorIs(t, m.rename("/virt/a", "/virt/d"), ErrIsDir)
	assert.ErrorIs(t, m.rename("/virt/d", "/virt/a"), ErrNotDir)
	assert.ErrorIs(t, m.rename("/virt/e", "/virt/d"), ErrNotEmpty)
	assert.ErrorIs(t, m.rename("/virt/d", "/virt/d/f"), ErrInvalid)
}

func TestManifestListDir(t *testing.T) {
	m := newManifest()
	m.upsert(dirEntry("/virt"))
	m.upsert(fileEntry("/virt/a", 1))
	m.upsert(dirEntry("/virt/d"))
	m.upsert(fileEntry("/virt/d/nested", 2))

	entries, err := m.listDir("/virt")
	require.NoError(t, err)

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"/virt/a", "/virt/d"}, paths)

	_, err = m.listDir("/virt/a")
	assert.ErrorIs(t, err, ErrNotDir)
	_, err = m.listDir("/virt/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManifestConcurrentReaders(t *testing.T) {
	m := newManifest()
	m.upsert(dirEntry("/virt"))
	for i := 0; i < 100; i++ {
		m.upsert(fileEntry(fmt.Sprintf("/virt/f%03d", i), int64(i)))
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if _, ok := m.get(fmt.Sprintf("/virt/f%03d", (w*7+i)%100)); !ok {
					t.Errorf("lookup miss under concurrency")
					return
				}
				if _, err := m.listDir("/virt"); err != nil {
					t.Errorf("listDir: %v", err)
					return
				}
			}
		}(w)
	}
	for i := 0; i < 200; i++ {
		m.upsert(fileEntry(fmt.Sprintf("/virt/g%03d", i%50), int64(i)))
	}
	wg.Wait()
}
