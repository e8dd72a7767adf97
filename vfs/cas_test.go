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
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftfs/riftfs/domain"
	"github.com/riftfs/riftfs/sysio"
)

func newTestCas(t *testing.T) *contentStore {
	cs := newContentStore(sysio.NewIOService(domain.IOMemFileService), "/data/store")
	require.NoError(t, cs.init())
	return cs
}

func TestCasPutGet(t *testing.T) {
	cs := newTestCas(t)

	data := []byte("the quick brown fox")
	hash, err := cs.put(data)
	require.NoError(t, err)
	assert.True(t, cs.has(hash))

	got, err := cs.get(hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestCasFanOutLayout(t *testing.T) {
	cs := newTestCas(t)

	hash, err := cs.put([]byte("payload"))
	require.NoError(t, err)

	hexHash := hex.EncodeToString(hash[:])
	want := filepath.Join("/data/store", hexHash[:2], hexHash)
	assert.Equal(t, want, cs.blobPath(hash))
}

func TestCasPutIdempotent(t *testing.T) {
	cs := newTestCas(t)

	h1, err := cs.put([]byte("same content"))
	require.NoError(t, err)
	h2, err := cs.put([]byte("same content"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := cs.put([]byte("other content"))
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestCasGetMissing(t *testing.T) {
	cs := newTestCas(t)

	var hash [32]byte
	hash[0] = 0xab
	_, err := cs.get(hash)
	assert.Error(t, err)
	assert.False(t, cs.has(hash))
}

func TestInodeDerivation(t *testing.T) {
	var h1, h2 [32]byte
	h1[0], h2[0] = 1, 2

	assert.NotZero(t, hashInode(h1))
	assert.NotEqual(t, hashInode(h1), hashInode(h2))

	assert.NotZero(t, pathInode("/virt/a"))
	assert.NotEqual(t, pathInode("/virt/a"), pathInode("/virt/b"))
	assert.Equal(t, pathInode("/virt/a"), pathInode("/virt/a"))
}
