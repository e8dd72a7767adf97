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

package sysio

import (
	"os"
	"testing"

	"github.com/riftfs/riftfs/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemServiceReadWriteFile(t *testing.T) {
	ios := NewIOService(domain.IOMemFileService)
	assert.Equal(t, domain.IOMemFileService, ios.GetServiceType())

	node := ios.NewIOnode("blob", "/store/ab/blob", 0600)
	require.NoError(t, ios.MkdirAllNode(ios.NewIOnode("", "/store/ab", 0700)))

	payload := []byte("content-addressed payload")
	require.NoError(t, ios.WriteFileNode(node, payload))

	got, err := ios.ReadFileNode(node)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	fi, err := ios.StatNode(node)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), fi.Size())

	require.NoError(t, ios.RemoveNode(node))
	_, err = ios.ReadFileNode(node)
	assert.Error(t, err)
}

func TestMemServiceOpenReadWrite(t *testing.T) {
	ios := NewIOService(domain.IOMemFileService)

	node := ios.NewIOnode("f", "/scratch/f", 0644)
	node.SetOpenFlags(os.O_CREATE | os.O_RDWR)

	require.NoError(t, ios.OpenNode(node))

	n, err := ios.WriteNode(node, []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, ios.CloseNode(node))

	node2 := ios.NewIOnode("f", "/scratch/f", 0644)
	node2.SetOpenFlags(os.O_RDONLY)
	require.NoError(t, ios.OpenNode(node2))
	buf := make([]byte, 3)
	n, err = ios.ReadNode(node2, buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abc", string(buf))
	require.NoError(t, ios.CloseNode(node2))
}

func TestOsServicePath(t *testing.T) {
	ios := NewIOService(domain.IOOsFileService)
	assert.Equal(t, domain.IOOsFileService, ios.GetServiceType())

	dir := t.TempDir()
	node := ios.NewIOnode("probe", dir+"/probe", 0644)
	assert.Equal(t, dir+"/probe", ios.PathNode(node))

	require.NoError(t, ios.WriteFileNode(node, []byte("x")))
	got, err := ios.ReadFileNode(node)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}
