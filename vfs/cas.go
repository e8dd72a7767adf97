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
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/riftfs/riftfs/domain"
)

// contentStore is the content-addressable blob store backing every regular
// file in the manifest. Blobs are keyed by the BLAKE3 hash of their content
// and laid out under root with a two-character fan-out, so a blob with hash
// ab12... lives at root/ab/ab12....
//
// Blobs are immutable: a put of existing content is a no-op, and nothing
// ever rewrites a blob in place.
type contentStore struct {
	ios  domain.IOServiceIface
	root string
}

func newContentStore(ios domain.IOServiceIface, root string) *contentStore {
	return &contentStore{ios: ios, root: root}
}

func (c *contentStore) init() error {
	node := c.ios.NewIOnode("", c.root, 0700)
	if err := c.ios.MkdirAllNode(node); err != nil {
		return fmt.Errorf("creating content-store root %s: %w", c.root, err)
	}
	return nil
}

func (c *contentStore) blobPath(hash [32]byte) string {
	hexHash := hex.EncodeToString(hash[:])
	return filepath.Join(c.root, hexHash[:2], hexHash)
}

// put stores data and returns its hash. Existing blobs are left untouched.
func (c *contentStore) put(data []byte) ([32]byte, error) {
	hash := blake3.Sum256(data)

	path := c.blobPath(hash)
	if c.has(hash) {
		return hash, nil
	}

	dir := c.ios.NewIOnode("", filepath.Dir(path), 0700)
	if err := c.ios.MkdirAllNode(dir); err != nil {
		return hash, fmt.Errorf("creating fan-out dir for %s: %w", path, err)
	}

	blob := c.ios.NewIOnode("", path, 0400)
	if err := c.ios.WriteFileNode(blob, data); err != nil {
		return hash, fmt.Errorf("writing blob %s: %w", path, err)
	}
	return hash, nil
}

func (c *contentStore) get(hash [32]byte) ([]byte, error) {
	blob := c.ios.NewIOnode("", c.blobPath(hash), 0400)
	data, err := c.ios.ReadFileNode(blob)
	if err != nil {
		return nil, fmt.Errorf("reading blob %x: %w", hash[:4], err)
	}
	return data, nil
}

func (c *contentStore) has(hash [32]byte) bool {
	blob := c.ios.NewIOnode("", c.blobPath(hash), 0400)
	_, err := c.ios.StatNode(blob)
	return err == nil
}

// hashInode derives a stable inode number from a blob address. The low bit
// is forced so the number is never zero.
func hashInode(hash [32]byte) uint64 {
	return binary.LittleEndian.Uint64(hash[:8]) | 1
}

// pathInode derives a stable inode number for vnodes without content.
func pathInode(path string) uint64 {
	sum := blake3.Sum256([]byte(path))
	return binary.LittleEndian.Uint64(sum[:8]) | 1
}
