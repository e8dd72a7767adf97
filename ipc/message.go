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

// Package ipc implements the daemon's two unix-socket surfaces: the
// control plane (length-prefixed JSON frames carrying manifest and status
// requests) and the session registration channel over which a shim hands
// the daemon a tracee's seccomp notify descriptor.
package ipc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/riftfs/riftfs/domain"

	"github.com/goccy/go-json"
)

// Protocol version exchanged during the handshake. Bumped on any change to
// the message shapes below.
const ProtocolVersion = "riftfs-ipc/1"

type MsgType string

const (
	MsgHandshake      MsgType = "handshake"
	MsgStatus         MsgType = "status"
	MsgManifestGet    MsgType = "manifest.get"
	MsgManifestUpsert MsgType = "manifest.upsert"
	MsgManifestRemove MsgType = "manifest.remove"
	MsgManifestList   MsgType = "manifest.listdir"
)

type Request struct {
	Type    MsgType            `json:"type"`
	Version string             `json:"version,omitempty"`
	Path    string             `json:"path,omitempty"`
	Entry   *domain.VnodeEntry `json:"entry,omitempty"`
}

type Response struct {
	Ok       bool                 `json:"ok"`
	Error    string               `json:"error,omitempty"`
	Version  string               `json:"version,omitempty"`
	Phase    string               `json:"phase,omitempty"`
	Sessions int                  `json:"sessions,omitempty"`
	Prefixes []string             `json:"prefixes,omitempty"`
	Entry    *domain.VnodeEntry   `json:"entry,omitempty"`
	Entries  []*domain.VnodeEntry `json:"entries,omitempty"`
}

// maxFrameSize bounds a single frame; a directory listing of a large
// manifest subtree stays well under this.
const maxFrameSize = 4 << 20

// WriteFrame marshals v and writes it as one length-prefixed frame.
func WriteFrame(w io.Writer, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("frame marshal error: %v", err)
	}
	if len(payload) > maxFrameSize {
		return fmt.Errorf("frame too large (%d bytes)", len(payload))
	}

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame and unmarshals it into v.
func ReadFrame(r io.Reader, v interface{}) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}

	size := binary.BigEndian.Uint32(hdr[:])
	if size > maxFrameSize {
		return fmt.Errorf("oversized frame (%d bytes)", size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return err
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("frame unmarshal error: %v", err)
	}
	return nil
}
