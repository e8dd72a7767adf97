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

package ipc

import (
	"errors"
	"fmt"
	"net"

	"github.com/riftfs/riftfs/domain"
)

// Client speaks the control-plane protocol. Used by the CLI tooling and by
// tests; one client holds one connection and is not safe for concurrent
// use.
type Client struct {
	conn *net.UnixConn
}

// Dial connects to the control-plane socket and performs the version
// handshake.
func Dial(sockAddr string) (*Client, error) {
	conn, err := net.DialUnix("unix", nil,
		&net.UnixAddr{Name: sockAddr, Net: "unix"})
	if err != nil {
		return nil, err
	}

	c := &Client{conn: conn}
	resp, err := c.roundTrip(&Request{Type: MsgHandshake, Version: ProtocolVersion})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if resp.Version != ProtocolVersion {
		conn.Close()
		return nil, fmt.Errorf("protocol mismatch: daemon speaks %q", resp.Version)
	}

	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(req *Request) (*Response, error) {
	if err := WriteFrame(c.conn, req); err != nil {
		return nil, err
	}

	var resp Response
	if err := ReadFrame(c.conn, &resp); err != nil {
		return nil, err
	}
	if !resp.Ok {
		return nil, errors.New(resp.Error)
	}
	return &resp, nil
}

// Status reports the daemon's phase, session count and claimed prefixes.
func (c *Client) Status() (*Response, error) {
	return c.roundTrip(&Request{Type: MsgStatus})
}

func (c *Client) ManifestGet(path string) (*domain.VnodeEntry, error) {
	resp, err := c.roundTrip(&Request{Type: MsgManifestGet, Path: path})
	if err != nil {
		return nil, err
	}
	return resp.Entry, nil
}

func (c *Client) ManifestUpsert(entry domain.VnodeEntry) error {
	_, err := c.roundTrip(&Request{Type: MsgManifestUpsert, Entry: &entry})
	return err
}

func (c *Client) ManifestRemove(path string) error {
	_, err := c.roundTrip(&Request{Type: MsgManifestRemove, Path: path})
	return err
}

func (c *Client) ManifestListDir(path string) ([]*domain.VnodeEntry, error) {
	resp, err := c.roundTrip(&Request{Type: MsgManifestList, Path: path})
	if err != nil {
		return nil, err
	}
	return resp.Entries, nil
}
