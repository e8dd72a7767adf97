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

//go:build linux

package ipc

import (
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// File hosts the session registration channel: a shim that has installed a
// seccomp notify filter in a tracee connects here and hands the daemon the
// notify descriptor via SCM_RIGHTS, along with the tracee's pid.

// SeccompServer accepts session registrations and hands each connection to
// the tracer's handler on a dedicated goroutine.
type SeccompServer struct {
	listener *net.UnixListener
	handler  func(c *net.UnixConn)
}

func NewSeccompServer(sockAddr string, handler func(c *net.UnixConn)) (*SeccompServer, error) {
	l, err := listenUnix(sockAddr)
	if err != nil {
		return nil, err
	}

	srv := &SeccompServer{
		listener: l,
		handler:  handler,
	}
	go srv.acceptLoop()

	return srv, nil
}

func (s *SeccompServer) acceptLoop() {
	for {
		conn, err := s.listener.AcceptUnix()
		if err != nil {
			return
		}
		go s.handler(conn)
	}
}

func (s *SeccompServer) Close() error {
	return s.listener.Close()
}

const sessionInitAck = 0x2a

// SendSessionInitMsg registers a tracee with the daemon: the pid travels
// in-band, the notify descriptor as ancillary SCM_RIGHTS data.
func SendSessionInitMsg(c *net.UnixConn, pid int32, fd int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(pid))

	oob := unix.UnixRights(int(fd))
	_, _, err := c.WriteMsgUnix(buf[:], oob, nil)
	return err
}

// RecvSessionInitMsg receives a tracee registration, returning the tracee
// pid and this process's descriptor for the seccomp notify fd.
func RecvSessionInitMsg(c *net.UnixConn) (int32, int32, error) {
	buf := make([]byte, 4)
	oob := make([]byte, unix.CmsgSpace(4))

	n, oobn, _, _, err := c.ReadMsgUnix(buf, oob)
	if err != nil {
		return 0, -1, err
	}
	if n != len(buf) {
		return 0, -1, fmt.Errorf("short session init message (%d bytes)", n)
	}

	pid := int32(binary.BigEndian.Uint32(buf))

	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return 0, -1, err
	}
	if len(scms) != 1 {
		return 0, -1, fmt.Errorf("expected one control message, got %d", len(scms))
	}

	fds, err := unix.ParseUnixRights(&scms[0])
	if err != nil {
		return 0, -1, err
	}
	if len(fds) != 1 {
		return 0, -1, fmt.Errorf("expected one notify fd, got %d", len(fds))
	}

	return pid, int32(fds[0]), nil
}

// SendSessionInitAckMsg confirms a registration back to the shim.
func SendSessionInitAckMsg(c *net.UnixConn) error {
	_, err := c.Write([]byte{sessionInitAck})
	return err
}

// RecvSessionInitAckMsg blocks until the daemon confirms a registration.
func RecvSessionInitAckMsg(c *net.UnixConn) error {
	var buf [1]byte
	if _, err := c.Read(buf[:]); err != nil {
		return err
	}
	if buf[0] != sessionInitAck {
		return fmt.Errorf("unexpected session init ack byte %#x", buf[0])
	}
	return nil
}
