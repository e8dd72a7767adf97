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
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// A registration round-trip over a socketpair: any real descriptor stands
// in for the notify fd, since SCM_RIGHTS passing is fd-agnostic.
func TestSessionInitRoundTrip(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)

	mk := func(fd int) *net.UnixConn {
		f := os.NewFile(uintptr(fd), "sp")
		defer f.Close()
		c, err := net.FileConn(f)
		require.NoError(t, err)
		return c.(*net.UnixConn)
	}
	shim := mk(fds[0])
	daemon := mk(fds[1])
	defer shim.Close()
	defer daemon.Close()

	payload := filepath.Join(t.TempDir(), "probe")
	require.NoError(t, os.WriteFile(payload, []byte("x"), 0644))
	f, err := os.Open(payload)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, SendSessionInitMsg(shim, 4321, int32(f.Fd())))

	pid, gotFd, err := RecvSessionInitMsg(daemon)
	require.NoError(t, err)
	assert.Equal(t, int32(4321), pid)
	require.GreaterOrEqual(t, gotFd, int32(0))

	// The received descriptor is a live duplicate.
	buf := make([]byte, 1)
	n, err := unix.Read(int(gotFd), buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte('x'), buf[0])
	require.NoError(t, unix.Close(int(gotFd)))

	require.NoError(t, SendSessionInitAckMsg(daemon))
	require.NoError(t, RecvSessionInitAckMsg(shim))
}

func TestSeccompServerAcceptsSessions(t *testing.T) {
	sockAddr := filepath.Join(t.TempDir(), "seccomp.sock")

	done := make(chan int32, 1)
	srv, err := NewSeccompServer(sockAddr, func(c *net.UnixConn) {
		defer c.Close()
		pid, fd, err := RecvSessionInitMsg(c)
		if err != nil {
			done <- -1
			return
		}
		unix.Close(int(fd))
		if err := SendSessionInitAckMsg(c); err != nil {
			done <- -1
			return
		}
		done <- pid
	})
	require.NoError(t, err)
	defer srv.Close()

	conn, err := net.DialUnix("unix", nil,
		&net.UnixAddr{Name: sockAddr, Net: "unix"})
	require.NoError(t, err)
	defer conn.Close()

	payload := filepath.Join(t.TempDir(), "probe")
	require.NoError(t, os.WriteFile(payload, nil, 0644))
	f, err := os.Open(payload)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, SendSessionInitMsg(conn, 777, int32(f.Fd())))
	require.NoError(t, RecvSessionInitAckMsg(conn))

	assert.Equal(t, int32(777), <-done)
}
