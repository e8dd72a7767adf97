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

package rawsys

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"

	"github.com/riftfs/riftfs/domain"
	"github.com/riftfs/riftfs/errstate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestRawOpenClose(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "probe")
	require.NoError(t, os.WriteFile(file, []byte("payload"), 0644))

	r := rawOpen(file, unix.O_RDONLY, 0)
	require.False(t, r.Err, "open of existing file failed: %v", r.Errno())
	require.GreaterOrEqual(t, r.Code, int64(0))

	r2 := rawClose(int32(r.Code))
	assert.False(t, r2.Err)
}

func TestRawOpenMissingPath(t *testing.T) {
	r := rawOpen(filepath.Join(t.TempDir(), "absent"), unix.O_RDONLY, 0)
	require.True(t, r.Err)
	assert.Equal(t, unix.ENOENT, r.Errno())
	assert.Equal(t, int64(unix.ENOENT), r.Code, "error number must be positive in Code")
}

func TestRawStat(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sized")
	require.NoError(t, os.WriteFile(file, make([]byte, 512), 0640))

	var buf domain.StatBuf
	r := rawStat(file, &buf)
	require.False(t, r.Err)
	assert.Equal(t, int64(512), buf.Size)
	assert.Equal(t, uint32(0640), buf.Mode&0777)
	assert.Equal(t, uint32(1), buf.Nlink)
}

func TestRawMkdirUnlinkRename(t *testing.T) {
	dir := t.TempDir()

	sub := filepath.Join(dir, "sub")
	r := rawMkdir(sub, 0755)
	require.False(t, r.Err)
	fi, err := os.Stat(sub)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))
	dst := filepath.Join(sub, "dst")
	r = rawRename(src, dst)
	require.False(t, r.Err)
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	r = rawUnlink(dst)
	require.False(t, r.Err)
	_, err = os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
}

// The NUL-terminated path buffers handed to the kernel are plain heap
// allocations pinned only by runtime.KeepAlive; every trap must survive a
// collection cycle racing the call.
func TestRawPathBuffersSurviveGC(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 200; i++ {
		file := filepath.Join(dir, fmt.Sprintf("gc-probe-%03d", i))
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
		runtime.GC()

		var buf domain.StatBuf
		r := rawStat(file, &buf)
		require.False(t, r.Err, "stat %s: %v", file, r.Errno())

		r = rawOpen(file, unix.O_RDONLY, 0)
		require.False(t, r.Err, "open %s: %v", file, r.Errno())
		rawClose(int32(r.Code))

		runtime.GC()
		r = rawUnlink(file)
		require.False(t, r.Err, "unlink %s: %v", file, r.Errno())
	}
}

func TestRawFcntl(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "flags")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	r := rawOpen(file, unix.O_WRONLY|unix.O_APPEND, 0)
	require.False(t, r.Err)
	fd := int32(r.Code)
	defer rawClose(fd)

	got := rawFcntl(fd, unix.F_GETFL, 0)
	require.False(t, got.Err)
	assert.NotZero(t, got.Code&unix.O_APPEND)
}

// The backend contract: success leaves the caller's error slot untouched,
// failure returns the sentinel and publishes the error number there.
func TestBackendErrnoContract(t *testing.T) {
	bridge := errstate.NewBridge()
	backend := NewBackend(bridge)
	ctx := &domain.SyscallCtx{Tid: 4001}

	dir := t.TempDir()
	file := filepath.Join(dir, "ok")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	fd := backend.Open(ctx, file, unix.O_RDONLY, 0)
	require.GreaterOrEqual(t, fd, int64(0))
	assert.Equal(t, syscall.Errno(0), bridge.Errno(ctx.Tid),
		"successful call must not disturb the error slot")
	require.NoError(t, backend.Close(int32(fd)))

	ret := backend.Open(ctx, filepath.Join(dir, "absent"), unix.O_RDONLY, 0)
	assert.Equal(t, int64(-1), ret)
	assert.Equal(t, syscall.Errno(unix.ENOENT), bridge.Errno(ctx.Tid))
}

func TestBackendErrnoPerThread(t *testing.T) {
	bridge := errstate.NewBridge()
	backend := NewBackend(bridge)
	dir := t.TempDir()

	a := &domain.SyscallCtx{Tid: 1}
	b := &domain.SyscallCtx{Tid: 2}

	backend.Open(a, filepath.Join(dir, "absent"), unix.O_RDONLY, 0)
	assert.Equal(t, syscall.Errno(unix.ENOENT), bridge.Errno(a.Tid))
	assert.Equal(t, syscall.Errno(0), bridge.Errno(b.Tid))
}
