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

package process

import (
	"fmt"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftfs/riftfs/domain"
	"github.com/riftfs/riftfs/sysio"
)

func newMemService(t *testing.T) domain.ProcessServiceIface {
	t.Helper()
	ps := NewProcessService()
	ps.Setup(sysio.NewIOService(domain.IOMemFileService))
	return ps
}

func writeStatusFile(t *testing.T, ios domain.IOServiceIface, pid uint32, content string) {
	t.Helper()
	node := ios.NewIOnode("status", fmt.Sprintf("/proc/%d/status", pid), 0644)
	require.NoError(t, ios.WriteFileNode(node, []byte(content)))
}

func TestProcessStatusParsing(t *testing.T) {
	ps := NewProcessService()
	ios := sysio.NewIOService(domain.IOMemFileService)
	ps.Setup(ios)

	writeStatusFile(t, ios, 4242,
		"Name:\tsome-proc\n"+
			"Uid:\t1000\t1001\t1001\t1001\n"+
			"Gid:\t2000\t2001\t2001\t2001\n")

	p := ps.ProcessCreate(4242, 0, 0)
	assert.Equal(t, uint32(1001), p.Uid())
	assert.Equal(t, uint32(2001), p.Gid())
	assert.Equal(t, uint32(4242), p.Pid())
}

func TestProcessStatusMissingFallsBack(t *testing.T) {
	ps := newMemService(t)

	// No status file in the fs: the attributes carried by the notification
	// remain authoritative.
	p := ps.ProcessCreate(999, 77, 88)
	assert.Equal(t, uint32(77), p.Uid())
	assert.Equal(t, uint32(88), p.Gid())
}

func TestResolveProcSelf(t *testing.T) {
	ps := newMemService(t)
	p := ps.ProcessCreate(1234, 0, 0)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain path untouched", "/etc/hosts", "/etc/hosts"},
		{"proc self rewritten", "/proc/self/status", "/proc/1234/status"},
		{"proc self bare", "/proc/self", "/proc/1234"},
		{"thread-self rewritten", "/proc/thread-self/fd/3", "/proc/1234/fd/3"},
		{"other pid untouched", "/proc/42/status", "/proc/42/status"},
		{"selfish prefix untouched", "/proc/selfother", "/proc/selfother"},
		{"normalized first", "/proc/./self/status", "/proc/1234/status"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.ResolveProcSelf(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestProcessSelfAttributes(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("requires procfs")
	}

	ps := NewProcessService()
	ps.Setup(sysio.NewIOService(domain.IOOsFileService))

	self := ps.ProcessCreate(uint32(os.Getpid()), 0, 0)
	assert.Equal(t, uint32(os.Geteuid()), self.Uid())
	assert.Equal(t, uint32(os.Getegid()), self.Gid())

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, self.Cwd())
	assert.Equal(t, "/", self.Root())
}

func TestGetFd(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("requires procfs")
	}

	ps := NewProcessService()
	ps.Setup(sysio.NewIOService(domain.IOOsFileService))

	f, err := os.CreateTemp(t.TempDir(), "fdprobe")
	require.NoError(t, err)
	defer f.Close()

	self := ps.ProcessCreate(uint32(os.Getpid()), 0, 0)
	path, err := self.GetFd(int32(f.Fd()))
	require.NoError(t, err)
	assert.Equal(t, f.Name(), path)

	_, err = self.GetFd(9999)
	assert.Error(t, err)
}
