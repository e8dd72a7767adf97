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

package intercept

import (
	"encoding/binary"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_modeArg(t *testing.T) {
	type args struct {
		flags int32
		raw   uint64
	}
	tests := []struct {
		name string
		args args
		want uint32
	}{
		// With O_CREAT the register value is the caller's mode.
		{"creat flag honors mode", args{syscall.O_CREAT | syscall.O_WRONLY, 0644}, 0644},

		// With O_TMPFILE the mode is likewise mandatory.
		{"tmpfile flag honors mode", args{oTmpfileMask | syscall.O_DIRECTORY | syscall.O_WRONLY, 0600}, 0600},

		// Without a creation flag the register holds stack garbage and must
		// be ignored.
		{"no flag yields zero", args{syscall.O_RDONLY, 0xdeadbeefcafe}, 0},
		{"o_directory alone is not tmpfile", args{syscall.O_DIRECTORY, 0755}, 0},

		// The register travels at full width but the mode is read at its
		// promoted (32-bit) width; high garbage bits are dropped.
		{"promoted width truncation", args{syscall.O_CREAT, 0xdeadbeef00000644}, 0x644},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := modeArg(tt.args.flags, tt.args.raw); got != tt.want {
				t.Errorf("modeArg() = %o, want %o", got, tt.want)
			}
		})
	}
}

func Test_fcntlArg(t *testing.T) {
	// Pointer-sized commands (F_SETLK and friends) depend on the full
	// register value surviving normalization.
	full := uint64(0x7fffdeadbeef0120)
	if got := fcntlArg(full); got != full {
		t.Errorf("fcntlArg() = %#x, want %#x", got, full)
	}
}

func Test_decodeOpenHow(t *testing.T) {
	mk := func(flags, mode, resolve uint64, extra int) []byte {
		b := make([]byte, 24+extra)
		binary.LittleEndian.PutUint64(b[0:8], flags)
		binary.LittleEndian.PutUint64(b[8:16], mode)
		binary.LittleEndian.PutUint64(b[16:24], resolve)
		return b
	}

	how, errno := decodeOpenHow(mk(uint64(syscall.O_CREAT|syscall.O_RDWR), 0644, 0x01, 0))
	assert.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, uint64(syscall.O_CREAT|syscall.O_RDWR), how.Flags)
	assert.Equal(t, uint64(0644), how.Mode)
	assert.Equal(t, uint64(0x01), how.Resolve)

	// Larger future struct versions decode their known prefix.
	how, errno = decodeOpenHow(mk(0, 0700, 0, 16))
	assert.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, uint64(0700), how.Mode)

	// Undersized images are invalid.
	_, errno = decodeOpenHow(make([]byte, 16))
	assert.Equal(t, syscall.EINVAL, errno)
}

func Test_callByName(t *testing.T) {
	open := callByName("open")
	if open == nil || !open.HasModeArg || !open.FdReturning || !open.Legacy {
		t.Errorf("unexpected open row: %+v", open)
	}

	renameat := callByName("renameat")
	if renameat == nil || renameat.Arity != 4 || renameat.Legacy {
		t.Errorf("unexpected renameat row: %+v", renameat)
	}

	if callByName("ioctl") != nil {
		t.Errorf("ioctl must not be monitored")
	}
}
