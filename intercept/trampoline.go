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
)

// File hosts the fixed-arity normalization step run on every intercepted
// call before any dispatch logic. Callers deliver arguments as raw register
// values; variability in the calling convention (the optional creation
// mode, fcntl's pointer-width third argument, openat2's caller-sized
// struct) is absorbed here and never leaks past this boundary.

// O_TMPFILE carries O_DIRECTORY in its definition; the distinguishing bit
// is this one.
const oTmpfileMask = 0o20000000

// modeArg extracts the optional trailing mode argument. The mode is only
// present in the caller's register when flags request file creation; in
// every other case the register holds garbage left over from the caller's
// stack and must be ignored, substituting zero.
//
// The raw value arrives at full register width (the C ABI promotes the
// narrower mode_t) and is truncated to mode width only after the gate.
func modeArg(flags int32, raw uint64) uint32 {
	if flags&syscall.O_CREAT != 0 || flags&oTmpfileMask == oTmpfileMask {
		return uint32(raw)
	}
	return 0
}

// fcntlArg normalizes fcntl's third argument. The argument is always
// present in the variants hooked here, but commands disagree on its type
// (int, long or pointer), so it travels at full register width end to end.
// Truncating it to int here would silently corrupt F_SETLK and friends.
func fcntlArg(raw uint64) uint64 {
	return raw
}

// openHow is the decoded form of openat2's struct open_how.
type openHow struct {
	Flags   uint64
	Mode    uint64
	Resolve uint64
}

const openHowMinSize = 24

// decodeOpenHow parses a struct open_how image read from tracee memory.
// The caller declares the struct size it was built against; older callers
// may pass a larger future version, so only the three known fields are
// decoded and the size is validated against the minimum this layer
// understands.
func decodeOpenHow(b []byte) (openHow, syscall.Errno) {
	if len(b) < openHowMinSize {
		return openHow{}, syscall.EINVAL
	}
	return openHow{
		Flags:   binary.LittleEndian.Uint64(b[0:8]),
		Mode:    binary.LittleEndian.Uint64(b[8:16]),
		Resolve: binary.LittleEndian.Uint64(b[16:24]),
	}, 0
}
