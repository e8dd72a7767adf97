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
	"github.com/riftfs/riftfs/domain"

	"golang.org/x/sys/unix"
)

// packStat encodes the normalized stat payload into this architecture's
// struct stat image (arm64 carries Nlink and Blksize at 32 bits).
func packStat(buf *domain.StatBuf) unix.Stat_t {
	var st unix.Stat_t
	st.Ino = buf.Ino
	st.Size = buf.Size
	st.Mode = buf.Mode
	st.Nlink = buf.Nlink
	st.Uid = buf.Uid
	st.Gid = buf.Gid
	st.Mtim.Sec = buf.Mtime
	st.Blksize = 4096
	st.Blocks = (buf.Size + 511) / 512
	return st
}
