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

// Package process reads tracee attributes out of procfs. The interception
// layer uses them to normalize syscall arguments: a tracee's relative path
// must resolve against the tracee's cwd (or one of its open directory
// descriptors), never against the daemon's.
package process

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/riftfs/riftfs/domain"
)

type processService struct {
	ios domain.IOServiceIface
}

func NewProcessService() domain.ProcessServiceIface {
	return &processService{}
}

func (ps *processService) Setup(ios domain.IOServiceIface) {
	ps.ios = ios
}

func (ps *processService) ProcessCreate(
	pid uint32,
	uid uint32,
	gid uint32) domain.ProcessIface {

	return &process{
		pid: pid,
		uid: uid,
		gid: gid,
		ps:  ps,
	}
}

type process struct {
	pid    uint32            // process id
	root   string            // root dir
	cwd    string            // current working dir
	uid    uint32            // effective uid
	gid    uint32            // effective gid
	status map[string]string // process status fields
	ps     *processService   // pointer to parent processService
}

func (p *process) Pid() uint32 {
	return p.pid
}

func (p *process) Uid() uint32 {
	if p.status == nil {
		if err := p.getInfo(); err != nil {
			return p.uid
		}
	}
	return p.uid
}

func (p *process) Gid() uint32 {
	if p.status == nil {
		if err := p.getInfo(); err != nil {
			return p.gid
		}
	}
	return p.gid
}

// Cwd returns the tracee's current working directory, resolved to a real
// path so it can be compared against virtual prefixes.
func (p *process) Cwd() string {
	if p.cwd == "" {
		cwd, err := os.Readlink(fmt.Sprintf("/proc/%d/cwd", p.pid))
		if err != nil {
			return "/"
		}
		p.cwd = cwd
	}
	return p.cwd
}

func (p *process) Root() string {
	if p.root == "" {
		root, err := os.Readlink(fmt.Sprintf("/proc/%d/root", p.pid))
		if err != nil {
			return "/"
		}
		p.root = root
	}
	return p.root
}

// GetFd returns the path backing the tracee's descriptor fd.
func (p *process) GetFd(fd int32) (string, error) {
	return os.Readlink(fmt.Sprintf("/proc/%d/fd/%d", p.pid, fd))
}

// ResolveProcSelf rewrites /proc/self and /proc/thread-self components so
// they refer to the tracee. The daemon dereferencing such a path directly
// would land on its own procfs entries.
func (p *process) ResolveProcSelf(in string) (string, error) {
	if !strings.HasPrefix(in, "/proc/") {
		return in, nil
	}

	clean := path.Clean(in)
	switch {
	case clean == "/proc/self" || strings.HasPrefix(clean, "/proc/self/"):
		return strings.Replace(clean, "/proc/self",
			fmt.Sprintf("/proc/%d", p.pid), 1), nil
	case clean == "/proc/thread-self" || strings.HasPrefix(clean, "/proc/thread-self/"):
		// Notifications identify the calling thread, so pid here is the
		// kernel tid; its procfs view lives under the group leader's task
		// dir, but /proc/<tid> works for the attributes we read.
		return strings.Replace(clean, "/proc/thread-self",
			fmt.Sprintf("/proc/%d", p.pid), 1), nil
	}
	return clean, nil
}

// getInfo parses the effective uid/gid out of /proc/<pid>/status. The
// values coming with a seccomp notification are kept as fallback when the
// process is already gone.
func (p *process) getInfo() error {

	space := regexp.MustCompile(`\s+`)

	if err := p.getStatus([]string{"Uid", "Gid"}); err != nil {
		return err
	}

	// effective uid
	str := space.ReplaceAllString(p.status["Uid"], " ")
	str = strings.TrimSpace(str)
	uids := strings.Split(str, " ")
	if len(uids) != 4 {
		return fmt.Errorf("invalid uid status: %+v", uids)
	}
	euid, err := strconv.Atoi(uids[1])
	if err != nil {
		return err
	}

	// effective gid
	str = space.ReplaceAllString(p.status["Gid"], " ")
	str = strings.TrimSpace(str)
	gids := strings.Split(str, " ")
	if len(gids) != 4 {
		return fmt.Errorf("invalid gid status: %+v", gids)
	}
	egid, err := strconv.Atoi(gids[1])
	if err != nil {
		return err
	}

	p.uid = uint32(euid)
	p.gid = uint32(egid)

	return nil
}

// getStatus retrieves process status info obtained from the
// /proc/[pid]/status file.
func (p *process) getStatus(fields []string) error {

	node := p.ps.ios.NewIOnode("status", fmt.Sprintf("/proc/%d/status", p.pid), 0)
	data, err := p.ps.ios.ReadFileNode(node)
	if err != nil {
		return err
	}

	status := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) < 1 {
			continue
		}
		for _, f := range fields {
			if parts[0] == f {
				if len(parts) > 1 {
					status[f] = parts[1]
				} else {
					status[f] = ""
				}
			}
		}
	}

	p.status = status

	return nil
}
