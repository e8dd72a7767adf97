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
	"os"
	"path/filepath"

	"github.com/riftfs/riftfs/domain"

	"github.com/sirupsen/logrus"
)

type ipcService struct {
	sockAddr string
	phase    domain.PhaseMonitorIface
	vfs      domain.VirtualFSServiceIface
	sts      domain.SessionStateServiceIface
	listener *net.UnixListener
}

func NewIpcService(sockAddr string, phase domain.PhaseMonitorIface) domain.IpcServiceIface {
	return &ipcService{
		sockAddr: sockAddr,
		phase:    phase,
	}
}

func (s *ipcService) Setup(
	vfs domain.VirtualFSServiceIface,
	sts domain.SessionStateServiceIface) error {

	if vfs == nil || sts == nil {
		return errors.New("invalid input parameters")
	}
	s.vfs = vfs
	s.sts = sts
	return nil
}

func (s *ipcService) Init() error {
	l, err := listenUnix(s.sockAddr)
	if err != nil {
		return err
	}
	s.listener = l

	go s.acceptLoop()

	logrus.Infof("IPC control plane listening on %s", s.sockAddr)
	return nil
}

func (s *ipcService) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *ipcService) acceptLoop() {
	for {
		conn, err := s.listener.AcceptUnix()
		if err != nil {
			// Listener closed during shutdown.
			return
		}
		go s.connHandler(conn)
	}
}

// One connection carries a sequence of request/response frames; the
// connection closes on the first framing error.
func (s *ipcService) connHandler(c *net.UnixConn) {
	defer c.Close()

	for {
		var req Request
		if err := ReadFrame(c, &req); err != nil {
			return
		}

		resp := s.handle(&req)
		if err := WriteFrame(c, resp); err != nil {
			logrus.Debugf("IPC response write error: %v", err)
			return
		}
	}
}

func (s *ipcService) handle(req *Request) *Response {
	switch req.Type {

	case MsgHandshake:
		if req.Version != ProtocolVersion {
			return errorResponse(fmt.Errorf("protocol mismatch: got %q, want %q",
				req.Version, ProtocolVersion))
		}
		return &Response{Ok: true, Version: ProtocolVersion}

	case MsgStatus:
		return &Response{
			Ok:       true,
			Version:  ProtocolVersion,
			Phase:    s.phase.Current().String(),
			Sessions: s.sts.SessionCount(),
			Prefixes: s.vfs.Prefixes(),
		}

	case MsgManifestGet:
		entry, ok := s.vfs.ManifestGet(req.Path)
		if !ok {
			return errorResponse(fmt.Errorf("no manifest entry for %q", req.Path))
		}
		return &Response{Ok: true, Entry: entry}

	case MsgManifestUpsert:
		if req.Entry == nil {
			return errorResponse(errors.New("upsert request carries no entry"))
		}
		if err := s.vfs.ManifestUpsert(*req.Entry); err != nil {
			return errorResponse(err)
		}
		logrus.Debugf("Manifest upsert completed: %s", req.Entry.Path)
		return &Response{Ok: true}

	case MsgManifestRemove:
		if err := s.vfs.ManifestRemove(req.Path); err != nil {
			return errorResponse(err)
		}
		logrus.Debugf("Manifest remove completed: %s", req.Path)
		return &Response{Ok: true}

	case MsgManifestList:
		entries, err := s.vfs.ManifestListDir(req.Path)
		if err != nil {
			return errorResponse(err)
		}
		return &Response{Ok: true, Entries: entries}

	default:
		return errorResponse(fmt.Errorf("unknown request type %q", req.Type))
	}
}

func errorResponse(err error) *Response {
	return &Response{Ok: false, Error: err.Error()}
}

// listenUnix binds a unix listener at addr, replacing any stale socket
// left behind by a previous run.
func listenUnix(addr string) (*net.UnixListener, error) {
	if err := os.MkdirAll(filepath.Dir(addr), 0700); err != nil {
		return nil, err
	}
	if err := os.Remove(addr); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return net.ListenUnix("unix", &net.UnixAddr{Name: addr, Net: "unix"})
}
