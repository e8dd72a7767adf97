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

package intercept

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"unsafe"

	"github.com/riftfs/riftfs/domain"
	"github.com/riftfs/riftfs/ipc"

	libseccomp "github.com/seccomp/libseccomp-golang"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// libseccomp req/resp aliases.
type sysRequest = libseccomp.ScmpNotifReq
type sysResponse = libseccomp.ScmpNotifResp

// Syscall-interception service. External packages rely solely on this
// struct for their interception demands.
type SyscallInterceptService struct {
	prs                domain.ProcessServiceIface      // for tracee attribute interactions
	sts                domain.SessionStateServiceIface // for session registry interactions
	errno              domain.ErrnoBridgeIface         // per-thread error slots
	dispatcher         *Dispatcher                     // phase-gated call multiplexer
	vfs                domain.VirtualFSServiceIface    // daemon-side descriptors behind injected opens
	sockAddr           string                          // session registration socket
	closeOnSessionExit bool                            // close notify fds when the registering process exits
	tracer             *syscallTracer                  // pointer to actual tracer instance
}

func NewSyscallInterceptService() *SyscallInterceptService {
	return &SyscallInterceptService{}
}

func (sis *SyscallInterceptService) Setup(
	phase domain.PhaseMonitorIface,
	vfs domain.VirtualFSServiceIface,
	prs domain.ProcessServiceIface,
	sts domain.SessionStateServiceIface,
	errno domain.ErrnoBridgeIface,
	sockAddr string,
	closeOnSessionExit bool) {

	sis.prs = prs
	sis.sts = sts
	sis.errno = errno
	sis.vfs = vfs
	sis.sockAddr = sockAddr
	sis.closeOnSessionExit = closeOnSessionExit

	// The kernel-continue backend answers pass-through decisions in this
	// frontend; descriptors the virtual filesystem hands out are released
	// back to it once injected.
	sis.dispatcher = NewDispatcher(phase, vfs, NewKernelContinue())

	sis.tracer = newSyscallTracer(sis)
	if sis.tracer == nil {
		logrus.Fatalf("syscallInterceptService initialization error. Exiting ...")
	}

	if err := sis.tracer.start(); err != nil {
		logrus.Fatalf("syscallInterceptService initialization error (%v). Exiting ...", err)
	}
}

type archCallPair struct {
	archId libseccomp.ScmpArch
	callId libseccomp.ScmpSyscall
}

// traceeSession holds the state associated to one registered tracee:
// its identity, its polling fds, the tids observed on its notify fd, and
// the daemon-side descriptors backing fds injected into it.
//
// The tracer never sees close(2), so a tracee fd number reused after a
// close keeps its mapping until session teardown.
type traceeSession struct {
	pid   uint32 // pid of the tracee process
	fd    int32  // tracee's seccomp notify fd
	pidfd int32  // fd associated to tracee's pid to influence poll() cycle

	mu       sync.Mutex
	tids     map[uint32]struct{} // tids seen in notifications on this session
	injected map[int32]int32     // tracee-visible fd -> daemon-side fd
}

func newTraceeSession(pid uint32, fd, pidfd int32) *traceeSession {
	return &traceeSession{
		pid:      pid,
		fd:       fd,
		pidfd:    pidfd,
		tids:     make(map[uint32]struct{}),
		injected: make(map[int32]int32),
	}
}

func (s *traceeSession) trackTid(tid uint32) {
	s.mu.Lock()
	s.tids[tid] = struct{}{}
	s.mu.Unlock()
}

// trackInjected records the daemon-side descriptor backing an fd just
// injected into the tracee, keeping the fd-taking operations resolvable
// against the number the tracee observes.
func (s *traceeSession) trackInjected(traceeFd, daemonFd int32) {
	s.mu.Lock()
	s.injected[traceeFd] = daemonFd
	s.mu.Unlock()
}

func (s *traceeSession) translate(traceeFd int32) (int32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	daemonFd, ok := s.injected[traceeFd]
	return daemonFd, ok
}

// drain empties the session's tracked state for teardown, returning the
// observed tids and the daemon-side descriptors still held.
func (s *traceeSession) drain() ([]uint32, []int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tids := make([]uint32, 0, len(s.tids))
	for tid := range s.tids {
		tids = append(tids, tid)
	}
	daemonFds := make([]int32, 0, len(s.injected))
	for _, dfd := range s.injected {
		daemonFds = append(daemonFds, dfd)
	}

	s.tids = make(map[uint32]struct{})
	s.injected = make(map[int32]int32)

	return tids, daemonFds
}

// The syscall tracer: receives seccomp notifications, funnels each one
// through the dispatcher, and answers the kernel.
type syscallTracer struct {
	srv         *ipc.SeccompServer       // unix server receiving session registrations
	calls       map[archCallPair]string  // monitored calls indexed by seccomp arch and syscall id
	memParser   memParser                // memParser to utilize for tracee interactions
	sessions    map[int32]*traceeSession // active sessions indexed by notify fd
	sessionsMu  sync.RWMutex             // sessions table lock
	unusedNotif bool                     // notify-fd unused notification supported by kernel
	notifTidTrk *notifTidTracker         // serializes notifications per tid
	service     *SyscallInterceptService // backpointer to intercept service
}

func supportedCompatArchCalls(nativeArchId libseccomp.ScmpArch) map[libseccomp.ScmpArch][]InterceptedCall {
	switch nativeArchId {
	case libseccomp.ArchAMD64:
		return map[libseccomp.ScmpArch][]InterceptedCall{
			libseccomp.ArchAMD64: interceptedCalls,
			libseccomp.ArchX86:   interceptedCalls,
		}
	default:
		return map[libseccomp.ScmpArch][]InterceptedCall{
			nativeArchId: interceptedCalls,
		}
	}
}

// syscallTracer constructor.
func newSyscallTracer(sis *SyscallInterceptService) *syscallTracer {

	tracer := &syscallTracer{
		service:  sis,
		calls:    make(map[archCallPair]string),
		sessions: make(map[int32]*traceeSession),
	}

	// Bind the static call table against the running kernel. Legacy call
	// names are allowed to be absent on architectures that never carried
	// them; any other binding failure invalidates the configuration.
	nativeArchId, err := libseccomp.GetNativeArch()
	if err != nil {
		logrus.Warnf("Tracer initialization error: error obtaining native architecture")
		return nil
	}

	for archId, calls := range supportedCompatArchCalls(nativeArchId) {
		for _, call := range calls {
			callId, err := libseccomp.GetSyscallFromNameByArch(call.Name, archId)
			if err != nil {
				if call.Legacy {
					logrus.Debugf("Legacy call %q not present on arch %v; skipping", call.Name, archId)
					continue
				}
				logrus.Warnf("Tracer initialization error: unknown syscall (%v, %v).",
					archId, call.Name)
				return nil
			}
			tracer.calls[archCallPair{archId, callId}] = call.Name
		}
	}

	// Elect the memParser to utilize based on the availability of the
	// process_vm_readv() syscall.
	_, err = unix.ProcessVMReadv(int(1), nil, nil, 0)
	if err == syscall.ENOSYS {
		tracer.memParser = &memParserProcfs{}
		logrus.Info("Procfs memParser elected")
	} else {
		tracer.memParser = &memParserIOvec{}
		logrus.Info("IOvec memParser elected")
	}

	// The notify-fd's unused notification feature is provided by the kernel
	// starting with v5.8.
	atLeast, err := kernelAtLeast(5, 8)
	if err != nil {
		logrus.Warnf("Tracer initialization error: unable to parse kernel version (%v).", err)
		return nil
	}
	tracer.unusedNotif = atLeast

	tracer.notifTidTrk = newNotifTidTracker()

	return tracer
}

// Start syscall tracer.
func (t *syscallTracer) start() error {

	// Enforce proper support of seccomp-monitoring capabilities by the
	// running kernel; bail otherwise.
	api, err := libseccomp.GetAPI()
	if err != nil {
		logrus.Errorf("Error while obtaining seccomp API level (%v).", err)
		return err
	} else if api < 5 {
		logrus.Errorf("Error: need seccomp API level >= 5; it's currently %d", api)
		return fmt.Errorf("unsupported kernel")
	}

	// Launch a new server to listen on the registration socket. Incoming
	// sessions are handled through a dedicated goroutine each.
	srv, err := ipc.NewSeccompServer(t.service.sockAddr, t.connHandler)
	if err != nil {
		logrus.Errorf("Unable to initialize tracer registration server")
		return err
	}
	t.srv = srv

	return nil
}

func (t *syscallTracer) stop() error {
	if t.srv != nil {
		return t.srv.Close()
	}
	return nil
}

// sessionPidfd obtains a pidfd for the registering process. In scenarios
// lacking the kernel's unused-filter notifications the pidfd is the only
// way to learn when to stop polling the notify fd.
func (t *syscallTracer) sessionPidfd(pid int32) int32 {
	if t.unusedNotif {
		return 0
	}

	pidfd, err := unix.PidfdOpen(int(pid), 0)
	if err != nil {
		logrus.Errorf("Unexpected error during PidfdOpen() execution (%v) on pid %d",
			err, pid)
		return 0
	}
	return int32(pidfd)
}

// Tracer's connection-handler method. Executed within a dedicated goroutine
// (one per session).
func (t *syscallTracer) connHandler(c *net.UnixConn) {

	// Obtain the seccomp notify fd and associated tracee identity.
	pid, fd, err := ipc.RecvSessionInitMsg(c)
	if err != nil {
		return
	}

	// Ack the registration back to the shim.
	if err = ipc.SendSessionInitAckMsg(c); err != nil {
		return
	}

	pidfd := t.sessionPidfd(pid)

	session := newTraceeSession(uint32(pid), fd, pidfd)
	reg := t.service.sts.SessionCreate(uint32(pid), fd)
	if err := t.service.sts.SessionAdd(reg); err != nil {
		logrus.Warnf("Unable to register session for pid %d: %v", pid, err)
		unix.Close(int(fd))
		c.Close()
		return
	}

	t.sessionsMu.Lock()
	t.sessions[fd] = session
	t.sessionsMu.Unlock()

	logrus.Debugf("Created tracee session %s for fd %d, pid %d", reg.ID(), fd, pid)

	for {
		var fds []unix.PollFd

		if t.unusedNotif {
			fds = []unix.PollFd{
				{Fd: fd, Events: unix.POLLIN},
			}
		} else {
			fds = []unix.PollFd{
				{Fd: fd, Events: unix.POLLIN},
				{Fd: pidfd, Events: unix.POLLIN},
			}
		}

		// Poll the notify fd for incoming syscalls.
		_, err := unix.Poll(fds, -1)
		if err != nil {
			// As per signal(7), poll() isn't restartable by the kernel, so
			// its interruption must be handled manually.
			if err == syscall.EINTR {
				continue
			}
			logrus.Debugf("Error during Poll() execution (%v) on fd %d, pid %d",
				err, fd, pid)
			break
		}

		// As per pidfd_open(2), a pidfd becomes readable when its associated
		// pid terminates. Exit the polling loop when this occurs.
		if !t.unusedNotif && fds[1].Revents == unix.POLLIN {
			logrus.Debugf("POLLIN event received on pidfd %d, pid %d", pidfd, pid)
			break
		}

		// Exit the polling loop whenever the received event on the notify fd
		// is not the expected one.
		if fds[0].Revents != unix.POLLIN {
			logrus.Debugf("Non-POLLIN event received on fd %d, pid %d", fd, pid)
			break
		}

		// Retrieve the notification. No 'break' upon error detection, as
		// libseccomp/kernel can return non-fatal errors (i.e. ENOENT) to
		// alert of a problem with a specific notification.
		req, err := libseccomp.NotifReceive(libseccomp.ScmpFd(fd))
		if err != nil {
			logrus.Infof("Unexpected error during NotifReceive() execution (%v) on fd %d, pid %d",
				err, fd, pid)
			continue
		}

		// Process the incoming syscall and respond to the tracee.
		go t.process(req, fd)
	}

	t.sessionDelete(session, reg)

	c.Close()
}

func (t *syscallTracer) sessionByFd(fd int32) *traceeSession {
	t.sessionsMu.RLock()
	defer t.sessionsMu.RUnlock()
	return t.sessions[fd]
}

// translateFd maps a tracee-visible descriptor number to the daemon-side
// descriptor backing it, when the number came from an injected open.
func (t *syscallTracer) translateFd(notifyFd, traceeFd int32) (int32, bool) {
	s := t.sessionByFd(notifyFd)
	if s == nil {
		return 0, false
	}
	return s.translate(traceeFd)
}

func (t *syscallTracer) sessionDelete(s *traceeSession, reg domain.SessionIface) {
	t.sessionsMu.Lock()
	delete(t.sessions, s.fd)
	t.sessionsMu.Unlock()

	tids, daemonFds := s.drain()

	// Release the daemon-side descriptors still backing injected fds.
	for _, dfd := range daemonFds {
		if err := t.service.vfs.CloseFd(dfd); err != nil {
			logrus.Warnf("Failed to release daemon-side fd %d for pid %d: %v",
				dfd, s.pid, err)
		}
	}

	closeFds := []int32{s.fd}
	if s.pidfd != 0 {
		closeFds = append(closeFds, s.pidfd)
	}

	for _, fd := range closeFds {
		if err := unix.Close(int(fd)); err != nil {
			logrus.Errorf("Failed to close notify fd %v for pid %d: %v", fd, s.pid, err)
		}
	}

	if err := t.service.sts.SessionDelete(reg); err != nil {
		logrus.Warnf("Failed to deregister session for pid %d: %v", s.pid, err)
	}

	// The tracee is gone; its threads' error slots are dead weight now.
	for _, tid := range tids {
		t.service.errno.ClearThread(tid)
	}
	t.service.errno.ClearThread(s.pid)

	logrus.Debugf("Removed tracee session for pid %d, fd(s) %v", s.pid, closeFds)
}

func (t *syscallTracer) process(req *sysRequest, fd int32) {

	// Every tid observed on the notify fd owns an error slot; the session
	// remembers them so teardown can reclaim each one.
	if s := t.sessionByFd(fd); s != nil {
		s.trackTid(req.Pid)
	}

	// For a given tid only one syscall is processed at a time. Syscalls of
	// different tids are processed in parallel.
	t.notifTidTrk.Lock(req.Pid)
	defer t.notifTidTrk.Unlock(req.Pid)

	resp, err := t.processSyscall(req, fd)
	if err != nil {
		return
	}

	_ = libseccomp.NotifRespond(libseccomp.ScmpFd(fd), resp)
}

// Syscall processing entrypoint. Returns the response to be delivered to
// the tracee generating the syscall.
func (t *syscallTracer) processSyscall(
	req *sysRequest,
	fd int32) (*sysResponse, error) {

	var (
		resp *sysResponse
		err  error
	)

	archId := req.Data.Arch
	callId := req.Data.Syscall
	callName := t.calls[archCallPair{archId, callId}]

	switch callName {
	case "open":
		resp, err = t.processOpen(req, fd)

	case "creat":
		resp, err = t.processCreat(req, fd)

	case "openat":
		resp, err = t.processOpenat(req, fd)

	case "openat2":
		resp, err = t.processOpenat2(req, fd)

	case "rename":
		resp, err = t.processRename(req, fd)

	case "renameat":
		resp, err = t.processRenameat(req, fd)

	case "fcntl":
		resp, err = t.processFcntl(req, fd)

	case "mkdir":
		resp, err = t.processMkdir(req, fd)

	case "unlink":
		resp, err = t.processUnlink(req, fd)

	case "stat":
		resp, err = t.processStat(req, fd)

	case "fchmod":
		resp, err = t.processFchmod(req, fd)

	default:
		logrus.Warnf("Unsupported syscall notification received (%v) on fd %d, pid %d",
			callId, fd, req.Pid)
		return t.createErrorResponse(req.ID, syscall.EINVAL), nil
	}

	// If an 'infrastructure' error is encountered during syscall
	// processing, return a common error back to the tracee. 'Infrastructure'
	// refers to problems beyond the end-user realm: an EACCES reported by
	// the dispatcher doesn't qualify, whereas an inexistent /proc/pid/mem
	// does.
	if err != nil {
		logrus.Warnf("Error during syscall %v processing on fd %d, pid %d, req Id %d (%v)",
			callName, fd, req.Pid, req.ID, err)
		return t.createErrorResponse(req.ID, syscall.EINVAL), nil
	}

	// TOCTOU check.
	if err := libseccomp.NotifIDValid(libseccomp.ScmpFd(fd), req.ID); err != nil {
		logrus.Debugf("TOCTOU check failed on fd %d pid %d: req.ID %d is no longer valid (%s)",
			fd, req.Pid, req.ID, err)
		return t.createErrorResponse(req.ID, err), fmt.Errorf("TOCTOU error")
	}

	return resp, nil
}

// callCtx builds the dispatch context for one notification, collecting the
// tracee attributes the dispatcher and VFS rely on.
func (t *syscallTracer) callCtx(req *sysRequest) (*domain.SyscallCtx, domain.ProcessIface) {
	process := t.service.prs.ProcessCreate(req.Pid, 0, 0)

	return &domain.SyscallCtx{
		Tid:   req.Pid,
		ReqId: req.ID,
		Uid:   process.Uid(),
		Gid:   process.Gid(),
	}, process
}

// resolvePath normalizes a tracee-relative path: /proc/self components are
// rewritten to refer to the tracee, and relative paths are anchored at the
// tracee's cwd (or at the directory backing dirfd for the *at variants).
// The daemon's own cwd must never leak into this resolution.
func (t *syscallTracer) resolvePath(
	process domain.ProcessIface,
	dirfd int32,
	path string) (string, error) {

	path, err := process.ResolveProcSelf(path)
	if err != nil {
		return "", err
	}

	if filepath.IsAbs(path) {
		return path, nil
	}

	if dirfd == int32(atFdcwd) {
		return filepath.Join(process.Cwd(), path), nil
	}

	dir, err := process.GetFd(dirfd)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, path), nil
}

var atFdcwd int32 = unix.AT_FDCWD

// completeCall folds a dispatcher result into a seccomp response. A
// pass-through decision becomes a "continue" answer; a failure surfaces the
// thread's error slot byte-for-byte; an fd-returning success requires
// injecting the daemon-held descriptor into the tracee before answering.
func (t *syscallTracer) completeCall(
	ctx *domain.SyscallCtx,
	req *sysRequest,
	notifyFd int32,
	call *InterceptedCall,
	ret int64) (*sysResponse, error) {

	if ctx.PassedThrough {
		return t.createContinueResponse(req.ID), nil
	}

	if ret < 0 {
		return t.createErrorResponse(req.ID, t.service.errno.Errno(ctx.Tid)), nil
	}

	if call != nil && call.FdReturning {
		injectedFd, err := t.injectFd(notifyFd, req.ID, int32(ret))
		if err != nil {
			logrus.Warnf("Failed to inject fd %d into pid %d: %v", ret, req.Pid, err)
			if cerr := t.service.vfs.CloseFd(int32(ret)); cerr != nil {
				logrus.Warnf("Failed to close daemon-side fd %d: %v", ret, cerr)
			}
			return t.createErrorResponse(req.ID, err), nil
		}

		// The kernel duplicated our descriptor into the tracee under its own
		// number. The daemon-side copy stays open for the session's lifetime:
		// it is the key the fd-taking operations (fcntl, fchmod) resolve the
		// tracee's number against.
		if s := t.sessionByFd(notifyFd); s != nil {
			s.trackInjected(injectedFd, int32(ret))
		} else if cerr := t.service.vfs.CloseFd(int32(ret)); cerr != nil {
			logrus.Warnf("Failed to close daemon-side fd %d: %v", ret, cerr)
		}

		return t.createSuccessResponseWithRetValue(req.ID, uint64(injectedFd)), nil
	}

	return t.createSuccessResponseWithRetValue(req.ID, uint64(ret)), nil
}

func (t *syscallTracer) processOpen(req *sysRequest, fd int32) (*sysResponse, error) {

	parsedArgs, err := t.memParser.ReadSyscallStringArgs(
		req.Pid,
		[]memParserDataElem{{req.Data.Args[0], unix.PathMax, nil}},
	)
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EPERM), nil
	}

	flags := int32(req.Data.Args[1])
	rawMode := req.Data.Args[2]

	ctx, process := t.callCtx(req)
	path, err := t.resolvePath(process, atFdcwd, parsedArgs[0])
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EACCES), nil
	}

	ret := t.service.dispatcher.Open(ctx, path, flags, rawMode)

	return t.completeCall(ctx, req, fd, callByName("open"), ret)
}

func (t *syscallTracer) processCreat(req *sysRequest, fd int32) (*sysResponse, error) {

	parsedArgs, err := t.memParser.ReadSyscallStringArgs(
		req.Pid,
		[]memParserDataElem{{req.Data.Args[0], unix.PathMax, nil}},
	)
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EPERM), nil
	}

	// creat(2) is open with the creation triple hardwired.
	flags := int32(unix.O_CREAT | unix.O_WRONLY | unix.O_TRUNC)
	rawMode := req.Data.Args[1]

	ctx, process := t.callCtx(req)
	path, err := t.resolvePath(process, atFdcwd, parsedArgs[0])
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EACCES), nil
	}

	ret := t.service.dispatcher.Open(ctx, path, flags, rawMode)

	return t.completeCall(ctx, req, fd, callByName("creat"), ret)
}

func (t *syscallTracer) processOpenat(req *sysRequest, fd int32) (*sysResponse, error) {

	dirfd := int32(req.Data.Args[0])

	parsedArgs, err := t.memParser.ReadSyscallStringArgs(
		req.Pid,
		[]memParserDataElem{{req.Data.Args[1], unix.PathMax, nil}},
	)
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EPERM), nil
	}

	flags := int32(req.Data.Args[2])
	rawMode := req.Data.Args[3]

	ctx, process := t.callCtx(req)
	path, err := t.resolvePath(process, dirfd, parsedArgs[0])
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EACCES), nil
	}

	ret := t.service.dispatcher.Openat(ctx, dirfd, path, flags, rawMode)

	return t.completeCall(ctx, req, fd, callByName("openat"), ret)
}

func (t *syscallTracer) processOpenat2(req *sysRequest, fd int32) (*sysResponse, error) {

	dirfd := int32(req.Data.Args[0])
	howSize := int(req.Data.Args[3])

	parsedArgs, err := t.memParser.ReadSyscallStringArgs(
		req.Pid,
		[]memParserDataElem{{req.Data.Args[1], unix.PathMax, nil}},
	)
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EPERM), nil
	}

	// Extract the open_how struct from tracee memory, honoring the size the
	// caller declared it with.
	parsedBytes, err := t.memParser.ReadSyscallBytesArgs(
		req.Pid,
		[]memParserDataElem{{req.Data.Args[2], howSize, nil}},
	)
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EPERM), nil
	}

	how, errno := decodeOpenHow([]byte(parsedBytes[0]))
	if errno != 0 {
		return t.createErrorResponse(req.ID, errno), nil
	}

	ctx, process := t.callCtx(req)
	path, err := t.resolvePath(process, dirfd, parsedArgs[0])
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EACCES), nil
	}

	ret := t.service.dispatcher.Openat2(ctx, dirfd, path, how)

	return t.completeCall(ctx, req, fd, callByName("openat2"), ret)
}

func (t *syscallTracer) processRename(req *sysRequest, fd int32) (*sysResponse, error) {

	parsedArgs, err := t.memParser.ReadSyscallStringArgs(
		req.Pid,
		[]memParserDataElem{
			{req.Data.Args[0], unix.PathMax, nil},
			{req.Data.Args[1], unix.PathMax, nil},
		},
	)
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EPERM), nil
	}

	ctx, process := t.callCtx(req)
	oldPath, err := t.resolvePath(process, atFdcwd, parsedArgs[0])
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EACCES), nil
	}
	newPath, err := t.resolvePath(process, atFdcwd, parsedArgs[1])
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EACCES), nil
	}

	ret := t.service.dispatcher.Rename(ctx, oldPath, newPath)

	return t.completeCall(ctx, req, fd, callByName("rename"), ret)
}

func (t *syscallTracer) processRenameat(req *sysRequest, fd int32) (*sysResponse, error) {

	oldDirfd := int32(req.Data.Args[0])
	newDirfd := int32(req.Data.Args[2])

	parsedArgs, err := t.memParser.ReadSyscallStringArgs(
		req.Pid,
		[]memParserDataElem{
			{req.Data.Args[1], unix.PathMax, nil},
			{req.Data.Args[3], unix.PathMax, nil},
		},
	)
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EPERM), nil
	}

	ctx, process := t.callCtx(req)
	oldPath, err := t.resolvePath(process, oldDirfd, parsedArgs[0])
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EACCES), nil
	}
	newPath, err := t.resolvePath(process, newDirfd, parsedArgs[1])
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EACCES), nil
	}

	ret := t.service.dispatcher.Renameat(ctx, oldDirfd, oldPath, newDirfd, newPath)

	return t.completeCall(ctx, req, fd, callByName("renameat"), ret)
}

func (t *syscallTracer) processFcntl(req *sysRequest, fd int32) (*sysResponse, error) {

	targetFd := int32(req.Data.Args[0])
	cmd := int32(req.Data.Args[1])
	rawArg := req.Data.Args[2]

	// The notification carries the tracee's descriptor number; only numbers
	// backed by an injected open map into the daemon's descriptor table.
	// Any other number belongs to the tracee's kernel and continues there.
	daemonFd, tracked := t.translateFd(fd, targetFd)
	if !tracked {
		return t.createContinueResponse(req.ID), nil
	}

	ctx, _ := t.callCtx(req)

	ret := t.service.dispatcher.Fcntl(ctx, daemonFd, cmd, rawArg)

	return t.completeCall(ctx, req, fd, callByName("fcntl"), ret)
}

func (t *syscallTracer) processMkdir(req *sysRequest, fd int32) (*sysResponse, error) {

	parsedArgs, err := t.memParser.ReadSyscallStringArgs(
		req.Pid,
		[]memParserDataElem{{req.Data.Args[0], unix.PathMax, nil}},
	)
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EPERM), nil
	}

	mode := uint32(req.Data.Args[1])

	ctx, process := t.callCtx(req)
	path, err := t.resolvePath(process, atFdcwd, parsedArgs[0])
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EACCES), nil
	}

	ret := t.service.dispatcher.Mkdir(ctx, path, mode)

	return t.completeCall(ctx, req, fd, callByName("mkdir"), ret)
}

func (t *syscallTracer) processUnlink(req *sysRequest, fd int32) (*sysResponse, error) {

	parsedArgs, err := t.memParser.ReadSyscallStringArgs(
		req.Pid,
		[]memParserDataElem{{req.Data.Args[0], unix.PathMax, nil}},
	)
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EPERM), nil
	}

	ctx, process := t.callCtx(req)
	path, err := t.resolvePath(process, atFdcwd, parsedArgs[0])
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EACCES), nil
	}

	ret := t.service.dispatcher.Unlink(ctx, path)

	return t.completeCall(ctx, req, fd, callByName("unlink"), ret)
}

func (t *syscallTracer) processStat(req *sysRequest, fd int32) (*sysResponse, error) {

	parsedArgs, err := t.memParser.ReadSyscallStringArgs(
		req.Pid,
		[]memParserDataElem{{req.Data.Args[0], unix.PathMax, nil}},
	)
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EPERM), nil
	}

	statAddr := req.Data.Args[1]

	ctx, process := t.callCtx(req)
	path, err := t.resolvePath(process, atFdcwd, parsedArgs[0])
	if err != nil {
		return t.createErrorResponse(req.ID, syscall.EACCES), nil
	}

	var buf domain.StatBuf
	ret := t.service.dispatcher.Stat(ctx, path, &buf)

	// On a virtually-serviced success the stat payload must materialize in
	// the tracee's buffer, encoded in the architecture's struct stat shape.
	if ret == 0 && !ctx.PassedThrough {
		st := packStat(&buf)
		data := unsafe.Slice((*byte)(unsafe.Pointer(&st)), unsafe.Sizeof(st))

		err := t.memParser.WriteSyscallBytesArgs(
			req.Pid,
			[]memParserDataElem{{statAddr, len(data), data}},
		)
		if err != nil {
			return t.createErrorResponse(req.ID, syscall.EFAULT), nil
		}
	}

	return t.completeCall(ctx, req, fd, callByName("stat"), ret)
}

func (t *syscallTracer) processFchmod(req *sysRequest, fd int32) (*sysResponse, error) {

	targetFd := int32(req.Data.Args[0])
	mode := uint32(req.Data.Args[1])

	// Same translation gate as fcntl: a chmod on a descriptor backed by the
	// virtual tree must never run against the shared blob behind it.
	daemonFd, tracked := t.translateFd(fd, targetFd)
	if !tracked {
		return t.createContinueResponse(req.ID), nil
	}

	ctx, _ := t.callCtx(req)

	ret := t.service.dispatcher.Fchmod(ctx, daemonFd, mode)

	return t.completeCall(ctx, req, fd, callByName("fchmod"), ret)
}

// seccompNotifAddFd mirrors the kernel's struct seccomp_notif_addfd,
// used to duplicate a daemon-held descriptor into the tracee.
type seccompNotifAddFd struct {
	id         uint64
	flags      uint32
	srcFd      uint32
	newFd      uint32
	newFdFlags uint32
}

// SECCOMP_IOCTL_NOTIF_ADDFD: _IOW('!', 3, struct seccomp_notif_addfd).
const seccompIoctlNotifAddFd = uintptr(0x40182103)

// injectFd duplicates srcFd (a descriptor of this daemon) into the tracee
// identified by the notification, returning the descriptor number the
// tracee observes.
func (t *syscallTracer) injectFd(notifyFd int32, reqId uint64, srcFd int32) (int32, error) {

	addfd := seccompNotifAddFd{
		id:    reqId,
		srcFd: uint32(srcFd),
	}

	newFd, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		uintptr(notifyFd),
		seccompIoctlNotifAddFd,
		uintptr(unsafe.Pointer(&addfd)),
	)
	if errno != 0 {
		return -1, errno
	}

	return int32(newFd), nil
}

// kernelAtLeast compares the running kernel version against major.minor.
func kernelAtLeast(major, minor int) (bool, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return false, err
	}

	release := string(uts.Release[:])
	if i := strings.IndexByte(release, 0); i >= 0 {
		release = release[:i]
	}

	var kmajor, kminor int
	if _, err := fmt.Sscanf(release, "%d.%d", &kmajor, &kminor); err != nil {
		return false, fmt.Errorf("unexpected kernel release string %q: %v", release, err)
	}

	if kmajor != major {
		return kmajor > major, nil
	}
	return kminor >= minor, nil
}

func (t *syscallTracer) createSuccessResponse(id uint64) *sysResponse {

	resp := &sysResponse{
		ID:    id,
		Error: 0,
		Val:   0,
		Flags: 0,
	}

	return resp
}

func (t *syscallTracer) createSuccessResponseWithRetValue(id, val uint64) *sysResponse {

	resp := &sysResponse{
		ID:    id,
		Error: 0,
		Val:   val,
		Flags: 0,
	}

	return resp
}

func (t *syscallTracer) createContinueResponse(id uint64) *sysResponse {

	resp := &sysResponse{
		ID:    id,
		Error: 0,
		Val:   0,
		Flags: libseccomp.NotifRespFlagContinue,
	}

	return resp
}

func (t *syscallTracer) createErrorResponse(id uint64, err error) *sysResponse {

	// Override the passed error if this one doesn't match the supported type.
	rcvdError, ok := err.(syscall.Errno)
	if !ok {
		rcvdError = syscall.EINVAL
	}

	resp := &sysResponse{
		ID:    id,
		Error: int32(rcvdError),
		Val:   0,
		Flags: 0,
	}

	return resp
}
