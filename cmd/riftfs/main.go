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

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	sd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/riftfs/riftfs/boot"
	"github.com/riftfs/riftfs/domain"
	"github.com/riftfs/riftfs/errstate"
	"github.com/riftfs/riftfs/intercept"
	"github.com/riftfs/riftfs/ipc"
	"github.com/riftfs/riftfs/process"
	"github.com/riftfs/riftfs/rawsys"
	"github.com/riftfs/riftfs/state"
	"github.com/riftfs/riftfs/sysio"
	"github.com/riftfs/riftfs/vfs"
)

const (
	usage = `riftfs daemon

riftfs serves a prefix-scoped virtual filesystem to processes whose file
syscalls are delivered to it over seccomp-notify.
`
)

// Globals to be populated at build time during Makefile processing.
var (
	version  string // extracted from VERSION file
	commitId string // latest git commit-id
	builtAt  string // build time
)

//
// riftfs exit handler goroutine.
//
func exitHandler(signalChan chan os.Signal, vfsSvc *vfs.Service, ipcSvc domain.IpcServiceIface) {

	s := <-signalChan
	logrus.Warnf("Caught OS signal: %s", s)

	sd.SdNotify(false, sd.SdNotifyStopping)

	if err := ipcSvc.Close(); err != nil {
		logrus.Warnf("Error closing control socket: %v", err)
	}
	if err := vfsSvc.Close(); err != nil {
		logrus.Warnf("Error closing vfs service: %v", err)
	}

	logrus.Info("Exiting.")
	os.Exit(0)
}

//
// riftfs main function
//
func main() {

	app := cli.NewApp()
	app.Name = "riftfs"
	app.Usage = usage
	app.Version = version

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "ctl-sock",
			Value: "/run/riftfs/ctl.sock",
			Usage: "control-plane socket location",
		},
		cli.StringFlag{
			Name:  "seccomp-sock",
			Value: "/run/riftfs/seccomp.sock",
			Usage: "seccomp-notify session registration socket location",
		},
		cli.StringFlag{
			Name:  "data-dir",
			Value: "/var/lib/riftfs",
			Usage: "content store and manifest database location",
		},
		cli.StringSliceFlag{
			Name:  "prefix",
			Usage: "virtual path prefix to claim (repeatable)",
		},
		cli.BoolFlag{
			Name:  "close-on-session-exit",
			Usage: "drop notify fds when the registering process exits (kernels without unused-notification support)",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "log file path, or empty for stdout",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "log categories to include (debug, info, warning, error, fatal)",
		},
		cli.StringFlag{
			Name:  "profile",
			Value: "",
			Usage: "enable profiling (cpu or mem)",
		},
	}

	// show-version specialization.
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("riftfs\n"+
			"\tversion: \t%s\n"+
			"\tcommit: \t%s\n"+
			"\tbuilt at: \t%s\n",
			c.App.Version, commitId, builtAt)
	}

	// Define 'debug' and 'log' settings.
	app.Before = func(ctx *cli.Context) error {

		if path := ctx.GlobalString("log"); path != "" {
			rotated := &lumberjack.Logger{
				Filename:   path,
				MaxSize:    50, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			}
			logrus.SetOutput(rotated)
			log.SetOutput(rotated)
		}

		logrus.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
		})

		if logLevel := ctx.GlobalString("log-level"); logLevel != "" {
			switch logLevel {
			case "debug":
				logrus.SetLevel(logrus.DebugLevel)
			case "info":
				logrus.SetLevel(logrus.InfoLevel)
			case "warning":
				logrus.SetLevel(logrus.WarnLevel)
			case "error":
				logrus.SetLevel(logrus.ErrorLevel)
			case "fatal":
				logrus.SetLevel(logrus.FatalLevel)
			default:
				logrus.Fatalf(
					"log-level option '%v' not recognized. Exiting ...",
					logLevel,
				)
			}
		} else {
			logrus.SetLevel(logrus.InfoLevel)
		}

		return nil
	}

	// riftfs main-loop execution.
	app.Action = func(ctx *cli.Context) error {

		switch ctx.GlobalString("profile") {
		case "cpu":
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		case "mem":
			defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
		case "":
		default:
			logrus.Fatal("profile option must be 'cpu' or 'mem'. Exiting ...")
		}

		prefixes := ctx.GlobalStringSlice("prefix")
		if len(prefixes) == 0 {
			prefixes = []string{"/virt"}
		}

		// Initialize riftfs' services. The phase monitor gates every
		// intercepted call; it stays hazardous until the wiring below is
		// complete.

		var phaseMonitor = boot.NewPhaseMonitor()
		phaseMonitor.Advance(domain.BootstrapUnsafe)

		var errnoBridge = errstate.NewBridge()

		var rawBackend = rawsys.NewBackend(errnoBridge)

		var ioService = sysio.NewIOService(domain.IOOsFileService)

		var processService = process.NewProcessService()
		processService.Setup(ioService)

		var sessionStateService = state.NewSessionStateService()

		var vfsService = vfs.NewService(
			phaseMonitor,
			errnoBridge,
			rawBackend,
			ioService,
			prefixes,
			ctx.GlobalString("data-dir"),
		)

		var ipcService = ipc.NewIpcService(ctx.GlobalString("ctl-sock"), phaseMonitor)
		if err := ipcService.Setup(vfsService, sessionStateService); err != nil {
			logrus.Fatalf("IpcService initialization error (%v). Exiting ...", err)
		}
		if err := ipcService.Init(); err != nil {
			logrus.Fatalf("IpcService initialization error (%v). Exiting ...", err)
		}

		// The interception machinery is wired; notifications arriving from
		// here on are answered (with pass-through until the VFS is Ready).
		phaseMonitor.Advance(domain.RuntimeReady)

		var interceptService = intercept.NewSyscallInterceptService()
		interceptService.Setup(
			phaseMonitor,
			vfsService,
			processService,
			sessionStateService,
			errnoBridge,
			ctx.GlobalString("seccomp-sock"),
			ctx.GlobalBool("close-on-session-exit"),
		)

		// VFS state construction runs last: its own filesystem I/O is
		// already observable through the re-entrant marker. Advances the
		// phase to Ready.
		if err := vfsService.Setup(); err != nil {
			logrus.Fatalf("vfs service initialization error (%v). Exiting ...", err)
		}

		sd.SdNotify(false, sd.SdNotifyReady)

		var exitChan = make(chan os.Signal, 1)
		signal.Notify(
			exitChan,
			syscall.SIGHUP,
			syscall.SIGINT,
			syscall.SIGTERM,
			syscall.SIGQUIT)
		exitHandler(exitChan, vfsService, ipcService)

		return nil
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Panic(err)
	}
}
