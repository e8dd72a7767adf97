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

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/riftfs/riftfs/ipc"
)

// riftctl inspects and edits a running riftfs daemon over its control
// socket.
func main() {

	app := cli.NewApp()
	app.Name = "riftctl"
	app.Usage = "riftfs control-plane client"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "ctl-sock",
			Value: "/run/riftfs/ctl.sock",
			Usage: "control-plane socket location",
		},
	}

	dial := func(ctx *cli.Context) (*ipc.Client, error) {
		return ipc.Dial(ctx.GlobalString("ctl-sock"))
	}

	app.Commands = []cli.Command{
		{
			Name:  "status",
			Usage: "Report daemon phase, session count and claimed prefixes",
			Action: func(ctx *cli.Context) error {
				c, err := dial(ctx)
				if err != nil {
					return err
				}
				defer c.Close()

				resp, err := c.Status()
				if err != nil {
					return err
				}
				fmt.Printf("phase:    %s\n", resp.Phase)
				fmt.Printf("sessions: %d\n", resp.Sessions)
				for _, p := range resp.Prefixes {
					fmt.Printf("prefix:   %s\n", p)
				}
				return nil
			},
		},
		{
			Name:      "get",
			Usage:     "Show one vnode entry",
			ArgsUsage: "<path>",
			Action: func(ctx *cli.Context) error {
				if ctx.NArg() != 1 {
					return cli.NewExitError("usage: riftctl get <path>", 1)
				}
				c, err := dial(ctx)
				if err != nil {
					return err
				}
				defer c.Close()

				entry, err := c.ManifestGet(ctx.Args().First())
				if err != nil {
					return err
				}
				fmt.Printf("path:  %s\nkind:  %d\nmode:  %04o\nsize:  %d\nhash:  %x\n",
					entry.Path, entry.Kind, entry.Mode, entry.Size, entry.ContentHash)
				return nil
			},
		},
		{
			Name:      "ls",
			Usage:     "List the entries of a virtual directory",
			ArgsUsage: "<path>",
			Action: func(ctx *cli.Context) error {
				if ctx.NArg() != 1 {
					return cli.NewExitError("usage: riftctl ls <path>", 1)
				}
				c, err := dial(ctx)
				if err != nil {
					return err
				}
				defer c.Close()

				entries, err := c.ManifestListDir(ctx.Args().First())
				if err != nil {
					return err
				}
				for _, e := range entries {
					marker := ""
					if e.IsDir() {
						marker = "/"
					}
					fmt.Printf("%04o %10d %s%s\n", e.Mode, e.Size, e.Path, marker)
				}
				return nil
			},
		},
		{
			Name:      "rm",
			Usage:     "Remove one vnode entry",
			ArgsUsage: "<path>",
			Action: func(ctx *cli.Context) error {
				if ctx.NArg() != 1 {
					return cli.NewExitError("usage: riftctl rm <path>", 1)
				}
				c, err := dial(ctx)
				if err != nil {
					return err
				}
				defer c.Close()

				return c.ManifestRemove(ctx.Args().First())
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "riftctl: %v\n", err)
		os.Exit(1)
	}
}
