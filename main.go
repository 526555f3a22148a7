// cashdesk - session-guarded terminal front-end for the cash API.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/jeranaias/cashdesk/internal/cli"
	"github.com/jeranaias/cashdesk/internal/config"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args, err := cli.Parse()
	if err != nil {
		cli.DisplayError(os.Stdout, os.Stderr, cmd.String(), err, args.JSON)
		return cli.GetExitCode(err)
	}

	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdVersion:
		env := &cli.Env{Out: os.Stdout, Err: os.Stderr}
		return exit(cmd, args, cli.HandleVersion(env, args))
	}

	env, cleanup, err := cli.Setup(args)
	defer cleanup()
	if err != nil {
		// A broken config file must not block locating or replacing it.
		if cmd == cli.CmdConfig && args.Subcommand != "show" {
			env := &cli.Env{Config: config.Default(), Out: os.Stdout, Err: os.Stderr}
			return exit(cmd, args, cli.HandleConfig(env, args))
		}
		fmt.Fprintf(os.Stderr, "cashdesk: %v\n", err)
		return cli.GetExitCode(err)
	}

	// Route to appropriate handler
	switch cmd {
	case cli.CmdTUI:
		err = cli.RunTUI(env, args)
	case cli.CmdLogin:
		err = cli.HandleLogin(env, args)
	case cli.CmdLogout:
		err = cli.HandleLogout(env, args)
	case cli.CmdStatus:
		err = cli.HandleStatus(env, args)
	case cli.CmdConfig:
		err = cli.HandleConfig(env, args)
	}
	return exit(cmd, args, err)
}

func exit(cmd cli.Command, args cli.Args, err error) int {
	if err != nil {
		cli.DisplayError(os.Stdout, os.Stderr, cmd.String(), err, args.JSON)
	}
	return cli.GetExitCode(err)
}
