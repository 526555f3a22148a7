// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdStatus
	CmdConfig
	CmdVersion
	CmdHelp
)

func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdLogin:
		return "login"
	case CmdLogout:
		return "logout"
	case CmdStatus:
		return "status"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON       bool
	Verbose    bool
	ConfigPath string

	// Command-specific
	Subcommand string
	Local      bool   // logout --local
	Username   string // login --user
	Force      bool   // config init --force
}

const usageText = `cashdesk - session-guarded terminal front-end for the cash API

Usage:
  cashdesk                       Start the TUI (default)
  cashdesk login [--user NAME]   Log in from the terminal
  cashdesk logout [--local]      End the session (--local skips the server)
  cashdesk status, s [--json]    Show session and network status
  cashdesk config [show|path|init [--force]]
                                 Show, locate or create the config file
  cashdesk version [--json]      Show version information
  cashdesk help                  Show this help

Global flags:
  --config PATH                  Use a specific config file
  --json                         Print a JSON envelope on stdout
  -v, --verbose                  Debug logging

TUI keys:
  Login   tab switch field, enter submit, ctrl+r show password,
          ctrl+n retry network
  Home    l logout (asks y/n), r refresh network, q quit
  Any     ctrl+c quit

Environment:
  CASHDESK_API_BASE_URL          API root
  CASHDESK_INACTIVITY_TIMEOUT    Background logout delay (e.g. 30s)
  CASHDESK_OFFLINE_GRACE         Offline logout grace (e.g. 3s)
  CASHDESK_STORE_PATH            Session store file
  CASHDESK_STORE_KEY             Encrypts session values at rest
  CASHDESK_LOG_LEVEL             debug, info, warn, error

Files:
  ~/.cashdesk/config.toml        Configuration
  ~/.cashdesk/session.db         Session store
  ~/.cashdesk/cashdesk.log       Log file
`

// boolFlags never take a value.
var boolFlags = []string{"json", "verbose", "v", "local", "force", "help", "h", "version"}

// UsageError reports invalid command line usage.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// VersionInfo is the version command's data.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// CurrentVersion returns the build's version information.
func CurrentVersion() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// HandleVersion prints version information.
func HandleVersion(env *Env, args Args) error {
	info := CurrentVersion()
	if args.JSON {
		return NewJSONResponse("version", info).Write(env.Out)
	}
	fmt.Fprintf(env.Out, "cashdesk %s\n", info.Version)
	fmt.Fprintf(env.Out, "  Commit:   %s\n", info.GitCommit)
	fmt.Fprintf(env.Out, "  Built:    %s\n", info.BuildDate)
	fmt.Fprintf(env.Out, "  Go:       %s\n", info.GoVersion)
	fmt.Fprintf(env.Out, "  Platform: %s\n", info.Platform)
	return nil
}

// Parse parses os.Args.
func Parse() (Command, Args, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv (without the program name).
func ParseArgs(argv []string) (Command, Args, error) {
	p := NewArgParser(argv, boolFlags...)

	args := Args{
		JSON:       p.BoolFlag("json"),
		Verbose:    p.BoolFlag("verbose", "v"),
		ConfigPath: p.Flag("config"),
	}
	if p.BoolFlag("help", "h") {
		return CmdHelp, args, nil
	}
	if p.BoolFlag("version") && p.Subcommand() == "" {
		return CmdVersion, args, nil
	}

	known := []string{"json", "verbose", "v", "config", "help", "h"}
	var cmd Command
	switch name := p.Subcommand(); name {
	case "", "tui":
		cmd = CmdTUI
	case "login":
		cmd = CmdLogin
		args.Username = p.Flag("user", "u")
		known = append(known, "user", "u")
	case "logout":
		cmd = CmdLogout
		args.Local = p.BoolFlag("local")
		known = append(known, "local")
	case "status", "s":
		cmd = CmdStatus
	case "config":
		cmd = CmdConfig
		args.Subcommand = p.Positional(1)
		if args.Subcommand == "" {
			args.Subcommand = "show"
		}
		switch args.Subcommand {
		case "show", "path", "init":
		default:
			return CmdHelp, args, &UsageError{Msg: fmt.Sprintf("unknown config subcommand %q (want show, path or init)", args.Subcommand)}
		}
		args.Force = p.BoolFlag("force")
		known = append(known, "force")
	case "version":
		cmd = CmdVersion
	case "help":
		cmd = CmdHelp
	default:
		return CmdHelp, args, &UsageError{Msg: fmt.Sprintf("unknown command %q; run 'cashdesk help'", name)}
	}

	if unknown := p.Unknown(known...); len(unknown) > 0 {
		sort.Strings(unknown)
		return cmd, args, &UsageError{Msg: fmt.Sprintf("unknown flag(s) for %s: --%s", cmd, strings.Join(unknown, ", --"))}
	}
	return cmd, args, nil
}
