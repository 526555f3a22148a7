// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/cashdesk/internal/config"
	"github.com/jeranaias/cashdesk/internal/session"
	"github.com/jeranaias/cashdesk/internal/store"
)

// errOffline is returned when login is attempted without connectivity.
var errOffline = errors.New(session.NoNetworkMessage)

// statusCheckTimeout bounds the status command's connectivity check.
const statusCheckTimeout = 5 * time.Second

// =============================================================================
// LOGIN
// =============================================================================

// HandleLogin prompts for credentials and stores the session.
func HandleLogin(env *Env, args Args) error {
	rt, err := env.NewRuntime(RuntimeOptions{})
	if err != nil {
		return wrap("login", "start", err)
	}
	defer rt.Close()

	ctx := context.Background()
	if !rt.Probe.Refresh(ctx) {
		return wrap("login", "network check", errOffline)
	}

	user := args.Username
	if user == "" {
		if user, err = env.Prompt.Line("Username: "); err != nil {
			return wrap("login", "read username", err)
		}
	}
	pass, err := env.Prompt.Password("Password: ")
	if err != nil {
		return wrap("login", "read password", err)
	}

	out, err := rt.Login.Run(ctx, user, pass)
	if err != nil {
		if !args.JSON {
			fmt.Fprintf(env.Err, "Login Failed: %s\n", session.LoginErrorMessage(err))
		}
		return wrap("login", "authenticate", err)
	}

	data := LoginData{UserName: out.Record.UserName}
	if out.VersionWarning != nil {
		data.VersionWarning = out.VersionWarning.Error()
	}
	if args.JSON {
		return NewJSONResponse("login", data).Write(env.Out)
	}
	if data.VersionWarning != "" {
		fmt.Fprintf(env.Err, "Version check failed: %s\n", data.VersionWarning)
	}
	fmt.Fprintf(env.Out, "Logged in as %s\n", data.UserName)
	return nil
}

// =============================================================================
// LOGOUT
// =============================================================================

// HandleLogout runs the logout operation once. --local skips the server.
func HandleLogout(env *Env, args Args) error {
	var notified []string
	rt, err := env.NewRuntime(RuntimeOptions{
		Notifier: session.NotifierFunc(func(msg string) { notified = append(notified, msg) }),
	})
	if err != nil {
		return wrap("logout", "start", err)
	}
	defer rt.Close()

	ctx := context.Background()
	_, recErr := store.LoadRecord(ctx, rt.Store)
	hadSession := recErr == nil

	var opts []session.LogoutOption
	opts = append(opts, session.WithReason("cli"))
	if args.Local {
		opts = append(opts, session.LocalOnly())
	}
	out := rt.Coordinator.LogOut(ctx, opts...)

	data := LogoutData{
		AttemptID:  out.AttemptID,
		Result:     out.Result.String(),
		LocalOnly:  out.LocalOnly,
		HadSession: hadSession,
		DurationMS: out.Duration.Milliseconds(),
	}
	if out.RemoteErr != nil {
		data.RemoteErr = out.RemoteErr.Error()
	}
	if out.StoreErr != nil {
		data.StoreErr = out.StoreErr.Error()
	}

	if out.Result != session.Completed {
		err := out.Err
		if err == nil {
			err = errors.New(session.FailedMessage)
		}
		for _, msg := range notified {
			fmt.Fprintln(env.Err, msg)
		}
		return wrap("logout", out.Result.String(), err)
	}

	if args.JSON {
		return NewJSONResponse("logout", data).Write(env.Out)
	}
	switch {
	case !hadSession:
		fmt.Fprintln(env.Out, "No active session; local data cleared.")
	case out.RemoteErr != nil:
		fmt.Fprintf(env.Out, "Logged out locally (server not reached: %v)\n", out.RemoteErr)
	default:
		fmt.Fprintln(env.Out, "Logged out.")
	}
	return nil
}

// =============================================================================
// STATUS
// =============================================================================

// HandleStatus reports the stored session, one connectivity check and the
// guard settings.
func HandleStatus(env *Env, args Args) error {
	cfg := env.Config
	data := StatusData{
		Config: StatusConfigInfo{
			BaseURL:           cfg.API.BaseURL,
			InactivityTimeout: cfg.Session.InactivityTimeout.String(),
			OfflineGrace:      cfg.Session.OfflineGrace.String(),
			ProbeInterval:     cfg.Network.ProbeInterval.String(),
		},
	}

	path, err := cfg.StorePath()
	if err != nil {
		return wrap("status", "store path", err)
	}
	data.Session.StorePath = path

	st, encrypted, err := OpenStore(cfg)
	if err != nil {
		return wrap("status", "open store", err)
	}
	defer st.Close()
	data.Session.Encrypted = encrypted

	ctx := context.Background()
	rec, err := store.LoadRecord(ctx, st)
	switch {
	case err == nil:
		data.Session.LoggedIn = true
		data.Session.UserName = rec.UserName
		data.Session.HasCookie = rec.Cookie != ""
	case !errors.Is(err, store.ErrNoSession):
		return wrap("status", "read session", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, statusCheckTimeout)
	defer cancel()
	ns, err := env.checker().Check(checkCtx)
	data.Network.Connected = ns.Connected
	data.Network.InternetReachable = ns.InternetReachable
	if err != nil {
		data.Network.Error = err.Error()
	}

	if args.JSON {
		return NewJSONResponse("status", data).Write(env.Out)
	}

	w := env.Out
	fmt.Fprintln(w, "Session")
	if data.Session.LoggedIn {
		fmt.Fprintf(w, "  User:        %s\n", data.Session.UserName)
		fmt.Fprintf(w, "  Cookie:      %s\n", yesNo(data.Session.HasCookie))
	} else {
		fmt.Fprintln(w, "  Not logged in")
	}
	fmt.Fprintf(w, "  Store:       %s\n", data.Session.StorePath)
	fmt.Fprintf(w, "  Encrypted:   %s\n", yesNo(data.Session.Encrypted))

	fmt.Fprintln(w, "Network")
	fmt.Fprintf(w, "  Connected:   %s\n", yesNo(data.Network.Connected))
	fmt.Fprintf(w, "  Reachable:   %s\n", yesNo(data.Network.InternetReachable))
	if data.Network.Error != "" {
		fmt.Fprintf(w, "  Error:       %s\n", data.Network.Error)
	}

	fmt.Fprintln(w, "Guards")
	fmt.Fprintf(w, "  API:         %s\n", data.Config.BaseURL)
	fmt.Fprintf(w, "  Inactivity:  %s\n", data.Config.InactivityTimeout)
	fmt.Fprintf(w, "  Offline:     %s\n", data.Config.OfflineGrace)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// =============================================================================
// CONFIG
// =============================================================================

// HandleConfig implements config show, path and init.
func HandleConfig(env *Env, args Args) error {
	path := args.ConfigPath
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return wrap("config", args.Subcommand, err)
		}
	}

	switch args.Subcommand {
	case "path":
		_, statErr := os.Stat(path)
		data := ConfigPathData{Path: path, Exists: statErr == nil}
		if args.JSON {
			return NewJSONResponse("config", data).Write(env.Out)
		}
		fmt.Fprintln(env.Out, path)
		return nil

	case "init":
		if _, err := os.Stat(path); err == nil && !args.Force {
			return wrap("config", "init", &UsageError{Msg: fmt.Sprintf("%s already exists (use --force to overwrite)", path)})
		}
		if err := config.SaveTOML(config.Default(), path); err != nil {
			return wrap("config", "init", err)
		}
		if args.JSON {
			return NewJSONResponse("config", ConfigPathData{Path: path, Exists: true}).Write(env.Out)
		}
		fmt.Fprintf(env.Out, "Wrote default configuration to %s\n", path)
		return nil

	default:
		if args.JSON {
			return NewJSONResponse("config", env.Config.Redacted()).Write(env.Out)
		}
		fmt.Fprint(env.Out, env.Config.String())
		return nil
	}
}
