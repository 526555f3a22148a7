// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cashdesk/internal/api"
	"github.com/jeranaias/cashdesk/internal/config"
	"github.com/jeranaias/cashdesk/internal/netstatus"
	"github.com/jeranaias/cashdesk/internal/session"
	"github.com/jeranaias/cashdesk/internal/store"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		cmd  Command
		want Args
	}{
		{"default tui", nil, CmdTUI, Args{}},
		{"json before command", []string{"--json", "status"}, CmdStatus, Args{JSON: true}},
		{"status alias", []string{"s"}, CmdStatus, Args{}},
		{"logout local", []string{"logout", "--local"}, CmdLogout, Args{Local: true}},
		{"login user", []string{"login", "-u", "teller01"}, CmdLogin, Args{Username: "teller01"}},
		{"login user equals", []string{"login", "--user=teller01"}, CmdLogin, Args{Username: "teller01"}},
		{"config default show", []string{"config"}, CmdConfig, Args{Subcommand: "show"}},
		{"config init force", []string{"config", "init", "--force"}, CmdConfig, Args{Subcommand: "init", Force: true}},
		{"config path", []string{"--config", "/tmp/c.toml", "config", "path"}, CmdConfig, Args{Subcommand: "path", ConfigPath: "/tmp/c.toml"}},
		{"version flag", []string{"--version"}, CmdVersion, Args{}},
		{"verbose", []string{"-v"}, CmdTUI, Args{Verbose: true}},
		{"help flag", []string{"status", "--help"}, CmdHelp, Args{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := ParseArgs(tt.argv)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.want, args)
		})
	}
}

func TestParseArgs_Errors(t *testing.T) {
	for _, argv := range [][]string{
		{"frobnicate"},
		{"config", "delete"},
		{"logout", "--remote"},
	} {
		_, _, err := ParseArgs(argv)
		var ue *UsageError
		require.ErrorAs(t, err, &ue, "%v", argv)
		assert.Equal(t, ExitUsageError, GetExitCode(err))
	}
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"show", "--lines", "50", "--since=2024-01-01", "--json", "extra", "--", "-x"}, "json")
	assert.Equal(t, "show", p.Subcommand())
	assert.Equal(t, "50", p.Flag("lines"))
	assert.Equal(t, "2024-01-01", p.Flag("nope", "since"))
	assert.True(t, p.BoolFlag("json"))
	assert.Equal(t, []string{"extra", "-x"}, p.PositionalFrom(1))
	assert.Equal(t, "", p.Positional(9))
	assert.ElementsMatch(t, []string{"lines", "since"}, p.Unknown("json"))
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "logout", CmdLogout.String())
	assert.Equal(t, "unknown", Command(99).String())
}

// =============================================================================
// EXIT CODES AND OUTPUT
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"credentials", session.ValidateCredentials("", ""), ExitUsageError},
		{"config", wrap("x", "y", config.ValidateErrors{{Field: "api.base_url", Message: "bad"}}), ExitConfigError},
		{"update", &session.UpdateRequiredError{Latest: "2", Current: "1"}, ExitUpdateRequired},
		{"no session", wrap("x", "y", store.ErrNoSession), ExitNotFoundError},
		{"invalid credentials", api.ErrInvalidCredentials, ExitAuthError},
		{"timeout", api.ErrTimeout, ExitTimeoutError},
		{"transport", api.ErrTransport, ExitNetworkError},
		{"offline", wrap("login", "network check", errOffline), ExitNetworkError},
		{"unauthorized", &api.StatusError{Code: http.StatusUnauthorized}, ExitAuthError},
		{"server error", &api.StatusError{Code: http.StatusInternalServerError}, ExitGeneralError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	var out, errOut bytes.Buffer
	DisplayError(&out, &errOut, "status", errors.New("boom"), false)
	assert.Equal(t, "Error: boom\n", errOut.String())
	assert.Empty(t, out.String())

	errOut.Reset()
	DisplayError(&out, &errOut, "status", errors.New("boom"), true)
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "boom", *resp.Error)
	assert.Equal(t, "status", resp.Command)
}

// =============================================================================
// TEST ENVIRONMENT
// =============================================================================

type scriptedPrompter struct {
	line, password string
	err            error
}

func (p scriptedPrompter) Line(string) (string, error)     { return p.line, p.err }
func (p scriptedPrompter) Password(string) (string, error) { return p.password, p.err }

type testEnv struct {
	*Env
	out, errOut *bytes.Buffer
	online      atomic.Bool
}

func newTestEnv(t *testing.T, baseURL string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.API.BaseURL = baseURL
	cfg.API.LogoutTimeout = config.Dur(500 * time.Millisecond)
	cfg.Store.Path = filepath.Join(dir, "session.db")
	cfg.Log.Path = filepath.Join(dir, "cashdesk.log")

	te := &testEnv{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	te.online.Store(true)
	te.Env = &Env{
		Config: cfg,
		Out:    te.out,
		Err:    te.errOut,
		Prompt: scriptedPrompter{line: "teller01", password: "secret1"},
		newChecker: func(*config.Config) netstatus.Checker {
			return netstatus.CheckerFunc(func(ctx context.Context) (netstatus.Status, error) {
				up := te.online.Load()
				return netstatus.Status{Connected: up, InternetReachable: up}, nil
			})
		},
	}
	return te
}

func (te *testEnv) seed(t *testing.T) {
	t.Helper()
	st, _, err := OpenStore(te.Config)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, store.SaveRecord(context.Background(), st, store.SessionRecord{
		UserData: json.RawMessage(`{"user":[{"FullName":"ADA LOVELACE"}]}`),
		UserName: "ADA LOVELACE",
		Cookie:   "sid=xyz",
	}))
}

func (te *testEnv) loggedIn(t *testing.T) bool {
	t.Helper()
	st, _, err := OpenStore(te.Config)
	require.NoError(t, err)
	defer st.Close()
	_, err = store.LoadRecord(context.Background(), st)
	return err == nil
}

// fakeAPI serves the three auth endpoints.
type fakeAPI struct {
	version     string
	logouts     atomic.Int32
	lastCookie  atomic.Value
	logoutDelay time.Duration
}

func (f *fakeAPI) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case api.PathVersion:
			io.WriteString(w, `{"version":"`+f.version+`"}`)
		case api.PathLogin:
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "new", Path: "/"})
			io.WriteString(w, `{"user":[{"FullName":"ADA LOVELACE"}]}`)
		case api.PathLogout:
			f.logouts.Add(1)
			f.lastCookie.Store(r.Header.Get("Cookie"))
			time.Sleep(f.logoutDelay)
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestHandleLogin_StoresSession(t *testing.T) {
	fa := &fakeAPI{version: config.DefaultAppVersion}
	te := newTestEnv(t, fa.start(t).URL)

	require.NoError(t, HandleLogin(te.Env, Args{}))
	assert.Contains(t, te.out.String(), "Logged in as ADA LOVELACE")
	assert.True(t, te.loggedIn(t))
}

func TestHandleLogin_UpdateRequired(t *testing.T) {
	fa := &fakeAPI{version: "9.9.9"}
	te := newTestEnv(t, fa.start(t).URL)

	err := HandleLogin(te.Env, Args{})
	assert.Equal(t, ExitUpdateRequired, GetExitCode(err))
	assert.Contains(t, te.errOut.String(), "Please update to version 9.9.9")
	assert.False(t, te.loggedIn(t))
}

func TestHandleLogin_Offline(t *testing.T) {
	te := newTestEnv(t, "http://127.0.0.1:1")
	te.online.Store(false)

	err := HandleLogin(te.Env, Args{})
	assert.Equal(t, ExitNetworkError, GetExitCode(err))
}

func TestHandleLogin_JSON(t *testing.T) {
	fa := &fakeAPI{version: config.DefaultAppVersion}
	te := newTestEnv(t, fa.start(t).URL)

	require.NoError(t, HandleLogin(te.Env, Args{JSON: true, Username: "teller01"}))
	var resp struct {
		Success bool      `json:"success"`
		Data    LoginData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ADA LOVELACE", resp.Data.UserName)
}

func TestHandleLogout_CallsServerWithStoredCookie(t *testing.T) {
	fa := &fakeAPI{}
	te := newTestEnv(t, fa.start(t).URL)
	te.seed(t)

	require.NoError(t, HandleLogout(te.Env, Args{}))
	assert.Equal(t, int32(1), fa.logouts.Load())
	assert.Equal(t, "sid=xyz", fa.lastCookie.Load())
	assert.Equal(t, "Logged out.\n", te.out.String())
	assert.False(t, te.loggedIn(t))
}

func TestHandleLogout_LocalSkipsServer(t *testing.T) {
	fa := &fakeAPI{}
	te := newTestEnv(t, fa.start(t).URL)
	te.seed(t)

	require.NoError(t, HandleLogout(te.Env, Args{Local: true, JSON: true}))
	assert.Zero(t, fa.logouts.Load())
	assert.False(t, te.loggedIn(t))

	var resp struct {
		Data LogoutData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.out.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Data.Result)
	assert.True(t, resp.Data.LocalOnly)
	assert.True(t, resp.Data.HadSession)
}

func TestHandleLogout_SlowServerStillClears(t *testing.T) {
	fa := &fakeAPI{logoutDelay: 2 * time.Second}
	te := newTestEnv(t, fa.start(t).URL)
	te.seed(t)

	start := time.Now()
	require.NoError(t, HandleLogout(te.Env, Args{}))
	assert.Less(t, time.Since(start), 1500*time.Millisecond)
	assert.Contains(t, te.out.String(), "Logged out locally")
	assert.False(t, te.loggedIn(t))
}

func TestHandleStatus(t *testing.T) {
	te := newTestEnv(t, "http://127.0.0.1:1")
	te.seed(t)

	require.NoError(t, HandleStatus(te.Env, Args{JSON: true}))
	var resp struct {
		Success bool       `json:"success"`
		Data    StatusData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Data.Session.LoggedIn)
	assert.Equal(t, "ADA LOVELACE", resp.Data.Session.UserName)
	assert.True(t, resp.Data.Session.HasCookie)
	assert.True(t, resp.Data.Network.InternetReachable)
	assert.Equal(t, "30s", resp.Data.Config.InactivityTimeout)
}

func TestHandleStatus_Text(t *testing.T) {
	te := newTestEnv(t, "http://127.0.0.1:1")
	te.online.Store(false)

	require.NoError(t, HandleStatus(te.Env, Args{}))
	assert.Contains(t, te.out.String(), "Not logged in")
	assert.Contains(t, te.out.String(), "Reachable:   no")
}

func TestHandleConfig(t *testing.T) {
	te := newTestEnv(t, "http://127.0.0.1:1")
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, HandleConfig(te.Env, Args{Subcommand: "init", ConfigPath: path}))
	_, err := os.Stat(path)
	require.NoError(t, err)

	err = HandleConfig(te.Env, Args{Subcommand: "init", ConfigPath: path})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	require.NoError(t, HandleConfig(te.Env, Args{Subcommand: "init", ConfigPath: path, Force: true}))

	te.out.Reset()
	require.NoError(t, HandleConfig(te.Env, Args{Subcommand: "path", ConfigPath: path}))
	assert.Equal(t, path+"\n", te.out.String())

	te.out.Reset()
	te.Config.Store.EncryptionKey = "hunter2"
	require.NoError(t, HandleConfig(te.Env, Args{Subcommand: "show", ConfigPath: path}))
	assert.Contains(t, te.out.String(), "base_url")
	assert.NotContains(t, te.out.String(), "hunter2")

	loaded, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultInactivityTimeout, loaded.Session.InactivityTimeout.Duration)
}

func TestHandleVersion(t *testing.T) {
	te := newTestEnv(t, "http://127.0.0.1:1")
	require.NoError(t, HandleVersion(te.Env, Args{}))
	assert.Contains(t, te.out.String(), "cashdesk "+Version)

	te.out.Reset()
	require.NoError(t, HandleVersion(te.Env, Args{JSON: true}))
	var resp struct {
		Data VersionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.out.Bytes(), &resp))
	assert.Equal(t, Version, resp.Data.Version)
}

// =============================================================================
// RUNTIME
// =============================================================================

func TestRuntime_ApplyConfigUpdatesGuards(t *testing.T) {
	te := newTestEnv(t, "http://127.0.0.1:1")
	rt, err := te.NewRuntime(RuntimeOptions{Guards: true})
	require.NoError(t, err)
	defer rt.Close()

	cfg := te.Config.Clone()
	cfg.Session.InactivityTimeout = config.Dur(time.Minute)
	cfg.Session.OfflineGrace = config.Dur(10 * time.Second)
	rt.ApplyConfig(cfg)

	assert.Equal(t, time.Minute, rt.Inactivity.Timeout())
	assert.Equal(t, 10*time.Second, rt.Connectivity.Grace())
}

func TestRuntime_SustainedOfflineLogsOutLocally(t *testing.T) {
	fa := &fakeAPI{}
	te := newTestEnv(t, fa.start(t).URL)
	te.Config.Session.OfflineGrace = config.Dur(50 * time.Millisecond)
	te.Config.Network.MonitorInterval = config.Dur(20 * time.Millisecond)
	te.seed(t)

	var navigated atomic.Int32
	rt, err := te.NewRuntime(RuntimeOptions{
		Navigator: session.NavigatorFunc(func() { navigated.Add(1) }),
		Guards:    true,
	})
	require.NoError(t, err)
	defer rt.Close()

	rt.Start(context.Background())
	te.online.Store(false)

	require.Eventually(t, func() bool { return navigated.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, fa.logouts.Load())
	assert.Empty(t, rt.Client.SessionCookie())
}

// Quitting while a logout waits on the server must still leave the store
// empty for the next launch.
func TestRuntime_CloseDuringLogoutClearsStore(t *testing.T) {
	fa := &fakeAPI{logoutDelay: 200 * time.Millisecond}
	te := newTestEnv(t, fa.start(t).URL)
	te.seed(t)

	rt, err := te.NewRuntime(RuntimeOptions{})
	require.NoError(t, err)

	done := make(chan session.Outcome, 1)
	go func() { done <- rt.Coordinator.LogOut(context.Background()) }()
	require.Eventually(t, func() bool { return fa.logouts.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, rt.Close())

	out := <-done
	assert.Equal(t, session.Completed, out.Result)
	assert.NoError(t, out.StoreErr)
	assert.False(t, te.loggedIn(t))
}

func TestRuntime_SealedStore(t *testing.T) {
	te := newTestEnv(t, "http://127.0.0.1:1")
	te.Config.Store.EncryptionKey = "correct horse"
	te.seed(t)

	rt, err := te.NewRuntime(RuntimeOptions{})
	require.NoError(t, err)
	defer rt.Close()
	assert.True(t, rt.Encrypted)
	assert.Equal(t, "sid=xyz", rt.Client.SessionCookie())
}

func TestSetup_BadConfigIsConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0600))

	_, cleanup, err := Setup(Args{ConfigPath: path})
	defer cleanup()
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}
