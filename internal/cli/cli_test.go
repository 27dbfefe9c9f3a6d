package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/ankittk/taskzone/internal/config"
	"github.com/ankittk/taskzone/internal/httpapi"
	"github.com/ankittk/taskzone/internal/store/memory"
	"github.com/ankittk/taskzone/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_hasSubcommands(t *testing.T) {
	root := NewRootCmd("test")
	if root == nil {
		t.Fatal("NewRootCmd returned nil")
	}
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "start", "stop", "status", "migrate", "doctor", "board", "task", "employee", "project", "apikey", "nuke"} {
		if !names[want] {
			t.Errorf("expected subcommand %q", want)
		}
	}
}

func TestNewRootCmd_versionFlag(t *testing.T) {
	root := NewRootCmd("1.2.3")
	if root.Version != "1.2.3" {
		t.Errorf("Version: got %q", root.Version)
	}
}

func TestNewRootCmd_persistentFlags(t *testing.T) {
	root := NewRootCmd("")
	for _, name := range []string{"home", "env-file", "log-level", "log-format", "db-driver", "db-url", "server", "api-key"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected --%s persistent flag", name)
		}
	}
}

// run executes the CLI against home and returns stdout.
func run(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--home", home, "--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return out.String(), err
}

func mustRun(t *testing.T, home string, args ...string) string {
	t.Helper()
	out, err := run(t, home, args...)
	require.NoError(t, err, "taskzone %s", strings.Join(args, " "))
	return out
}

var idPattern = regexp.MustCompile(`\(([0-9a-f-]{36})\)|task ([0-9a-f-]{36})`)

func extractID(t *testing.T, out string) string {
	t.Helper()
	m := idPattern.FindStringSubmatch(out)
	require.NotNil(t, m, "no id in %q", out)
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

func TestApikeyGenerate(t *testing.T) {
	out := mustRun(t, t.TempDir(), "apikey", "generate")
	hexKey := regexp.MustCompile(`(?m)^  ([a-f0-9]{64})$`)
	assert.Regexp(t, hexKey, out)
	assert.Contains(t, out, "serve --require-api-key")
	assert.Contains(t, out, "--api-key <key>")
	assert.Contains(t, out, "X-API-Key")
}

func TestApikeyGenerate_save(t *testing.T) {
	t.Setenv("TASKZONE_API_KEY", "")
	home := t.TempDir()
	out := mustRun(t, home, "apikey", "generate", "--save")
	m := regexp.MustCompile(`(?m)^  ([a-f0-9]{64})$`).FindStringSubmatch(out)
	require.NotNil(t, m)
	assert.Contains(t, out, "api_key")

	cfg, err := config.Load(home)
	require.NoError(t, err)
	assert.Equal(t, m[1], cfg.APIKey)
}

func TestApikeyGenerate_writeEnv(t *testing.T) {
	home := t.TempDir()
	envFile := filepath.Join(home, ".env")
	out := mustRun(t, home, "apikey", "generate", "--write-env", envFile)
	assert.Contains(t, out, "--env-file "+envFile+" serve")

	data, err := os.ReadFile(envFile)
	require.NoError(t, err)
	assert.Regexp(t, `^TASKZONE_API_KEY=[a-f0-9]{64}\n$`, string(data))

	_, err = run(t, home, "apikey", "generate", "--save", "--write-env", envFile)
	assert.Error(t, err)
}

func TestStatus_notRunning(t *testing.T) {
	out := mustRun(t, t.TempDir(), "status")
	assert.Contains(t, out, "not running")
}

func TestMigrateAndDoctor(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	home := t.TempDir()
	out := mustRun(t, home, "migrate", "--seed")
	assert.Contains(t, out, "Schema up to date (sqlite)")
	assert.Contains(t, out, "config.yaml")

	out = mustRun(t, home, "migrate")
	assert.NotContains(t, out, "Wrote", "existing config is left alone")

	out = mustRun(t, home, "project", "list")
	assert.Contains(t, out, "Operations")

	out = mustRun(t, home, "doctor")
	assert.Contains(t, out, "store:  sqlite ok")
	assert.Contains(t, out, "server: not running")
}

// TestWorkflowLocal runs the triage, assign and activate flow against a SQLite home.
func TestWorkflowLocal(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	home := t.TempDir()

	projectID := extractID(t, mustRun(t, home, "project", "add", "--name", "ops"))
	aliceID := extractID(t, mustRun(t, home, "employee", "add", "--name", "alice", "--department", "lab"))
	carolID := extractID(t, mustRun(t, home, "employee", "add", "--name", "carol", "--department", "STUDIO"))
	taskID := extractID(t, mustRun(t, home, "task", "create", "--project", projectID, "--title", "calibrate", "--priority", "high"))
	otherID := extractID(t, mustRun(t, home, "task", "create", "--project", projectID, "--title", "restock"))

	out := mustRun(t, home, "task", "inbox")
	assert.Contains(t, out, taskID)
	assert.Contains(t, out, "[HIGH] calibrate")

	mustRun(t, home, "task", "triage", taskID, "--department", "LAB")
	mustRun(t, home, "task", "triage", otherID, "--department", "LAB")

	_, err := run(t, home, "task", "move", taskID, "--zone", "active")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only enter ACTIVE when assigned")

	_, err = run(t, home, "task", "assign", taskID, "--employee", carolID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same department")

	out = mustRun(t, home, "task", "move", taskID, "--zone", "ACTIVE", "--employee", aliceID)
	assert.Contains(t, out, "ACTIVE")
	assert.Contains(t, out, "@alice")

	_, err = run(t, home, "task", "move", otherID, "--zone", "ACTIVE", "--employee", aliceID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only one ACTIVE task")

	out = mustRun(t, home, "board", "--department", "lab", "--json")
	var board models.Board
	require.NoError(t, json.Unmarshal([]byte(out), &board))
	require.Len(t, board.Active, 1)
	assert.Equal(t, taskID, board.Active[0].ID)
	require.Len(t, board.Shelf, 1)
	assert.Equal(t, otherID, board.Shelf[0].ID)

	out = mustRun(t, home, "board", "--department", "LAB")
	assert.Contains(t, out, "ACTIVE (1)")
	assert.Contains(t, out, "SHELF (1)")

	out = mustRun(t, home, "task", "show", taskID)
	assert.Contains(t, out, "zone:       ACTIVE")

	out = mustRun(t, home, "employee", "set-department", carolID, "--department", "lab")
	assert.Contains(t, out, "carol is now in LAB")
	out = mustRun(t, home, "employee", "show", carolID)
	assert.Contains(t, out, "department: LAB")
}

func TestBoard_validation(t *testing.T) {
	home := t.TempDir()
	_, err := run(t, home, "board")
	assert.Error(t, err)
	_, err = run(t, home, "board", "--department", "MOON")
	assert.Error(t, err)
	_, err = run(t, home, "task", "move", "x", "--zone", "ROOF")
	assert.Error(t, err)
}

func TestMemoryDriverFlag(t *testing.T) {
	out := mustRun(t, t.TempDir(), "--db-driver", "memory", "project", "list")
	assert.Contains(t, out, "No projects.")
}

// TestWorkflowRemote drives the same commands through --server against an in-process API.
func TestWorkflowRemote(t *testing.T) {
	app, err := httpapi.NewApp(httpapi.ServerOptions{
		Store:  memory.New(),
		APIKey: "k",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	srv := httptest.NewServer(app.Server.Handler)
	defer srv.Close()

	home := t.TempDir()
	remote := []string{"--server", srv.URL, "--api-key", "k"}
	runRemote := func(args ...string) (string, error) {
		return run(t, home, append(remote, args...)...)
	}

	out, err := runRemote("project", "add", "--name", "remote")
	require.NoError(t, err)
	projectID := extractID(t, out)
	out, err = runRemote("employee", "add", "--name", "dave", "--department", "WORKSHOP")
	require.NoError(t, err)
	daveID := extractID(t, out)
	out, err = runRemote("task", "create", "--project", projectID, "--title", "weld frame")
	require.NoError(t, err)
	taskID := extractID(t, out)

	_, err = runRemote("task", "triage", taskID, "--department", "WORKSHOP")
	require.NoError(t, err)
	out, err = runRemote("task", "move", taskID, "--zone", "ACTIVE", "--employee", daveID)
	require.NoError(t, err)
	assert.Contains(t, out, "@dave")

	_, err = runRemote("task", "show", "nope")
	require.Error(t, err)

	_, err = run(t, home, "--server", srv.URL, "project", "list")
	require.Error(t, err, "missing API key should be rejected")
}
