package daemon

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ankittk/taskzone/internal/config"
	"github.com/ankittk/taskzone/internal/notify"
	"github.com/ankittk/taskzone/pkg/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartForeground_emptyHome(t *testing.T) {
	err := StartForeground(context.Background(), StartOptions{Home: "", Config: config.Default()})
	if err == nil {
		t.Fatal("StartForeground empty home: expected error")
	}
}

func TestStartForeground_emptyAddr(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = ""
	err := StartForeground(context.Background(), StartOptions{Home: t.TempDir(), Config: cfg})
	if err == nil {
		t.Fatal("StartForeground empty addr: expected error")
	}
}

func TestStatus_notRunning(t *testing.T) {
	st, err := Status(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Running {
		t.Errorf("Status on empty home: %+v", st)
	}
}

func TestStatus_stalePidFileRemoved(t *testing.T) {
	home := t.TempDir()
	if err := os.MkdirAll(protectedDir(home), 0o755); err != nil {
		t.Fatal(err)
	}
	// Garbage pid is treated as not running.
	if err := os.WriteFile(pidPath(home), []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	st, _ := Status(context.Background(), home)
	if st.Running {
		t.Errorf("garbage pid: %+v", st)
	}
}

func TestStop_notRunning(t *testing.T) {
	stopped, err := Stop(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stopped {
		t.Error("Stop on idle home reported a running server")
	}
}

func TestBaseURL(t *testing.T) {
	tests := []struct{ addr, want string }{
		{"127.0.0.1:3550", "http://127.0.0.1:3550"},
		{"0.0.0.0:8080", "http://127.0.0.1:8080"},
		{":9000", "http://127.0.0.1:9000"},
		{"[::]:9000", "http://127.0.0.1:9000"},
		{"example.com:80", "http://example.com:80"},
	}
	for _, tt := range tests {
		if got := BaseURL(tt.addr); got != tt.want {
			t.Errorf("BaseURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
	if DefaultBaseURL != "http://127.0.0.1:3550" {
		t.Errorf("DefaultBaseURL = %q", DefaultBaseURL)
	}
}

func TestBuildNotifiers(t *testing.T) {
	if names := buildNotifiers("", 0, quietLogger()).Names(); len(names) != 0 {
		t.Errorf("no URL: got notifiers %v", names)
	}
	reg := buildNotifiers("http://127.0.0.1:1/hook", time.Second, quietLogger())
	n := reg.Get("webhook")
	if n == nil {
		t.Fatal("webhook notifier not registered")
	}
	if _, ok := n.(*notify.Breaker); !ok {
		t.Errorf("webhook notifier is %T, want *notify.Breaker", n)
	}
}

// TestStartForeground_servesAndShutsDown runs the server on an ephemeral port against the
// SQLite store, checks pid/addr bookkeeping, and stops it via context cancellation.
func TestStartForeground_servesAndShutsDown(t *testing.T) {
	home := t.TempDir()
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.Metrics = false

	hooked := make(chan struct{}, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case hooked <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()
	cfg.Webhook.URL = hook.URL

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- StartForeground(ctx, StartOptions{Home: home, Config: cfg, Seed: true, Logger: quietLogger()})
	}()

	var st StatusInfo
	for i := 0; i < 100; i++ {
		st, _ = Status(context.Background(), home)
		if st.Running && st.Addr != "unknown" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !st.Running {
		cancel()
		t.Fatalf("server did not report running: %v", <-done)
	}
	if st.PID != os.Getpid() {
		t.Errorf("pid = %d, want %d", st.PID, os.Getpid())
	}

	base := BaseURL(st.Addr)
	resp, err := http.Get(base + "/health")
	if err != nil {
		cancel()
		t.Fatalf("health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	// A second server on the same home is refused by the lock.
	err = StartForeground(context.Background(), StartOptions{Home: home, Config: cfg, Logger: quietLogger()})
	if err == nil {
		t.Error("second StartForeground on same home: expected lock error")
	} else if want := "pid " + strconv.Itoa(os.Getpid()); !strings.Contains(err.Error(), want) {
		t.Errorf("lock error %q does not name %s", err, want)
	}

	activateSeededTask(t, base)
	select {
	case <-hooked:
	case <-time.After(3 * time.Second):
		t.Error("webhook not called after activation")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("StartForeground returned %v", err)
		}
	case <-time.After(20 * time.Second):
		t.Fatal("server did not shut down")
	}
	if _, err := os.Stat(pidPath(home)); !os.IsNotExist(err) {
		t.Errorf("pid file left behind: %v", err)
	}
	if _, err := os.Stat(filepath.Join(protectedDir(home), "db.sqlite")); err != nil {
		t.Errorf("sqlite db missing: %v", err)
	}
}

// activateSeededTask triages the first inbox task to LAB and moves it to ACTIVE for a LAB employee.
func activateSeededTask(t *testing.T, base string) {
	t.Helper()
	var inbox []models.Task
	getJSON(t, base+"/tasks?unplaced=1", &inbox)
	if len(inbox) == 0 {
		t.Fatal("seeded inbox is empty")
	}
	var emps []models.Employee
	getJSON(t, base+"/employees", &emps)
	var labID string
	for _, e := range emps {
		if e.Department == models.DeptLab {
			labID = e.ID
			break
		}
	}
	if labID == "" {
		t.Fatal("no LAB employee in seed data")
	}
	postJSON(t, base+"/tasks/"+inbox[0].ID+"/department", `{"department":"LAB"}`)
	postJSON(t, base+"/tasks/"+inbox[0].ID+"/zone", `{"zone":"ACTIVE","employee_id":`+strconv.Quote(labID)+`}`)
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func postJSON(t *testing.T, url, body string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST %s: status %d: %s", url, resp.StatusCode, b)
	}
}
