package daemon

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ankittk/taskzone/internal/config"
)

// childEnv marks a process started by StartBackground from these tests; the
// re-executed test binary exits at once instead of running the suite again.
const childEnv = "TASKZONE_DAEMON_TEST_CHILD"

func TestMain(m *testing.M) {
	if os.Getenv(childEnv) == "1" {
		os.Exit(0)
	}
	os.Exit(m.Run())
}

type closeRecorder struct{ closed int }

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestServe_closesStoreWhenServeFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	_ = ln.Close()

	st := &closeRecorder{}
	err = serve(context.Background(), &http.Server{}, ln, st, quietLogger())
	if err == nil {
		t.Fatal("serve on closed listener: expected error")
	}
	if st.closed != 1 {
		t.Fatalf("store closed %d times, want 1", st.closed)
	}
}

func TestServe_shutdownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := &closeRecorder{}
	srv := &http.Server{}
	srv.RegisterOnShutdown(func() { _ = st.Close() })
	if err := serve(ctx, srv, ln, st, quietLogger()); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestStartBackground_releasesLogFile(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("inspects /proc/self/fd")
	}
	t.Setenv(childEnv, "1")
	home := t.TempDir()
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	if _, err := StartBackground(context.Background(), StartOptions{Home: home, Config: cfg}); err != nil {
		t.Fatalf("StartBackground: %v", err)
	}
	logFile := filepath.Join(protectedDir(home), "server.log")
	if _, err := os.Stat(logFile); err != nil {
		t.Fatalf("server.log: %v", err)
	}
	fds, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skipf("read /proc/self/fd: %v", err)
	}
	for _, fd := range fds {
		target, err := os.Readlink(filepath.Join("/proc/self/fd", fd.Name()))
		if err == nil && target == logFile {
			t.Fatalf("parent still holds %s on fd %s", logFile, fd.Name())
		}
	}
}
