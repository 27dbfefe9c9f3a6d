package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWithHome_HomeFrom(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	if _, ok := HomeFrom(ctx); ok {
		t.Fatal("expected no home in empty context")
	}
	ctx = WithHome(ctx, "/foo/bar")
	got, ok := HomeFrom(ctx)
	if !ok || got != "/foo/bar" {
		t.Fatalf("HomeFrom: got %q, ok=%v; want /foo/bar, true", got, ok)
	}
}

func TestMustHomeFrom(t *testing.T) {
	t.Parallel()
	ctx := WithHome(context.Background(), "/taskzone")
	if got := MustHomeFrom(ctx); got != "/taskzone" {
		t.Fatalf("MustHomeFrom: got %q", got)
	}
}

func TestMustHomeFrom_panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when home missing")
		}
	}()
	MustHomeFrom(context.Background())
}

func TestResolveHome_override(t *testing.T) {
	t.Parallel()
	got, err := ResolveHome("/custom/home")
	if err != nil {
		t.Fatalf("ResolveHome: %v", err)
	}
	if got != filepath.Clean("/custom/home") {
		t.Fatalf("ResolveHome: got %q", got)
	}
}

func TestResolveHome_env(t *testing.T) {
	t.Setenv("TASKZONE_HOME", "/env/home")
	got, err := ResolveHome("")
	if err != nil {
		t.Fatalf("ResolveHome: %v", err)
	}
	if got != filepath.Clean("/env/home") {
		t.Fatalf("ResolveHome from env: got %q", got)
	}
}

func TestResolveHome_default(t *testing.T) {
	t.Setenv("TASKZONE_HOME", "")
	// Override empty so we use UserHomeDir
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("UserHomeDir: %v", err)
	}
	got, err := ResolveHome("")
	if err != nil {
		t.Fatalf("ResolveHome: %v", err)
	}
	want := filepath.Join(home, ".taskzone")
	if got != want {
		t.Fatalf("ResolveHome default: got %q, want %q", got, want)
	}
}

func TestLoad_defaultsWithoutFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TASKZONE_API_KEY", "")
	t.Setenv("TASKZONE_WEBHOOK_URL", "")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != DefaultAddr || cfg.Store.Driver != "sqlite" || !cfg.Metrics {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestSaveLoad_roundTripAndEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TASKZONE_API_KEY", "from-env")
	t.Setenv("TASKZONE_WEBHOOK_URL", "")
	home := filepath.Join(t.TempDir(), "home")
	cfg := Default()
	cfg.Addr = "0.0.0.0:9000"
	cfg.APIKey = "from-file"
	cfg.Log.Format = "json"
	cfg.Webhook = WebhookConfig{URL: "http://hooks.local/x", BreakerTimeout: 10 * time.Second}
	if err := Save(home, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(home)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Addr != "0.0.0.0:9000" || got.Log.Format != "json" {
		t.Fatalf("Load: %+v", got)
	}
	if got.Webhook.URL != "http://hooks.local/x" || got.Webhook.BreakerTimeout != 10*time.Second {
		t.Fatalf("webhook: %+v", got.Webhook)
	}
	if got.APIKey != "from-env" {
		t.Fatalf("APIKey: env should win, got %q", got.APIKey)
	}
}

func TestLoad_databaseURLSelectsPostgres(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/taskzone")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != "postgres" || cfg.Store.DSN != "postgres://u:p@localhost/taskzone" {
		t.Fatalf("store: %+v", cfg.Store)
	}
}

func TestLoad_badYAML(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(Path(home), []byte("addr: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(home); err == nil {
		t.Fatal("Load: expected parse error")
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TASKZONE_TEST_ENV_VALUE=hello\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TASKZONE_TEST_ENV_VALUE", "")
	_ = os.Unsetenv("TASKZONE_TEST_ENV_VALUE")
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("TASKZONE_TEST_ENV_VALUE"); got != "hello" {
		t.Fatalf("env: got %q", got)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Fatalf("LoadEnvFile empty: %v", err)
	}
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("LoadEnvFile missing: expected error")
	}
}

func TestSetAPIKey_keepsFileAndSkipsEnv(t *testing.T) {
	home := t.TempDir()
	cfg := Default()
	cfg.Addr = "0.0.0.0:9000"
	if err := Save(home, cfg); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATABASE_URL", "postgres://env-only/db")
	if err := SetAPIKey(home, "k1"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	data, err := os.ReadFile(Path(home))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "env-only") {
		t.Fatalf("env DSN persisted:\n%s", data)
	}
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TASKZONE_API_KEY", "")
	got, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if got.APIKey != "k1" || got.Addr != "0.0.0.0:9000" {
		t.Fatalf("Load after SetAPIKey: %+v", got)
	}
}
