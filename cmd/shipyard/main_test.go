package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/vango-dev/shipyard/internal/config"
	"github.com/vango-dev/shipyard/internal/ships"
	"github.com/vango-dev/shipyard/pkg/action"
	"github.com/vango-dev/shipyard/pkg/protocol"
	"github.com/vango-dev/shipyard/pkg/upload"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestActionsCommand(t *testing.T) {
	out, err := run(t, "actions")
	if err != nil {
		t.Fatalf("actions error = %v", err)
	}
	for _, want := range []string{"REFERENCE", "actions.js#search", "actions.js#updateShipName"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "actions.js#reindex") && !strings.Contains(line, " no ") {
			t.Errorf("reindex listed as published: %q", line)
		}
	}
}

func TestActionsManifestRoundTrip(t *testing.T) {
	out, err := run(t, "actions", "--manifest")
	if err != nil {
		t.Fatalf("actions --manifest error = %v", err)
	}
	m, err := action.ParseManifest([]byte(out))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v\n%s", err, out)
	}
	if m.Len() != 3 {
		t.Errorf("manifest lists %d actions, want 3:\n%s", m.Len(), out)
	}
	if strings.Contains(out, "reindex") {
		t.Error("manifest allows an unpublished export")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "--short")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version = %q, want %q", out, version)
	}
}

func TestConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shipyard.yaml")
	os.WriteFile(path, []byte("port: 8181\nlog:\n  level: debug\n"), 0o644)

	out, err := run(t, "config", "--config", path)
	if err != nil {
		t.Fatalf("config error = %v", err)
	}
	if !strings.Contains(out, "port: 8181") || !strings.Contains(out, "level: debug") {
		t.Errorf("effective config:\n%s", out)
	}

	if _, err := run(t, "config", "--config", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("config with a missing file succeeded")
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSetupMemory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Default()
	cfg.StaticDir = t.TempDir()
	srv, err := setup(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer srv.close()

	if _, ok := srv.ships.(*ships.MemoryStore); !ok {
		t.Errorf("ships = %T, want memory store", srv.ships)
	}
	if _, ok := srv.uploads.(*upload.MemoryStore); !ok {
		t.Errorf("uploads = %T, want memory store", srv.uploads)
	}

	rec := httptest.NewRecorder()
	srv.app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rsc/0f9e8d7c6b5a4", nil))
	payload, err := protocol.Decode(rec.Body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !strings.Contains(payload.HTML, "Star Dancer") {
		t.Errorf("HTML = %q", payload.HTML)
	}

	rec = httptest.NewRecorder()
	srv.app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("runtime collectors not registered")
	}
}

func TestSetupRedisAndDisk(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Default()
	cfg.Ships.Backend = config.BackendRedis
	cfg.Ships.RedisAddr = mr.Addr()
	cfg.Uploads.Backend = config.BackendDisk
	cfg.Uploads.Dir = t.TempDir()

	srv, err := setup(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer srv.close()

	if _, ok := srv.ships.(*ships.RedisStore); !ok {
		t.Fatalf("ships = %T, want redis store", srv.ships)
	}
	if _, ok := srv.uploads.(*upload.DiskStore); !ok {
		t.Errorf("uploads = %T, want disk store", srv.uploads)
	}
	results, err := srv.ships.Search(ctx, "")
	if err != nil || len(results) != len(ships.Seed()) {
		t.Errorf("seeded fleet = %d ships, %v", len(results), err)
	}
}

func TestSetupErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unreachable redis", func(t *testing.T) {
		cfg := config.Default()
		cfg.Ships.Backend = config.BackendRedis
		cfg.Ships.RedisAddr = "127.0.0.1:1"
		_, err := setup(ctx, cfg, quietLogger())
		if err == nil || !strings.Contains(err.Error(), "E501") {
			t.Errorf("setup() error = %v, want E501", err)
		}
	})

	t.Run("bad manifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "actions.yaml")
		os.WriteFile(path, []byte("actions:\n  - nodelimiter\n"), 0o644)
		cfg := config.Default()
		cfg.Actions.Manifest = path
		_, err := setup(ctx, cfg, quietLogger())
		if err == nil || !strings.Contains(err.Error(), "E501") {
			t.Errorf("setup() error = %v, want E501", err)
		}
	})

	t.Run("missing shell", func(t *testing.T) {
		cfg := config.Default()
		cfg.ShellFile = filepath.Join(t.TempDir(), "index.html")
		if _, err := setup(ctx, cfg, quietLogger()); err == nil {
			t.Error("setup() succeeded without a shell file")
		}
	})
}
