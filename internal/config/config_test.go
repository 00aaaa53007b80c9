package config

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/shipyard/internal/errors"
)

func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.Uploads.Backend != BackendMemory || cfg.Ships.Backend != BackendMemory {
		t.Errorf("backends = %q, %q", cfg.Uploads.Backend, cfg.Ships.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	data := `
port: 8080
shutdownTimeout: 5s
corsOrigins: [https://a.example]
stream:
  chunkSize: 1024
actions:
  manifest: actions.yaml
  allowedTypes: ["image/*"]
uploads:
  backend: s3
  s3:
    bucket: ships
    pathStyle: true
ships:
  backend: redis
log:
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Port != 8080 || cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("Port, ShutdownTimeout = %d, %v", cfg.Port, cfg.ShutdownTimeout)
	}
	if cfg.Stream.ChunkSize != 1024 || cfg.Stream.Buffer != 1 {
		t.Errorf("Stream = %+v, want chunkSize 1024 and default buffer", cfg.Stream)
	}
	if cfg.Uploads.S3.Bucket != "ships" || !cfg.Uploads.S3.PathStyle || cfg.Uploads.S3.Region != "us-east-1" {
		t.Errorf("S3 = %+v", cfg.Uploads.S3)
	}
	if cfg.Ships.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, want default", cfg.Ships.RedisAddr)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q", cfg.Path())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	var coded *errors.Error
	if !stderrors.As(err, &coded) || coded.Code != errors.CodeInvalidConfig {
		t.Errorf("missing file error = %v", err)
	}
	if !stderrors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error does not wrap ErrNotExist: %v", err)
	}

	unknown := filepath.Join(dir, "unknown.yaml")
	os.WriteFile(unknown, []byte("prot: 1\n"), 0o644)
	if _, err := LoadFile(unknown); err == nil {
		t.Error("unknown key accepted")
	}

	empty := filepath.Join(dir, "empty.yaml")
	os.WriteFile(empty, nil, 0o644)
	cfg, err := LoadFile(empty)
	if err != nil {
		t.Fatalf("empty file error = %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("empty file Port = %d", cfg.Port)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"PORT":                      "4000",
		"SHIPYARD_SHUTDOWN_TIMEOUT": "2s",
		"SHIPYARD_REDIS_ADDR":       "redis:6379",
		"SHIPYARD_S3_BUCKET":        "b",
		"SHIPYARD_LOG_LEVEL":        "debug",
		"SHIPYARD_HOST":             "",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Port != 4000 || cfg.ShutdownTimeout != 2*time.Second {
		t.Errorf("Port, ShutdownTimeout = %d, %v", cfg.Port, cfg.ShutdownTimeout)
	}
	if cfg.Ships.RedisAddr != "redis:6379" || cfg.Uploads.S3.Bucket != "b" {
		t.Errorf("RedisAddr, Bucket = %q, %q", cfg.Ships.RedisAddr, cfg.Uploads.S3.Bucket)
	}
	if cfg.Host != DefaultHost {
		t.Errorf("empty SHIPYARD_HOST overrode Host: %q", cfg.Host)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel() = %v", cfg.LogLevel())
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{"PORT": "abc", "SHIPYARD_SHUTDOWN_TIMEOUT": "soon"}))
	if err == nil {
		t.Fatal("ApplyEnv() accepted bad values")
	}
	for _, want := range []string{"PORT", "SHIPYARD_SHUTDOWN_TIMEOUT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidate_ReportsEverything(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	cfg.Uploads.Backend = BackendS3
	cfg.Ships.Backend = "postgres"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	for _, want := range []string{"port", "uploads.s3.bucket", "ships.backend", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoad_NoFile(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(dir)

	t.Setenv("PORT", "3100")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 3100 {
		t.Errorf("Port = %d, want PORT override", cfg.Port)
	}
	if cfg.Path() != "" {
		t.Errorf("Path() = %q, want empty", cfg.Path())
	}
}

func TestAddressAndURL(t *testing.T) {
	cfg := Default()
	if cfg.Address() != "0.0.0.0:3000" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if cfg.URL() != "http://localhost:3000" {
		t.Errorf("URL() = %q", cfg.URL())
	}
	cfg.Host = "127.0.0.1"
	if cfg.URL() != "http://127.0.0.1:3000" {
		t.Errorf("URL() = %q", cfg.URL())
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.CORSOrigins = []string{"https://a.example"}
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), FileName)
	os.WriteFile(path, data, 0o644)
	back, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile(marshalled) error = %v\n%s", err, data)
	}
	if back.ShutdownTimeout != cfg.ShutdownTimeout || back.CORSOrigins[0] != "https://a.example" {
		t.Errorf("round trip lost fields:\n%s", data)
	}
}
