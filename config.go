package shipyard

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/shipyard/pkg/assets"
	"github.com/vango-dev/shipyard/pkg/reply"
)

// Config is the runtime configuration of an App.
type Config struct {
	// Static configures static file serving.
	Static StaticConfig

	// Shell is the HTML document served for page routes. Defaults to a
	// minimal document that boots /js/index.js.
	Shell []byte

	// Stream tunes response streaming.
	Stream StreamConfig

	// Actions bounds action requests.
	Actions ActionsConfig

	// CORSOrigins are allowed to POST actions cross-origin. Empty disables
	// CORS handling.
	CORSOrigins []string

	// Compress enables gzip/deflate of responses, streams included.
	Compress bool

	// ShutdownTimeout bounds draining. Default: 30 seconds.
	ShutdownTimeout time.Duration

	// Metrics is where collectors are registered and gathered from.
	// If nil, a private registry is used.
	Metrics *prometheus.Registry

	// Logger is the structured logger for the application.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// StaticConfig configures static file serving.
type StaticConfig struct {
	// Dir is the directory containing static files (e.g., "public").
	Dir string

	// Prefix is the URL path prefix for static files. Default: "/".
	Prefix string

	// CacheControl determines caching behavior for static files.
	CacheControl CacheControlStrategy

	// Headers are added to every static file response.
	Headers map[string]string

	// Manifest maps the shell's asset references to fingerprinted files.
	Manifest *assets.Manifest
}

// CacheControlStrategy determines caching behavior for static files.
type CacheControlStrategy int

const (
	// CacheControlNone sends no-store.
	CacheControlNone CacheControlStrategy = iota

	// CacheControlProduction caches fingerprinted files (app.abc12345.css)
	// for a year and everything else for an hour with revalidation.
	CacheControlProduction
)

// StreamConfig tunes response streaming.
type StreamConfig struct {
	// ChunkSize is the markup size per HTML row. Default: 4 KiB.
	ChunkSize int

	// Buffer is how many rows may be produced ahead of the client.
	// Default: 1.
	Buffer int

	// WriteTimeout bounds one websocket write. Default: 10 seconds.
	WriteTimeout time.Duration
}

// ActionsConfig bounds action requests.
type ActionsConfig struct {
	// MaxBodyBytes caps the request body. Default: 32 MiB.
	MaxBodyBytes int64

	// Reply configures argument decoding.
	Reply reply.Config
}

// DefaultConfig returns the defaults applied by New.
func DefaultConfig() Config {
	return Config{
		Static:          StaticConfig{Prefix: "/"},
		Shell:           []byte(defaultShell),
		Stream:          StreamConfig{ChunkSize: 4 << 10, Buffer: 1, WriteTimeout: 10 * time.Second},
		Actions:         ActionsConfig{MaxBodyBytes: 32 << 20, Reply: reply.DefaultConfig()},
		ShutdownTimeout: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Static.Prefix == "" {
		c.Static.Prefix = d.Static.Prefix
	}
	if len(c.Shell) == 0 {
		c.Shell = d.Shell
	}
	if c.Stream.ChunkSize <= 0 {
		c.Stream.ChunkSize = d.Stream.ChunkSize
	}
	if c.Stream.Buffer <= 0 {
		c.Stream.Buffer = d.Stream.Buffer
	}
	if c.Stream.WriteTimeout <= 0 {
		c.Stream.WriteTimeout = d.Stream.WriteTimeout
	}
	if c.Actions.MaxBodyBytes <= 0 {
		c.Actions.MaxBodyBytes = d.Actions.MaxBodyBytes
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.Metrics == nil {
		c.Metrics = prometheus.NewRegistry()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

const defaultShell = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Starship Deets</title>
<link rel="stylesheet" href="/style.css">
</head>
<body>
<div id="root"></div>
<script type="module" src="/js/index.js"></script>
</body>
</html>
`
