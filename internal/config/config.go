package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/shipyard/internal/errors"
)

const (
	// FileName is the name of the configuration file.
	FileName = "shipyard.yaml"

	// DefaultPort is the port used when neither the file nor PORT set one.
	DefaultPort = 3000

	// DefaultHost binds every interface.
	DefaultHost = "0.0.0.0"

	// DefaultShutdownTimeout bounds how long draining may take.
	DefaultShutdownTimeout = 30 * time.Second
)

// Upload and ship store backends.
const (
	BackendMemory = "memory"
	BackendDisk   = "disk"
	BackendS3     = "s3"
	BackendRedis  = "redis"
)

// Config is the shipyard.yaml schema.
type Config struct {
	// Host is the interface to bind.
	Host string `yaml:"host,omitempty"`

	// Port is the port to listen on.
	Port int `yaml:"port,omitempty"`

	// StaticDir holds files served ahead of the HTML shell.
	StaticDir string `yaml:"staticDir,omitempty"`

	// ShellFile overrides the built-in HTML shell.
	ShellFile string `yaml:"shellFile,omitempty"`

	// ShutdownTimeout bounds draining on shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty"`

	// Compress enables response compression.
	Compress bool `yaml:"compress,omitempty"`

	// CORSOrigins are the origins allowed to POST actions cross-site.
	CORSOrigins []string `yaml:"corsOrigins,omitempty"`

	Stream  StreamConfig  `yaml:"stream,omitempty"`
	Actions ActionsConfig `yaml:"actions,omitempty"`
	Uploads UploadsConfig `yaml:"uploads,omitempty"`
	Ships   ShipsConfig   `yaml:"ships,omitempty"`
	Log     LogConfig     `yaml:"log,omitempty"`

	path string
}

// StreamConfig tunes response streaming.
type StreamConfig struct {
	// ChunkSize is the markup size per HTML row.
	ChunkSize int `yaml:"chunkSize,omitempty"`

	// Buffer is how many rows may be produced ahead of the client.
	Buffer int `yaml:"buffer,omitempty"`

	// WriteTimeout bounds a single websocket write.
	WriteTimeout time.Duration `yaml:"writeTimeout,omitempty"`
}

// ActionsConfig bounds server action requests.
type ActionsConfig struct {
	// Manifest is a YAML allow-list of references. Empty means every
	// tagged export is invocable.
	Manifest string `yaml:"manifest,omitempty"`

	// MaxBodyBytes caps the request body.
	MaxBodyBytes int64 `yaml:"maxBodyBytes,omitempty"`

	// MaxParts caps the number of multipart parts.
	MaxParts int `yaml:"maxParts,omitempty"`

	// MaxFieldBytes caps a single non-file part.
	MaxFieldBytes int64 `yaml:"maxFieldBytes,omitempty"`

	// AllowedTypes restricts uploaded content types.
	AllowedTypes []string `yaml:"allowedTypes,omitempty"`
}

// UploadsConfig selects where file arguments are staged.
type UploadsConfig struct {
	// Backend is memory, disk or s3.
	Backend string `yaml:"backend,omitempty"`

	// Dir is the disk backend directory.
	Dir string `yaml:"dir,omitempty"`

	// MaxSize caps a single file.
	MaxSize int64 `yaml:"maxSize,omitempty"`

	// MaxAge is how long an unclaimed upload survives.
	MaxAge time.Duration `yaml:"maxAge,omitempty"`

	S3 S3Config `yaml:"s3,omitempty"`
}

// S3Config reaches an S3-compatible bucket.
type S3Config struct {
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"accessKey,omitempty"`
	SecretKey string `yaml:"secretKey,omitempty"`
	PathStyle bool   `yaml:"pathStyle,omitempty"`
}

// ShipsConfig selects the ship data store.
type ShipsConfig struct {
	// Backend is memory or redis.
	Backend string `yaml:"backend,omitempty"`

	RedisAddr     string `yaml:"redisAddr,omitempty"`
	RedisPassword string `yaml:"redisPassword,omitempty"`
	RedisDB       int    `yaml:"redisDB,omitempty"`
	RedisPrefix   string `yaml:"redisPrefix,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level,omitempty"`

	// Format is text or json.
	Format string `yaml:"format,omitempty"`
}

// Default returns a Config with every default filled in.
func Default() *Config {
	return &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		StaticDir:       "public",
		ShutdownTimeout: DefaultShutdownTimeout,
		Stream: StreamConfig{
			ChunkSize:    4 << 10,
			Buffer:       1,
			WriteTimeout: 10 * time.Second,
		},
		Actions: ActionsConfig{
			MaxBodyBytes:  32 << 20,
			MaxParts:      128,
			MaxFieldBytes: 1 << 20,
		},
		Uploads: UploadsConfig{
			Backend: BackendMemory,
			Dir:     filepath.Join(os.TempDir(), "shipyard-uploads"),
			MaxSize: 16 << 20,
			MaxAge:  time.Hour,
			S3: S3Config{
				Prefix: "uploads/",
				Region: "us-east-1",
			},
		},
		Ships: ShipsConfig{
			Backend:     BackendMemory,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "shipyard:ship:",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path, or shipyard.yaml in the working directory when path is
// empty (a missing default file is not an error), then applies environment
// overrides and validates.
func Load(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		if _, err := os.Stat(FileName); err == nil {
			path = FileName
		}
	}
	if path == "" {
		cfg = Default()
	} else {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes path over the defaults. Unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeInvalidConfig).
				Wrap(err).
				WithSuggestion("Create " + FileName + " or omit --config to run with defaults")
		}
		return nil, errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.New(errors.CodeInvalidConfig).
			Wrap(fmt.Errorf("%s: %w", path, err)).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid YAML")
	}
	cfg.path = path
	return cfg, nil
}

// Path returns the file the config was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PORT: %q is not a number", v))
		} else {
			c.Port = port
		}
	}
	if v, ok := lookup("SHIPYARD_SHUTDOWN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SHIPYARD_SHUTDOWN_TIMEOUT: %w", err))
		} else {
			c.ShutdownTimeout = d
		}
	}
	str("SHIPYARD_HOST", &c.Host)
	str("SHIPYARD_STATIC_DIR", &c.StaticDir)
	str("SHIPYARD_MANIFEST", &c.Actions.Manifest)
	str("SHIPYARD_UPLOADS_BACKEND", &c.Uploads.Backend)
	str("SHIPYARD_UPLOADS_DIR", &c.Uploads.Dir)
	str("SHIPYARD_S3_BUCKET", &c.Uploads.S3.Bucket)
	str("SHIPYARD_S3_REGION", &c.Uploads.S3.Region)
	str("SHIPYARD_S3_ENDPOINT", &c.Uploads.S3.Endpoint)
	str("SHIPYARD_S3_ACCESS_KEY", &c.Uploads.S3.AccessKey)
	str("SHIPYARD_S3_SECRET_KEY", &c.Uploads.S3.SecretKey)
	str("SHIPYARD_SHIPS_BACKEND", &c.Ships.Backend)
	str("SHIPYARD_REDIS_ADDR", &c.Ships.RedisAddr)
	str("SHIPYARD_LOG_LEVEL", &c.Log.Level)
	str("SHIPYARD_LOG_FORMAT", &c.Log.Format)

	if len(errs) > 0 {
		return errors.New(errors.CodeInvalidConfig).Wrap(stderrors.Join(errs...))
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdownTimeout must be positive"))
	}
	if c.Stream.ChunkSize < 0 || c.Stream.Buffer < 0 {
		errs = append(errs, fmt.Errorf("stream.chunkSize and stream.buffer must not be negative"))
	}
	if c.Actions.MaxBodyBytes < 0 || c.Actions.MaxParts < 0 || c.Actions.MaxFieldBytes < 0 {
		errs = append(errs, fmt.Errorf("actions limits must not be negative"))
	}
	switch c.Uploads.Backend {
	case BackendMemory:
	case BackendDisk:
		if c.Uploads.Dir == "" {
			errs = append(errs, fmt.Errorf("uploads.dir is required for the disk backend"))
		}
	case BackendS3:
		if c.Uploads.S3.Bucket == "" {
			errs = append(errs, fmt.Errorf("uploads.s3.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("uploads.backend must be memory, disk or s3, got %q", c.Uploads.Backend))
	}
	switch c.Ships.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Ships.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("ships.redisAddr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("ships.backend must be memory or redis, got %q", c.Ships.Backend))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", f))
	}

	if len(errs) > 0 {
		return errors.New(errors.CodeInvalidConfig).Wrap(stderrors.Join(errs...))
	}
	return nil
}

// Address returns host:port.
func (c *Config) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// URL returns a browsable URL for the listener.
func (c *Config) URL() string {
	host := c.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + host + ":" + strconv.Itoa(c.Port)
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
