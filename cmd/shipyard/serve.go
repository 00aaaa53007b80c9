package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/shipyard"
	"github.com/vango-dev/shipyard/internal/app"
	"github.com/vango-dev/shipyard/internal/config"
	apperrors "github.com/vango-dev/shipyard/internal/errors"
	"github.com/vango-dev/shipyard/internal/ships"
	"github.com/vango-dev/shipyard/pkg/action"
	"github.com/vango-dev/shipyard/pkg/assets"
	"github.com/vango-dev/shipyard/pkg/reply"
	"github.com/vango-dev/shipyard/pkg/upload"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		port       int
		host       string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
		Long: `Start the server and block until SIGINT or SIGTERM.

On a signal the server stops accepting connections and lets every
open stream finish, up to shutdownTimeout.

Examples:
  shipyard serve
  shipyard serve --port=8080
  shipyard serve --config=deploy/shipyard.yaml --log-level=debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Port = port
			}
			if host != "" {
				cfg.Host = host
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default ./"+config.FileName+" if present)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	srv, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer srv.close()

	stop := srv.app.Coordinator().NotifySignals()
	defer stop()

	logger.Info("starting shipyard",
		"version", version,
		"config", cfg.Path(),
		"uploads", cfg.Uploads.Backend,
		"ships", cfg.Ships.Backend,
	)
	success("Serving on %s", cfg.URL())
	return srv.app.ListenAndServe(ctx, cfg.Address())
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// server is a wired App and the resources it holds open.
type server struct {
	app     *shipyard.App
	ships   ships.Store
	uploads upload.Store
	closers []func() error
}

func (s *server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// setup builds the stores and the App from cfg. The upload janitor runs
// until ctx ends.
func setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*server, error) {
	s := &server{}

	uploads, err := newUploadStore(cfg)
	if err != nil {
		return nil, err
	}
	s.uploads = uploads

	store, closeStore, err := newShipStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.ships = store
	if closeStore != nil {
		s.closers = append(s.closers, closeStore)
	}

	var opts []action.Option
	if cfg.Actions.Manifest != "" {
		m, err := action.LoadManifest(cfg.Actions.Manifest)
		if err != nil {
			s.close()
			return nil, apperrors.New(apperrors.CodeInvalidConfig).Wrap(err).
				WithSuggestion("Generate one with: shipyard actions --manifest > " + cfg.Actions.Manifest)
		}
		opts = append(opts, action.WithManifest(m))
		logger.Info("action manifest loaded", "path", cfg.Actions.Manifest, "actions", m.Len())
	}
	registry := action.NewRegistry(opts...)
	demo := app.New(store, logger)
	demo.Register(registry)

	var shell []byte
	if cfg.ShellFile != "" {
		shell, err = os.ReadFile(cfg.ShellFile)
		if err != nil {
			s.close()
			return nil, apperrors.New(apperrors.CodeInvalidConfig).Wrap(err)
		}
	}

	var manifest *assets.Manifest
	if cfg.StaticDir != "" {
		path := filepath.Join(cfg.StaticDir, assets.FileName)
		manifest, err = assets.Load(path)
		switch {
		case err == nil:
			logger.Info("asset manifest loaded", "path", path, "assets", manifest.Len())
		case errors.Is(err, fs.ErrNotExist):
			manifest = nil
		default:
			s.close()
			return nil, apperrors.New(apperrors.CodeInvalidConfig).Wrap(err)
		}
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s.app = shipyard.New(shipyard.Config{
		Static: shipyard.StaticConfig{
			Dir:          cfg.StaticDir,
			CacheControl: shipyard.CacheControlProduction,
			Manifest:     manifest,
		},
		Shell: shell,
		Stream: shipyard.StreamConfig{
			ChunkSize:    cfg.Stream.ChunkSize,
			Buffer:       cfg.Stream.Buffer,
			WriteTimeout: cfg.Stream.WriteTimeout,
		},
		Actions: shipyard.ActionsConfig{
			MaxBodyBytes: cfg.Actions.MaxBodyBytes,
			Reply: reply.Config{
				MaxParts:      cfg.Actions.MaxParts,
				MaxFieldBytes: cfg.Actions.MaxFieldBytes,
				AllowedTypes:  cfg.Actions.AllowedTypes,
				Store:         uploads,
			},
		},
		CORSOrigins:     cfg.CORSOrigins,
		Compress:        cfg.Compress,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Metrics:         metrics,
		Logger:          logger,
	}, registry, demo.Root)

	go upload.Janitor(ctx, uploads, cfg.Uploads.MaxAge/2, cfg.Uploads.MaxAge, logger.With("component", "uploads"))
	return s, nil
}

func newUploadStore(cfg *config.Config) (upload.Store, error) {
	u := cfg.Uploads
	switch u.Backend {
	case config.BackendDisk:
		store, err := upload.NewDiskStore(u.Dir, u.MaxSize)
		if err != nil {
			return nil, apperrors.New(apperrors.CodeInvalidConfig).Wrap(err)
		}
		return store, nil
	case config.BackendS3:
		client := upload.NewS3Client(upload.S3Config{
			Region:    u.S3.Region,
			Endpoint:  u.S3.Endpoint,
			AccessKey: u.S3.AccessKey,
			SecretKey: u.S3.SecretKey,
			PathStyle: u.S3.PathStyle,
		})
		return upload.NewS3Store(client, u.S3.Bucket, u.S3.Prefix, u.MaxSize), nil
	default:
		return upload.NewMemoryStore(u.MaxSize), nil
	}
}

// newShipStore returns the configured store, seeded with the demo fleet.
func newShipStore(ctx context.Context, cfg *config.Config) (ships.Store, func() error, error) {
	if cfg.Ships.Backend != config.BackendRedis {
		return ships.NewMemoryStore(ships.Seed()), nil, nil
	}

	var opts []ships.RedisOption
	if cfg.Ships.RedisPrefix != "" {
		opts = append(opts, ships.WithPrefix(cfg.Ships.RedisPrefix))
	}
	store := ships.NewRedisStore(cfg.Ships.RedisAddr, cfg.Ships.RedisPassword, cfg.Ships.RedisDB, opts...)
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, nil, apperrors.New(apperrors.CodeInvalidConfig).
			Wrap(fmt.Errorf("redis %s: %w", cfg.Ships.RedisAddr, err)).
			WithSuggestion("Start Redis or set ships.backend: memory")
	}
	if err := store.Seed(ctx, ships.Seed()); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("seed ships: %w", err)
	}
	return store, store.Close, nil
}
