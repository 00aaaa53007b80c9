package shipyard

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/shipyard/pkg/action"
	"github.com/vango-dev/shipyard/pkg/assets"
	"github.com/vango-dev/shipyard/pkg/dispatch"
	"github.com/vango-dev/shipyard/pkg/middleware"
	"github.com/vango-dev/shipyard/pkg/protocol"
	"github.com/vango-dev/shipyard/pkg/render"
	"github.com/vango-dev/shipyard/pkg/shutdown"
)

// App is the shipyard HTTP application.
type App struct {
	config     Config
	logger     *slog.Logger
	router     chi.Router
	engine     *render.Engine
	dispatcher *dispatch.Dispatcher
	registry   *action.Registry
	root       dispatch.RootFunc
	coord      *shutdown.Coordinator
	metrics    *middleware.Metrics
	upgrader   websocket.Upgrader
	staticFS   http.FileSystem
}

// New creates an App serving root, with actions resolved from registry.
func New(cfg Config, registry *action.Registry, root dispatch.RootFunc) *App {
	cfg = cfg.withDefaults()
	cfg.Shell = assets.RewriteShell(cfg.Shell, cfg.Static.Manifest, cfg.Static.Prefix)
	logger := cfg.Logger

	metrics := middleware.NewMetrics(middleware.WithRegistry(cfg.Metrics))
	engine := render.NewEngine(render.Config{
		ChunkSize: cfg.Stream.ChunkSize,
		Buffer:    cfg.Stream.Buffer,
	}, logger.With("component", "render"))

	a := &App{
		config:   cfg,
		logger:   logger,
		engine:   engine,
		registry: registry,
		root:     root,
		coord:    shutdown.New(logger.With("component", "shutdown")),
		metrics:  metrics,
		dispatcher: dispatch.New(registry, engine, root,
			dispatch.WithReplyConfig(cfg.Actions.Reply),
			dispatch.WithLogger(logger.With("component", "dispatch")),
			dispatch.WithObserver(metrics),
		),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(cfg.CORSOrigins),
		},
	}
	if cfg.Static.Dir != "" {
		a.staticFS = http.Dir(cfg.Static.Dir)
	}
	a.router = a.routes()
	return a
}

func (a *App) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(a.metrics.Handler)
	r.Use(middleware.OpenTelemetry(middleware.WithFilter(func(r *http.Request) bool {
		return r.URL.Path != "/metrics"
	})))
	r.Use(a.coord.Middleware)
	r.Use(cleanSearch)
	if a.config.Compress {
		r.Use(chimw.Compress(5,
			"text/html", "text/css", "text/plain", "text/javascript",
			"application/javascript", "application/json", "image/svg+xml",
			protocol.ContentType,
		))
	}

	r.Handle("/metrics", a.metrics.Exposer(a.config.Metrics))
	r.Head("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/rsc", a.handleRender)
	r.Get("/rsc/{routeParam}", a.handleRender)
	r.Get("/live", a.handleLive)
	r.Get("/live/{routeParam}", a.handleLive)

	r.Route("/action", func(r chi.Router) {
		if len(a.config.CORSOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   a.config.CORSOrigins,
				AllowedMethods:   []string{http.MethodPost},
				AllowedHeaders:   []string{"Content-Type", ActionHeader},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}
		r.Post("/", a.handleAction)
		r.Post("/{routeParam}", a.handleAction)
	})

	r.Get("/*", a.handlePage)
	return r
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Handler returns the App as an http.Handler.
func (a *App) Handler() http.Handler {
	return a
}

// Coordinator returns the shutdown coordinator.
func (a *App) Coordinator() *shutdown.Coordinator {
	return a.coord
}

// Registry returns the action registry.
func (a *App) Registry() *action.Registry {
	return a.registry
}

// Config returns the app configuration with defaults applied.
func (a *App) Config() Config {
	return a.config
}

// checkOrigin allows same-host upgrades plus the configured origins.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		host := origin
		if i := strings.Index(host, "://"); i >= 0 {
			host = host[i+3:]
		}
		return strings.EqualFold(host, r.Host)
	}
}
