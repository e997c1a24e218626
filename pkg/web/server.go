// Package web serves the call page: controls, live state over a websocket
// and the end-of-call view.
package web

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-callbot/pkg/call"
	"github.com/teslashibe/go-callbot/pkg/hub"
	"github.com/teslashibe/go-callbot/pkg/metrics"
)

//go:embed static
var static embed.FS

// DefaultTickInterval is how often the current snapshot is pushed so the
// call timer keeps moving between state changes.
const DefaultTickInterval = time.Second

// Controller is the call the page drives. *call.Session implements it.
type Controller interface {
	StartListening() error
	ToggleSpeaker() error
	End() (string, error)
	Snapshot() call.Snapshot
}

var _ Controller = (*call.Session)(nil)

// Server is the call page server.
type Server struct {
	app       *fiber.App
	addr      string
	ctrl      Controller
	statusHub *hub.Hub
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tick      time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics exposes m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTickInterval overrides DefaultTickInterval.
func WithTickInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.tick = d
		}
	}
}

// NewServer creates the server. It does not listen until Run.
func NewServer(addr string, ctrl Controller, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		ctrl:   ctrl,
		logger: slog.Default(),
		tick:   DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web")
	s.statusHub = hub.New("status", s.logger)

	app := fiber.New(fiber.Config{
		AppName:               "callbot",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(cors.New())

	app.Get("/", s.handleIndex)
	app.Get("/thankyou", s.handleThankYou)
	app.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/mic", s.handleMic)
	api.Post("/speaker", s.handleSpeaker)
	api.Post("/end", s.handleEnd)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:       http.FS(static),
		PathPrefix: "static",
	}))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// StatusHub returns the hub carrying snapshots to page clients.
func (s *Server) StatusHub() *hub.Hub {
	return s.statusHub
}

// Publish pushes snap to every connected page. It is meant to be passed to
// call.Session.Observe.
func (s *Server) Publish(snap call.Snapshot) {
	if err := s.statusHub.BroadcastJSON(snap); err != nil {
		s.logger.Warn("encode snapshot", "error", err)
	}
}

// Run serves until ctx is done, then shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.statusHub.Run(ctx)
	go s.tickLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "url", "http://"+displayAddr(s.addr))
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.ctrl.Snapshot()
			s.Publish(snap)
			if snap.Ended {
				return
			}
		}
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
