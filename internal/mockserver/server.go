// Package mockserver is a demo backend for the CFO dashboard. It serves the
// full endpoint catalog from deterministic mock data.
package mockserver

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/tensorplex-labs/cfo/internal/config"
	"github.com/tensorplex-labs/cfo/internal/telemetry"
	"github.com/tensorplex-labs/cfo/pkg/cfoapi"
)

const (
	AdminEmail    = "admin@gmail.com"
	AdminPassword = "admin123"

	localIdentity = "identity"
)

type Server struct {
	App    *fiber.App
	cfg    config.MockServerEnvConfig
	users  *userStore
	now    func() time.Time
	upload uploadSink
}

type options struct {
	bcryptCost int
	now        func() time.Time
	gatherer   prometheus.Gatherer
}

type Option func(*options)

// WithBcryptCost lowers hashing cost, for tests.
func WithBcryptCost(cost int) Option {
	return func(o *options) { o.bcryptCost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics exposes g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(o *options) { o.gatherer = g }
}

func NewServer(cfg config.MockServerEnvConfig, opts ...Option) (*Server, error) {
	o := options{bcryptCost: bcrypt.DefaultCost, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.BodySizeLimit <= 0 {
		cfg.BodySizeLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          fiberErrHandler,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		BodyLimit:             cfg.BodySizeLimit,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(ZstdMiddleware([]string{"/health", "/metrics", "/mock"}))

	sink, err := newUploadSink(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	s := &Server{
		App:    app,
		cfg:    cfg,
		users:  newUserStore(o.bcryptCost),
		now:    o.now,
		upload: sink,
	}
	if err := s.users.register(user{FullName: "Admin", WorkEmail: AdminEmail, JobTitle: "admin"}, AdminPassword); err != nil {
		return nil, err
	}
	log.Info().Str("email", AdminEmail).Msg("Admin user created")

	mockFS, err := fs.Sub(cfoapi.MockFS(), "mock")
	if err != nil {
		return nil, err
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if o.gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(telemetry.Handler(o.gatherer)))
	}
	app.Use("/mock", filesystem.New(filesystem.Config{Root: http.FS(mockFS)}))

	api := app.Group("/api")
	api.Post("/user/register", s.handleRegister)
	api.Post("/user/login", s.handleLogin)
	api.Post("/query", s.BearerAuth(), s.handleQuery)
	api.Post("/uploadAnnualReportPdf", s.handleUpload)
	api.Get("/financials", s.handleFinancials)
	api.Get("/risks", s.handleRisks)
	api.Get("/monitoring", s.handleMonitoring)
	api.Get("/anomalies", s.handleAnomalies)
	api.Get("/forecast", s.handleForecast)
	api.Get("/export", s.handleExport)
	api.Get("/kpis", s.handleKPIs)

	return s, nil
}

func fiberErrHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	log.Error().
		Err(err).
		Int("status_code", code).
		Str("path", c.Path()).
		Str("method", c.Method()).
		Msg("Fiber error handler triggered")

	return c.Status(code).JSON(message(err.Error()))
}

// Start listens until ctx is cancelled, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.ServerListenAddr()
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", addr).Msg("mock backend listening")
		errCh <- s.App.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return s.App.ShutdownWithTimeout(5 * time.Second)
}

func message(msg string) fiber.Map {
	return fiber.Map{"message": msg}
}

func isPDF(filename string) bool {
	i := strings.LastIndex(filename, ".")
	return i >= 0 && strings.EqualFold(filename[i+1:], "pdf")
}
