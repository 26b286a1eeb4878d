// Package server exposes the license calculation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/licensecount/pkg/license"
	"github.com/Sumatoshi-tech/licensecount/pkg/loader"
	"github.com/Sumatoshi-tech/licensecount/pkg/observability"
	"github.com/Sumatoshi-tech/licensecount/pkg/pipeline"
	"github.com/Sumatoshi-tech/licensecount/pkg/report"
)

// Routes.
const (
	RouteLicenses = "/v1/licenses"
	RouteHealth   = "/healthz"
	RouteMetrics  = "/metrics"
)

const (
	queryApplication = "app"
	queryFormat      = "format"
	requestSource    = "request"
)

// Sentinel errors.
var (
	ErrNoRunner           = errors.New("http server requires a pipeline runner")
	ErrInvalidApplication = errors.New("invalid application id")
	ErrInvalidFormat      = errors.New("invalid format")
)

// Options holds listener and limit settings.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MaxBodyBytes caps the request body; zero or less means no cap.
	MaxBodyBytes int64
}

// Deps holds injectable dependencies for the HTTP server.
type Deps struct {
	// Runner executes calculations. Required.
	Runner *pipeline.Runner

	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Tracer creates one span per request. Nil uses the global provider.
	Tracer trace.Tracer

	// Metrics records RED metrics per route. Nil disables them.
	Metrics *observability.REDMetrics

	// MetricsHandler serves RouteMetrics. Nil leaves the route unregistered.
	MetricsHandler http.Handler
}

// Server is the licensecount HTTP service.
type Server struct {
	opts     Options
	runner   *pipeline.Runner
	logger   *slog.Logger
	handler  http.Handler
	server   *http.Server
	listener net.Listener
}

// New creates a Server. Call Start to begin listening.
func New(opts Options, deps Deps) (*Server, error) {
	if deps.Runner == nil {
		return nil, ErrNoRunner
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("licensecount")
	}

	srv := &Server{opts: opts, runner: deps.Runner, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+RouteLicenses, srv.handleLicenses)
	mux.Handle("GET "+RouteHealth, observability.HealthHandler())

	if deps.MetricsHandler != nil {
		mux.Handle("GET "+RouteMetrics, deps.MetricsHandler)
	}

	srv.handler = observability.HTTPMiddleware(tracer, deps.Metrics, mux)

	return srv, nil
}

// Handler returns the instrumented request router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
	}

	go func() {
		serveErr := s.server.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Warn("http server stopped", "error", serveErr)
		}
	}()

	s.logger.Info("http server listening", "addr", listener.Addr().String())

	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.opts.Addr
	}

	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	return nil
}

func (s *Server) handleLicenses(rw http.ResponseWriter, hr *http.Request) {
	appID, err := parseApplication(hr.URL.Query().Get(queryApplication))
	if err != nil {
		s.writeError(rw, hr, http.StatusBadRequest, err)

		return
	}

	format := hr.URL.Query().Get(queryFormat)
	if format == "" {
		format = report.FormatJSON
	}

	if !isKnownFormat(format) {
		s.writeError(rw, hr, http.StatusBadRequest, fmt.Errorf("%w: %q", ErrInvalidFormat, format))

		return
	}

	body := hr.Body
	if s.opts.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(rw, hr.Body, s.opts.MaxBodyBytes)
	}

	res, err := s.runner.Run(hr.Context(), pipeline.Source{
		Reader:        body,
		Name:          requestSource,
		ApplicationID: appID,
	})
	if err != nil {
		s.writeError(rw, hr, statusFor(err), err)

		return
	}

	s.writeResult(rw, hr, format, res)
}

func (s *Server) writeResult(rw http.ResponseWriter, hr *http.Request, format string, res *license.Result) {
	rw.Header().Set("Content-Type", contentTypes[format])
	rw.WriteHeader(http.StatusOK)

	err := report.Render(rw, format, res, report.Options{Source: requestSource})
	if err != nil {
		s.logger.WarnContext(hr.Context(), "write response failed", "error", err)
	}
}

func (s *Server) writeError(rw http.ResponseWriter, hr *http.Request, status int, err error) {
	s.logger.InfoContext(hr.Context(), "request rejected", "status", status, "error", err)

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	data, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		return
	}

	_, writeErr := rw.Write(data)
	if writeErr != nil {
		s.logger.WarnContext(hr.Context(), "write response failed", "error", writeErr)
	}
}

var contentTypes = map[string]string{
	report.FormatJSON: "application/json",
	report.FormatYAML: "application/yaml",
	report.FormatText: "text/plain; charset=utf-8",
}

func isKnownFormat(format string) bool {
	_, ok := contentTypes[format]

	return ok
}

// parseApplication returns zero for an absent value so the runner default applies.
func parseApplication(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidApplication, raw)
	}

	return id, nil
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, loader.ErrFormat), errors.Is(err, loader.ErrIO), errors.Is(err, loader.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, license.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
