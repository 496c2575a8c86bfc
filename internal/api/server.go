package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clipper/internal/clipstore"
	"clipper/internal/logging"
)

// Controller is the set of clip operations served over HTTP.
type Controller interface {
	NewClip(ctx context.Context, source, start, end string) (string, error)
	Generate(ctx context.Context, source, start, end string, upload bool) (string, error)
	Normalize(ctx context.Context, id string) error
	Publish(ctx context.Context, id, category string, names map[string]string) error
	Info(id string) (clipstore.Record, error)
	List() []clipstore.Record
	HasCatalog() bool
}

// Options configure the HTTP server.
type Options struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	MaxBodyBytes   int64
	ShutdownGrace  time.Duration
}

// Server is the HTTP front end.
type Server struct {
	engine *gin.Engine
	ctrl   Controller
	logger *slog.Logger
	grace  time.Duration
}

// NewServer builds the gin engine and registers routes.
func NewServer(ctrl Controller, opts Options) *Server {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 10 * time.Second
	}
	logger := logging.NewComponentLogger(opts.Logger, "api")

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestContext())
	engine.Use(RequestLogger(logger))
	engine.Use(MaxBodySize(opts.MaxBodyBytes))
	engine.Use(CORS(opts.AllowedOrigins))

	s := &Server{engine: engine, ctrl: ctrl, logger: logger, grace: opts.ShutdownGrace}
	registerRoutes(engine, s)
	return s
}

// Handler exposes the engine for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on bind until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, bind string) error {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", bind, err)
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener serves on an existing listener.
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening",
			logging.String(logging.FieldEventType, "server_started"),
			logging.String("addr", listener.Addr().String()))
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("http server stopped", logging.String(logging.FieldEventType, "server_stopped"))
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
