package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/getmockd/soapd/pkg/httputil"
	"github.com/getmockd/soapd/pkg/logging"
)

// Default HTTP server timeouts.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Routes lists the endpoints served by NewMux.
type Routes struct {
	// SOAPPath is where the SOAP handler is mounted. Defaults to "/".
	SOAPPath string
	SOAP     http.Handler

	// MetricsPath mounts Metrics when both are set.
	MetricsPath string
	Metrics     http.Handler
}

// NewMux builds the request router with a /healthz endpoint.
func NewMux(routes Routes) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if routes.MetricsPath != "" && routes.Metrics != nil {
		mux.Handle("GET "+routes.MetricsPath, routes.Metrics)
	}
	path := routes.SOAPPath
	if path == "" {
		path = "/"
	}
	mux.Handle(path, routes.SOAP)
	return mux
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// TLS, when set, serves HTTPS.
	TLS *tls.Config
}

// Server runs the HTTP listener with graceful shutdown.
type Server struct {
	http            *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// NewServer creates a server serving h. A nil logger disables logging.
func NewServer(cfg ServerConfig, h http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		http: &http.Server{
			Addr:              cfg.Address,
			Handler:           h,
			ReadTimeout:       orDefault(cfg.ReadTimeout, DefaultReadTimeout),
			ReadHeaderTimeout: orDefault(cfg.ReadTimeout, DefaultReadTimeout),
			WriteTimeout:      orDefault(cfg.WriteTimeout, DefaultWriteTimeout),
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
			TLSConfig:         cfg.TLS,
		},
		shutdownTimeout: orDefault(cfg.ShutdownTimeout, DefaultShutdownTimeout),
		logger:          logger,
	}
	return s
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		if s.http.TLSConfig != nil {
			s.logger.Info("soapd listening", "addr", ln.Addr().String(), "tls", true)
			errCh <- s.http.ServeTLS(ln, "", "")
			return
		}
		s.logger.Info("soapd listening", "addr", ln.Addr().String())
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
