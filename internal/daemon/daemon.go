package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/riti-network/riti/internal/api"
	"github.com/riti-network/riti/internal/app/session"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Daemon serves one session over HTTP until its context is cancelled.
type Daemon struct {
	cfg     Config
	session *session.Session
	server  *http.Server
	logger  *slog.Logger
}

// New opens the configured session and prepares the HTTP server.
func New(cfg Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s, err := session.Open(cfg.SessionOptions(logger))
	if err != nil {
		return nil, err
	}

	srv := api.NewServer(s, logger)
	if cfg.Telemetry.Metrics {
		srv.EnableMetrics()
	}

	return &Daemon{
		cfg:     cfg,
		session: s,
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.With("component", "daemon"),
	}, nil
}

// Session returns the served session.
func (d *Daemon) Session() *session.Session { return d.session }

// Serve accepts connections on ln until ctx is cancelled, then shuts the
// server down and closes the session.
func (d *Daemon) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("listening", "addr", ln.Addr().String(), "metrics", d.cfg.Telemetry.Metrics)
		errCh <- d.server.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("http shutdown", "error", err)
	}
	if err := d.session.Close(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("close session: %w", err))
	}
	d.logger.Info("stopped")
	return serveErr
}

// Run listens on the configured address and serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	d, err := New(cfg, logger)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		if cerr := d.session.Close(ctx); cerr != nil {
			d.logger.Error("close session", "error", cerr)
		}
		return fmt.Errorf("listen %s: %w", cfg.Addr(), err)
	}
	return d.Serve(ctx, ln)
}
