// Package server is the HTTP transport: it binds the listeners, applies
// the response middleware and hands every request that no fixed endpoint
// claims to the route table dispatcher.
package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"

	"github.com/conneroisu/binserve/internal/config"
	"github.com/conneroisu/binserve/internal/dispatch"
	"github.com/conneroisu/binserve/internal/livereload"
	"github.com/conneroisu/binserve/internal/logging"
	"github.com/conneroisu/binserve/internal/routes"
	"github.com/conneroisu/binserve/internal/version"
)

// HealthPath reports liveness and the size of the route table.
const HealthPath = "/__binserve/health"

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	compressionLevel  = 5
)

// Options configures a Server.
type Options struct {
	Config *config.Config
	Table  *routes.Table
	Logger logging.Logger
	// Hub is mounted when live reload is enabled. May be nil.
	Hub *livereload.Hub
}

// Server serves a route table over HTTP and, when enabled, HTTPS.
type Server struct {
	cfg     *config.Config
	table   *routes.Table
	logger  logging.Logger
	hub     *livereload.Hub
	handler http.Handler

	serverMutex  sync.RWMutex
	servers      []*http.Server
	addrs        []net.Addr
	ready        chan struct{}
	shutdownOnce sync.Once
}

// New creates a Server and assembles its handler.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	s := &Server{
		cfg:    opts.Config,
		table:  opts.Table,
		logger: logger.WithComponent("server"),
		hub:    opts.Hub,
		ready:  make(chan struct{}),
	}
	s.handler = s.routes(logger)
	return s
}

// Handler returns the complete request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes(base logging.Logger) http.Handler {
	toggles := s.cfg.Toggles

	var d *dispatch.Dispatcher
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.ServeNotFound(w, r)
	})
	disk := NewFileService(FileServiceOptions{
		FollowSymlinks: toggles.FollowSymlinks,
		NotFound:       notFound,
		Logger:         base,
	})
	d = dispatch.New(s.table, disk)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if toggles.EnableLogging {
		if zl, ok := base.(interface{ Zerolog() zerolog.Logger }); ok {
			r.Use(accessLog(zl.Zerolog().With().Str("component", "access").Logger())...)
		}
	}

	r.Use(defaultHeaders(version.ServerName(), toggles.EnableCacheControl, s.cfg.InsertHeaders))
	if s.cfg.Server.TLS.Enable {
		r.Use(redirectHTTPS(s.cfg.Server.TLS.Host))
	}
	r.Use(middleware.Compress(compressionLevel))

	r.Get(HealthPath, s.handleHealth)
	if s.hub != nil {
		r.Get(livereload.Path, s.hub.ServeHTTP)
		r.Get(livereload.ScriptPath, s.hub.ServeScript)
	}

	if static := s.cfg.Static; static.Directory != "" && static.ServedFrom != "" {
		r.Mount(static.ServedFrom, NewFileService(FileServiceOptions{
			Root:           static.Directory,
			Prefix:         static.ServedFrom,
			FollowSymlinks: toggles.FollowSymlinks,
			Listing:        toggles.EnableDirectoryListing,
			NotFound:       notFound,
			Logger:         base,
		}))
	}

	r.NotFound(d.ServeHTTP)
	r.MethodNotAllowed(d.ServeHTTP)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"version":    version.GetShortVersion(),
		"build_info": version.GetBuildInfo(),
		"routes":     s.table.Len(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Error(r.Context(), err, "failed to encode health response")
	}
}

// Start binds the configured listeners and serves until ctx is done or a
// listener fails. On return every listener is closed.
func (s *Server) Start(ctx context.Context) error {
	listeners, err := s.listen()
	if err != nil {
		return err
	}

	s.serverMutex.Lock()
	for _, ln := range listeners {
		s.servers = append(s.servers, &http.Server{
			Handler:           s.handler,
			ReadHeaderTimeout: readHeaderTimeout,
		})
		s.addrs = append(s.addrs, ln.Addr())
	}
	servers := append([]*http.Server(nil), s.servers...)
	s.serverMutex.Unlock()
	close(s.ready)

	errs := make(chan error, len(servers))
	for i, srv := range servers {
		srv := srv
		ln := listeners[i]
		s.logger.Info(ctx, "listening", "addr", ln.Addr().String())
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("serving on %s: %w", ln.Addr(), err)
				return
			}
			errs <- nil
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

func (s *Server) listen() ([]net.Listener, error) {
	limit := s.cfg.Toggles.MaxConnections

	plain, err := net.Listen("tcp", s.cfg.Server.Host)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", s.cfg.Server.Host, err)
	}
	if limit > 0 {
		plain = netutil.LimitListener(plain, limit)
	}
	listeners := []net.Listener{plain}

	if tlsCfg := s.cfg.Server.TLS; tlsCfg.Enable {
		cert, err := tls.LoadX509KeyPair(tlsCfg.Cert, tlsCfg.Key)
		if err != nil {
			plain.Close()
			return nil, fmt.Errorf("loading TLS key pair: %w", err)
		}

		secure, err := net.Listen("tcp", tlsCfg.Host)
		if err != nil {
			plain.Close()
			return nil, fmt.Errorf("binding %s: %w", tlsCfg.Host, err)
		}
		if limit > 0 {
			secure = netutil.LimitListener(secure, limit)
		}
		listeners = append(listeners, tls.NewListener(secure, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
			NextProtos:   []string{"h2", "http/1.1"},
		}))
	}

	return listeners, nil
}

// Addrs waits until Start has bound its listeners and returns their
// addresses, plain first.
func (s *Server) Addrs(ctx context.Context) ([]net.Addr, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	return append([]net.Addr(nil), s.addrs...), nil
}

// Shutdown gracefully stops every listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down server")

		s.serverMutex.RLock()
		servers := append([]*http.Server(nil), s.servers...)
		s.serverMutex.RUnlock()

		for _, srv := range servers {
			if err := srv.Shutdown(ctx); err != nil && shutdownErr == nil {
				shutdownErr = err
			}
		}
	})

	return shutdownErr
}
