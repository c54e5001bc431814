// Package server exposes the control API of otgmoded over HTTP.
//
// Routes:
//
//	GET  /state    current arbiter state, indicator, stored mode, line level
//	POST /mode     {"mode": "auto|headset|otg", "persist": bool}
//	GET  /events   websocket stream of notify events
//	GET  /metrics  Prometheus exposition
//	GET  /healthz  liveness
//	GET  /readyz   readiness
//
// With Options.Profiling the net/http/pprof handlers are mounted under
// /debug/pprof/.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/ardnew/otgmode/internal/health"
	"github.com/ardnew/otgmode/internal/notify"
	"github.com/ardnew/otgmode/internal/observe"
	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port"
	"github.com/ardnew/otgmode/port/hal"
	"github.com/ardnew/otgmode/port/hal/usbid"
)

// Timing constants.
const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 5 * time.Second // Per websocket message
)

// maxBodyBytes bounds POST /mode request bodies.
const maxBodyBytes = 1 << 10

// StateSource reports the arbiter state.
type StateSource interface {
	State() port.State
}

// ModeRequester forwards a user detection-mode request.
type ModeRequester interface {
	RequestMode(ctx context.Context, mode port.Mode, persist bool) error
}

// LineReader reads back the OTG line level.
type LineReader interface {
	Enabled() (bool, error)
}

// Options wires the server to the rest of the daemon. Arbiter, Modes, and
// Hub are required.
type Options struct {
	Addr string

	Arbiter StateSource
	Modes   ModeRequester
	Hub     *notify.Hub
	Store   port.ModeStore   // optional
	Line    LineReader       // optional
	Devices hal.DeviceLister // optional
	Names   *usbid.IDs       // optional

	Health         *health.Handler  // optional
	Metrics        *observe.Metrics // optional
	MetricsHandler http.Handler     // optional, served at /metrics
	Profiling      bool
}

// Server is the control API.
type Server struct {
	opts    Options
	handler http.Handler
}

// New builds the route table.
func New(opts Options) (*Server, error) {
	if opts.Arbiter == nil || opts.Modes == nil || opts.Hub == nil {
		return nil, fmt.Errorf("%w: server requires arbiter, mode requester, and hub", pkg.ErrInvalidParameter)
	}

	s := &Server{opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /mode", s.handleMode)
	mux.HandleFunc("GET /events", s.handleEvents)
	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}
	if opts.Health != nil {
		opts.Health.Register(mux)
	}
	if opts.Profiling {
		mux.HandleFunc("GET /debug/pprof/", pprof.Index)
		mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	}
	if opts.Names == nil {
		s.opts.Names = &usbid.IDs{}
	}

	s.handler = mux
	if opts.Metrics != nil {
		s.handler = observe.Middleware(opts.Metrics)(mux)
	}
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(l)
	}()
	pkg.LogInfo(pkg.ComponentServer, "control API listening", "addr", l.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		pkg.LogWarn(pkg.ComponentServer, "forced shutdown", "error", err)
		return srv.Close()
	}
	pkg.LogInfo(pkg.ComponentServer, "control API stopped")
	return nil
}

// ListenAndServe listens on Options.Addr and calls [Server.Serve].
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, l)
}
