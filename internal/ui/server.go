// Package ui serves the annotation views over HTTP. A single goroutine owns
// the coordinator; handlers hand it work and wait, so interaction events are
// processed strictly one at a time.
package ui

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/andresmejia3/veil/internal/annotate"
	"github.com/andresmejia3/veil/internal/region"
	"github.com/gin-gonic/gin"
)

//go:embed index.html
var indexHTML []byte

// ErrQuit is returned by Run when the operator quit from the page.
var ErrQuit = errors.New("quit requested")

var errStopped = errors.New("annotation loop stopped")

// ExportFunc writes the blurred log for the given regions.
type ExportFunc func(ctx context.Context, stores []*region.Store) (string, error)

// Options configure the server.
type Options struct {
	// Quality is the JPEG quality of rendered views.
	Quality int
	// Export runs when the operator asks for an export, after a save.
	Export ExportFunc
}

type job struct {
	fn    func(*annotate.Coordinator) (any, error)
	reply chan result
}

type result struct {
	value any
	err   error
}

// Server is the HTTP interaction surface.
type Server struct {
	coord  *annotate.Coordinator
	opts   Options
	engine *gin.Engine

	jobs     chan job
	quit     chan struct{}
	quitOnce sync.Once
	stopped  chan struct{}
}

// New builds a server around coord. Call Start (or Run) before serving requests.
func New(coord *annotate.Coordinator, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		coord:   coord,
		opts:    opts,
		jobs:    make(chan job),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, err any) {
		slog.ErrorContext(c.Request.Context(), "panic", "err", err, "stack", string(debug.Stack()))
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	s.routes(r)
	s.engine = r
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.engine }

// Quit returns a channel closed once the operator quits.
func (s *Server) Quit() <-chan struct{} { return s.quit }

// Start runs the annotation loop until ctx is done or the operator quits.
func (s *Server) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Server) loop(ctx context.Context) {
	defer close(s.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case j := <-s.jobs:
			v, err := j.fn(s.coord)
			j.reply <- result{value: v, err: err}
		}
	}
}

// do runs fn on the annotation loop and waits for its result.
func (s *Server) do(ctx context.Context, fn func(*annotate.Coordinator) (any, error)) (any, error) {
	j := job{fn: fn, reply: make(chan result, 1)}
	select {
	case s.jobs <- j:
	case <-s.stopped:
		return nil, errStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	r := <-j.reply
	return r.value, r.err
}

func (s *Server) requestQuit() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// Run serves on addr until ctx is cancelled or the operator quits. Quitting
// does not save.
func (s *Server) Run(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.Start(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("annotation server listening", "addr", addr)

	var reason error
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		reason = ctx.Err()
	case <-s.quit:
		reason = ErrQuit
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown", "err", err)
	}
	return reason
}
