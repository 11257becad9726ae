// Package server exposes the resolver, the streaming proxy and the rescan trigger over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc"
	"github.com/vidresolve/vidresolve/fetch"
	"github.com/vidresolve/vidresolve/log"
	"github.com/vidresolve/vidresolve/rescan"
	"github.com/vidresolve/vidresolve/resolver"
)

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Host string
	Port int
	// Secret authorizes POST /internal/run-resolver. Empty disables the endpoint.
	Secret string
	// RescanInterval of zero disables the in-process rescan trigger.
	RescanInterval time.Duration
	// PageSweepInterval of zero disables the page cache sweeper.
	PageSweepInterval time.Duration
}

// Server is the HTTP front of the resolver.
type Server struct {
	service *resolver.Service
	proxy   http.Handler
	runner  *rescan.Runner
	fetcher *fetch.Fetcher
	opts    Options
	started time.Time
	engine  *gin.Engine
	server  *http.Server
}

// New creates a Server and registers its routes. fetcher may be nil.
func New(service *resolver.Service, proxy http.Handler, runner *rescan.Runner, fetcher *fetch.Fetcher, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		service: service,
		proxy:   proxy,
		runner:  runner,
		fetcher: fetcher,
		opts:    opts,
		started: time.Now(),
		engine:  gin.New(),
	}

	s.engine.Use(s.recoveryMiddleware())
	s.engine.Use(requestIDMiddleware())
	s.engine.Use(loggingMiddleware())
	s.engine.Use(corsMiddleware())

	s.engine.POST("/resolve", s.handleResolve)
	s.engine.POST("/api/resolver/resolve", s.handleResolve)
	s.engine.OPTIONS("/resolve", handlePreflight)
	s.engine.OPTIONS("/api/resolver/resolve", handlePreflight)

	stream := gin.WrapH(s.proxy)
	s.engine.GET("/stream", stream)
	s.engine.HEAD("/stream", stream)
	s.engine.OPTIONS("/stream", stream)

	s.engine.GET("/status", s.handleStatus)
	s.engine.GET("/health", s.handleStatus)

	s.engine.POST("/internal/run-resolver", s.handleRescan)

	s.engine.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "not_found", "no route for "+c.Request.URL.Path)
	})

	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// Run serves until ctx is done, then shuts down gracefully along with the background loops.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		// streams are long lived
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	loops, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg conc.WaitGroup
	if s.runner != nil && s.opts.RescanInterval > 0 {
		wg.Go(func() { s.runner.Every(loops, s.opts.RescanInterval) })
	}
	if s.fetcher != nil && s.opts.PageSweepInterval > 0 {
		wg.Go(func() { s.fetcher.RunSweeper(loops, s.opts.PageSweepInterval) })
	}

	errc := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": s.server.Addr}).Info("listening")
		errc <- s.server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		err = s.server.Shutdown(shutdownCtx)
		log.Info("server stopped")
	}

	cancel()
	wg.Wait()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
