package server

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vidresolve/vidresolve/constant"
	"github.com/vidresolve/vidresolve/internal/cache"
	"github.com/vidresolve/vidresolve/log"
	"github.com/vidresolve/vidresolve/resolver"
)

type resolveRequest struct {
	URLs             []string `json:"urls"`
	PerLinkTimeoutMs int64    `json:"perLinkTimeoutMs"`
	Bypass           bool     `json:"bypass"`
}

func (s *Server) handleResolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", resolver.ErrNoURLs.Error())
		return
	}

	bypass := req.Bypass || c.Query("bypassCache") == "1" || c.Query("bypassCache") == "true"

	resp, err := s.service.Resolve(c.Request.Context(), resolver.Request{
		URLs:           req.URLs,
		PerLinkTimeout: time.Duration(req.PerLinkTimeoutMs) * time.Millisecond,
		Bypass:         bypass,
		UserAgent:      c.Request.UserAgent(),
	})
	if errors.Is(err, resolver.ErrNoURLs) {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	c.JSON(http.StatusOK, resp)
}

type memoryStats struct {
	AllocBytes uint64 `json:"allocBytes"`
	SysBytes   uint64 `json:"sysBytes"`
	HeapBytes  uint64 `json:"heapBytes"`
	Goroutines int    `json:"goroutines"`
}

type strategyStats struct {
	Count int      `json:"count"`
	Names []string `json:"names"`
}

type statusResponse struct {
	Status        string        `json:"status"`
	Version       string        `json:"version"`
	UptimeSeconds int64         `json:"uptimeSeconds"`
	Cache         cache.Sizes   `json:"cache"`
	PagesCached   int           `json:"pagesCached"`
	Strategies    strategyStats `json:"strategies"`
	Memory        memoryStats   `json:"memory"`
}

func (s *Server) handleStatus(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	names := s.service.Orchestrator().Registry().Names()
	resp := statusResponse{
		Status:        "ok",
		Version:       constant.Version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Strategies:    strategyStats{Count: len(names), Names: names},
		Memory: memoryStats{
			AllocBytes: mem.Alloc,
			SysBytes:   mem.Sys,
			HeapBytes:  mem.HeapAlloc,
			Goroutines: runtime.NumGoroutine(),
		},
	}
	if rc := s.service.Cache(); rc != nil {
		resp.Cache = rc.Size(c.Request.Context())
	}
	if s.fetcher != nil {
		resp.PagesCached = s.fetcher.CachedPages()
	}

	c.JSON(http.StatusOK, resp)
}

type rescanRequest struct {
	URLs []string `json:"urls"`
}

func (s *Server) handleRescan(c *gin.Context) {
	if s.opts.Secret == "" || s.runner == nil {
		abortWithError(c, http.StatusForbidden, "forbidden", "rescans are not enabled")
		return
	}

	given := c.GetHeader("x-cron-secret")
	if subtle.ConstantTimeCompare([]byte(given), []byte(s.opts.Secret)) != 1 {
		abortWithError(c, http.StatusUnauthorized, "unauthorized", "invalid cron secret")
		return
	}

	var req rescanRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	report, err := s.runner.Run(c.Request.Context(), req.URLs)
	if err != nil {
		log.WithFields(log.Fields{"request_id": c.GetString(ctxRequestID)}).WithError(err).Warn("rescan failed")
		abortWithError(c, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	c.JSON(http.StatusOK, report)
}
