package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gamesup/gamesup/internal/engine"
	"github.com/gamesup/gamesup/internal/metrics"
	"github.com/gamesup/gamesup/internal/proc"
)

// Router provides embeddable HTTP handlers for the supervision engine.
// Endpoints:
//
//	POST {basePath}/launch       body: launchReq JSON
//	POST {basePath}/kill         query: id=...&force=true
//	GET  {basePath}/running      query: id=...
//	GET  {basePath}/status       query: id=... (single) or none (all)
//	GET  {basePath}/metrics      Prometheus exposition
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	eng      *engine.Engine
	basePath string
}

// NewRouter constructs a Router with configurable basePath.
// Example basePath: "/api" results in /api/launch, /api/kill, /api/status.
func NewRouter(eng *engine.Engine, basePath string) *Router {
	return &Router{eng: eng, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server or mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/launch", r.handleLaunch)
	group.POST("/kill", r.handleKill)
	group.GET("/running", r.handleRunning)
	group.GET("/status", r.handleStatus)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router. Call
// Close or Shutdown on the returned server to stop it.
func NewServer(addr, basePath string, eng *engine.Engine) (*http.Server, error) {
	r := NewRouter(eng, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type launchReq struct {
	ID          string   `json:"id"`
	Executable  string   `json:"executable"`
	Args        []string `json:"args"`
	Env         []string `json:"env"`
	WorkDir     string   `json:"work_dir"`
	Elevated    bool     `json:"elevated"`
	Capture     bool     `json:"capture"`
	GraceWindow string   `json:"grace_window"`
}

func (r *Router) handleLaunch(c *gin.Context) {
	var req launchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.ID == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "id required"})
		return
	}
	if !isSafeAbsPath(req.WorkDir) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid work_dir: must be absolute path without traversal"})
		return
	}
	var grace time.Duration
	if req.GraceWindow != "" {
		d, err := time.ParseDuration(req.GraceWindow)
		if err != nil {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid grace_window: " + err.Error()})
			return
		}
		grace = d
	}
	snap, err := r.eng.Launch(c.Request.Context(), engine.LaunchSpec{
		ID:          req.ID,
		Executable:  req.Executable,
		Args:        req.Args,
		Env:         req.Env,
		WorkDir:     req.WorkDir,
		Elevated:    req.Elevated,
		Capture:     req.Capture,
		GraceWindow: grace,
	})
	if err != nil {
		writeJSON(c, statusFor(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, snap)
}

func (r *Router) handleKill(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "id query param required"})
		return
	}
	force := c.Query("force") == "true" || c.Query("force") == "1"
	if !r.eng.Kill(id, force) {
		writeJSON(c, http.StatusNotFound, errorResp{Error: proc.ErrUnknownProcess.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleRunning(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "id query param required"})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"id": id, "running": r.eng.IsRunning(id)})
}

func (r *Router) handleStatus(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		writeJSON(c, http.StatusOK, r.eng.AllSnapshots())
		return
	}
	snap := r.eng.Snapshot(id)
	if snap == nil {
		writeJSON(c, http.StatusNotFound, errorResp{Error: proc.ErrUnknownProcess.Error()})
		return
	}
	writeJSON(c, http.StatusOK, snap)
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	var ve *proc.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, proc.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, proc.ErrConcurrencyLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, proc.ErrUnknownProcess):
		return http.StatusNotFound
	case errors.Is(err, proc.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.Is(err, proc.ErrElevationCancelled), errors.Is(err, proc.ErrElevationFailed):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
