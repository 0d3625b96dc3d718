package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/Text2APK/client/internal/app"
	"github.com/GriffinCanCode/Text2APK/client/internal/backend"
	"github.com/GriffinCanCode/Text2APK/client/internal/domain/catalog"
	"github.com/GriffinCanCode/Text2APK/client/internal/domain/generation"
	"github.com/GriffinCanCode/Text2APK/client/internal/domain/history"
)

const version = "1.0.0"

// HealthChecker reports upstream health.
type HealthChecker interface {
	Health(ctx context.Context) (*backend.Health, error)
	BreakerStatus() backend.BreakerStatus
}

// Handlers contains all HTTP handlers
type Handlers struct {
	sessions *generation.Controller
	history  *history.Cache
	catalog  *catalog.Loader
	upstream HealthChecker
	submit   time.Duration
}

// NewHandlers creates a handler set over the application components.
func NewHandlers(a *app.App) *Handlers {
	return &Handlers{
		sessions: a.Sessions,
		history:  a.History,
		catalog:  a.Catalog,
		upstream: a.Backend,
		submit:   a.Config.Backend.Timeout.Duration + a.Config.Channel.HandshakeTimeout.Duration,
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/session", h.GetSession)
	r.POST("/generate", h.Generate)
	r.POST("/reset", h.Reset)

	r.GET("/history", h.ListHistory)
	r.POST("/history/refresh", h.RefreshHistory)

	r.GET("/frameworks", h.ListFrameworks)
	r.GET("/categories", h.ListCategories)
}

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Prompt    string `json:"prompt"`
	Framework string `json:"framework"`
}

// Root identifies the service
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Text2APK generation client",
		"version": version,
	})
}

// Health reports local state and the backend's own health check.
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"session": h.sessions.Snapshot().Status,
		"breaker": h.upstream.BreakerStatus(),
	}

	upstream, err := h.upstream.Health(c.Request.Context())
	if err != nil {
		resp["backend"] = gin.H{"status": "unreachable", "error": err.Error()}
	} else {
		resp["backend"] = upstream
	}
	c.JSON(http.StatusOK, resp)
}

// GetSession returns the current session snapshot
func (h *Handlers) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessions.Snapshot())
}

// Generate submits a new generation, replacing the current session.
func (h *Handlers) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	// The session outlives this request; only the submit itself is bounded
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.submit)
	defer cancel()

	session, err := h.sessions.Submit(ctx, req.Prompt, req.Framework)

	var (
		verr *generation.ValidationError
		serr *generation.SubmissionError
	)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, session)
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, generation.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "session": session})
	case errors.As(err, &serr):
		c.JSON(http.StatusBadGateway, gin.H{"error": serr.Error(), "session": session})
	default:
		// progress channel could not be opened
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "session": session})
	}
}

// Reset discards the current session
func (h *Handlers) Reset(c *gin.Context) {
	h.sessions.Reset()
	c.JSON(http.StatusOK, h.sessions.Snapshot())
}

// ListHistory returns the cached history without contacting the backend.
func (h *Handlers) ListHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"generations": h.history.Records(),
		"limit":       h.history.Limit(),
		"loaded_at":   h.history.LoadedAt(),
	})
}

// RefreshHistory reloads the cache. A failed fetch keeps the old records
// and is reported as stale rather than as an error status.
func (h *Handlers) RefreshHistory(c *gin.Context) {
	limit := h.history.Limit()
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	resp := gin.H{"stale": false}
	if err := h.history.Load(c.Request.Context(), limit); err != nil {
		resp["stale"] = true
		resp["error"] = err.Error()
	}
	resp["generations"] = h.history.Records()
	resp["limit"] = h.history.Limit()
	c.JSON(http.StatusOK, resp)
}

// ListFrameworks returns auto-select followed by the loaded frameworks.
func (h *Handlers) ListFrameworks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"frameworks": h.catalog.Choices()})
}

// ListCategories returns the loaded categories
func (h *Handlers) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.catalog.Categories()})
}
