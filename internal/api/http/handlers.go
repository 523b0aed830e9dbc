package http

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Playground/backend/internal/domain/share"
	"github.com/GriffinCanCode/Playground/backend/internal/domain/state"
	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
	"github.com/GriffinCanCode/Playground/backend/internal/transpile"
)

// Version is reported by the root endpoint
const Version = "0.3.0"

// DefaultRunBudget bounds how long POST /run waits for a program
const DefaultRunBudget = 15 * time.Second

// Deps are the collaborators shared by all handlers
type Deps struct {
	Sandbox    sandbox.Config
	Pool       *sandbox.Pool
	Transpiler *transpile.Transpiler
	State      *state.Manager
	Share      *share.Codec
	Metrics    *monitoring.Metrics
	Tracer     *tracing.Tracer
	Logger     *zap.Logger
	RunBudget  time.Duration
}

// Handlers contains all HTTP handlers
type Handlers struct {
	deps    Deps
	logger  *zap.Logger
	started time.Time
	active  atomic.Int64
}

// NewHandlers creates a new handler set
func NewHandlers(deps Deps) *Handlers {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Transpiler == nil {
		deps.Transpiler = transpile.MustNew(transpile.DefaultOptions())
	}
	if deps.RunBudget <= 0 {
		deps.RunBudget = DefaultRunBudget
	}
	return &Handlers{
		deps:    deps,
		logger:  deps.Logger,
		started: time.Now(),
	}
}

// Routes registers every playground endpoint on r
func (h *Handlers) Routes(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/metrics/json", h.MetricsSnapshot)

	r.POST("/transpile", h.Transpile)
	r.POST("/run", h.Run)

	r.POST("/share", h.CreateShare)
	r.GET("/share", h.ResolveShare)

	r.GET("/state/:session", h.GetState)
	r.PUT("/state/:session", h.PutState)
	r.DELETE("/state/:session", h.DeleteState)
	r.POST("/state/:session/logs", h.AppendLogs)
	r.DELETE("/state/:session/logs", h.ClearLogs)
}

// RunnerOptions returns the options every runner built for a request uses.
// Each runner gets its own bus.
func (h *Handlers) RunnerOptions() []sandbox.Option {
	opts := []sandbox.Option{
		sandbox.WithTranspiler(h.deps.Transpiler),
		sandbox.WithLogger(h.logger.Named("sandbox")),
	}
	if h.deps.Pool != nil {
		opts = append(opts, sandbox.WithPool(h.deps.Pool))
	}
	if h.deps.Metrics != nil {
		opts = append(opts, sandbox.WithObserver(h.deps.Metrics))
	}
	return opts
}

// Root handles service info
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Playground Service (Go)",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":          "healthy",
		"uptime":          time.Since(h.started).Round(time.Second).String(),
		"active_runs":     h.active.Load(),
	}
	if h.deps.Pool != nil {
		resp["pool"] = h.deps.Pool.Stats()
	}
	if h.deps.State != nil {
		breaker := h.deps.State.BreakerState()
		resp["store"] = gin.H{"breaker": breaker.String()}
		if breaker == resilience.StateOpen {
			resp["status"] = "degraded"
		}
	}
	c.JSON(http.StatusOK, resp)
}

// MetricsSnapshot returns a JSON summary of the prometheus metrics
func (h *Handlers) MetricsSnapshot(c *gin.Context) {
	if h.deps.Metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics disabled"})
		return
	}

	resp := gin.H{
		"timestamp": time.Now(),
		"summary":   h.deps.Metrics.Snapshot(),
	}
	if h.deps.Pool != nil {
		resp["pool"] = h.deps.Pool.Stats()
	}
	c.JSON(http.StatusOK, resp)
}

// respondError maps domain errors onto status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, state.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, share.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}
