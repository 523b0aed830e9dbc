package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
	"github.com/GriffinCanCode/Playground/backend/internal/shared/utils"
)

// CodeRequest carries program text
type CodeRequest struct {
	Code string `json:"code"`
}

// RunRequest asks for one run, optionally persisted to a session
type RunRequest struct {
	Code    string `json:"code"`
	Session string `json:"session,omitempty"`
}

// RunResponse is the collected output of a run
type RunResponse struct {
	RunID      string             `json:"run_id"`
	Entries    []sandbox.LogEntry `json:"entries"`
	State      string             `json:"state"`
	Expired    bool               `json:"expired,omitempty"`
	DurationMs int64              `json:"duration_ms"`
	Saved      bool               `json:"saved,omitempty"`
}

// Transpile lowers TypeScript without running it
func (h *Handlers) Transpile(c *gin.Context) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := utils.ValidateCode(req.Code); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	result := h.deps.Transpiler.Transpile(req.Code)
	if h.deps.Metrics != nil {
		h.deps.Metrics.RecordTranspile(result.Success, time.Since(start))
	}

	c.JSON(http.StatusOK, result)
}

// Run executes code and answers once the run is over or the budget expires
func (h *Handlers) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := utils.ValidateCode(req.Code); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Session != "" {
		if err := utils.ValidateID(req.Session, "session", true); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	h.active.Add(1)
	defer h.active.Add(-1)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.deps.RunBudget)
	defer cancel()

	var out *sandbox.Outcome
	err := h.trace(ctx, "sandbox.run", func(ctx context.Context, span *tracing.Span) error {
		var err error
		out, err = sandbox.Collect(ctx, h.deps.Sandbox, req.Code, h.RunnerOptions()...)
		if out != nil {
			span.SetTag("run_id", out.RunID.String())
			span.SetTag("state", out.State)
		}
		return err
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := RunResponse{
		RunID:      out.RunID.String(),
		Entries:    out.Entries,
		State:      out.State,
		Expired:    out.Expired,
		DurationMs: out.Duration.Milliseconds(),
	}

	if req.Session != "" && h.deps.State != nil {
		// the run budget may be spent; persistence gets its own
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 5*time.Second)
		defer cancel()
		if err := h.deps.State.Record(saveCtx, req.Session, req.Code, out.Entries); err != nil {
			h.logger.Warn("Failed to persist run",
				zap.String("session", req.Session),
				zap.String("run_id", resp.RunID),
				zap.Error(err),
			)
		} else {
			resp.Saved = true
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) trace(ctx context.Context, name string, fn func(ctx context.Context, span *tracing.Span) error) error {
	if h.deps.Tracer == nil {
		return fn(ctx, &tracing.Span{Tags: map[string]string{}})
	}
	return h.deps.Tracer.Trace(ctx, name, fn)
}
