package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
)

// maxAppendEntries bounds one AppendLogs batch
const maxAppendEntries = 1000

// AppendLogsRequest is a batch of entries produced outside the server,
// such as a run in the browser
type AppendLogsRequest struct {
	Source  string             `json:"source"`
	Entries []sandbox.LogEntry `json:"entries"`
}

// GetState returns the session's editor state
func (h *Handlers) GetState(c *gin.Context) {
	if !h.stateEnabled(c) {
		return
	}

	st, err := h.deps.State.Get(c.Request.Context(), c.Param("session"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	etag := fmt.Sprintf("%q", st.Version+"-"+fmt.Sprint(len(st.Logs)))
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, st)
}

// PutState replaces the session's code
func (h *Handlers) PutState(c *gin.Context) {
	if !h.stateEnabled(c) {
		return
	}

	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session := c.Param("session")
	if err := h.deps.State.SetCode(c.Request.Context(), session, req.Code); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

// DeleteState forgets the session
func (h *Handlers) DeleteState(c *gin.Context) {
	if !h.stateEnabled(c) {
		return
	}

	session := c.Param("session")
	if err := h.deps.State.Delete(c.Request.Context(), session); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

// ClearLogs empties the session's log list
func (h *Handlers) ClearLogs(c *gin.Context) {
	if !h.stateEnabled(c) {
		return
	}

	session := c.Param("session")
	if err := h.deps.State.ClearLogs(c.Request.Context(), session); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

// AppendLogs stores a batch of entries in the session's log list. Entries
// of unknown type are skipped and counted.
func (h *Handlers) AppendLogs(c *gin.Context) {
	if !h.stateEnabled(c) {
		return
	}

	var req AppendLogsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log request format"})
		return
	}
	if req.Source != "" && req.Source != "ui" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log source"})
		return
	}
	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No log entries provided"})
		return
	}
	if len(req.Entries) > maxAppendEntries {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("At most %d entries per request", maxAppendEntries)})
		return
	}

	accepted := make([]sandbox.LogEntry, 0, len(req.Entries))
	for _, entry := range req.Entries {
		if entry.Kind != sandbox.KindLog && entry.Kind != sandbox.KindError {
			h.logger.Debug("Skipping log entry of unknown type",
				zap.String("type", string(entry.Kind)),
				zap.String("source", "ui"),
			)
			continue
		}
		accepted = append(accepted, entry)
	}

	session := c.Param("session")
	if len(accepted) > 0 {
		if err := h.deps.State.Append(c.Request.Context(), session, accepted); err != nil {
			h.respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"entries_received":  len(req.Entries),
		"entries_processed": len(accepted),
	})
}

func (h *Handlers) stateEnabled(c *gin.Context) bool {
	if h.deps.State == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "state store disabled"})
		return false
	}
	return true
}
