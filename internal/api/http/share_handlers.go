package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/Playground/backend/internal/domain/share"
	"github.com/GriffinCanCode/Playground/backend/internal/shared/utils"
)

// CreateShare encodes code into a share link
func (h *Handlers) CreateShare(c *gin.Context) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := utils.ValidateCode(req.Code); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	param, err := h.deps.Share.Encode(req.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	link, err := h.deps.Share.URL(param)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"param": param,
		"url":   link,
	})
}

// ResolveShare decodes a share param; undecodable params yield empty code
func (h *Handlers) ResolveShare(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code": h.deps.Share.Decode(c.Query(share.QueryParam)),
	})
}
