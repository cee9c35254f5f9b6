package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pricing/internal/demand"
	"pricing/internal/feedback"
	"pricing/internal/optimizer"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// upstreamError answers a failed store or model call. Busy keys and a missing
// model are retryable (503); anything else is a bad gateway.
func upstreamError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	meta := map[string]any{"retryable": true}
	switch {
	case errors.Is(err, optimizer.ErrKeyBusy), errors.Is(err, feedback.ErrKeyBusy):
		status = http.StatusServiceUnavailable
		meta["reason"] = "key_busy"
	case errors.Is(err, demand.ErrModelNotLoaded):
		status = http.StatusServiceUnavailable
		meta["reason"] = "model_not_loaded"
	}
	Error(c, status, err.Error(), meta)
}
