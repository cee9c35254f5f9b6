package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pricing/internal/auth"
	"pricing/internal/feedback"
	"pricing/internal/optimizer"
)

type Suggester interface {
	Suggest(ctx context.Context, sku, vendorID string) (*optimizer.Suggestion, optimizer.SkipReason, error)
}

type FeedbackRecorder interface {
	Record(ctx context.Context, fb feedback.Feedback) (*feedback.Outcome, error)
	Summary(ctx context.Context) (map[string]int64, error)
}

type PricingHandler struct {
	Optimizer       Suggester
	Feedback        FeedbackRecorder
	DefaultVendorID string
	Logger          *zap.Logger
}

func (h *PricingHandler) Register(r *gin.Engine) {
	r.GET("/price-suggestions", h.suggest)
	r.POST("/price-feedback", h.recordFeedback)
	r.GET("/price-feedback/summary", h.feedbackSummary)
}

type suggestionResponse struct {
	SuggestionID    string   `json:"suggestion_id"`
	SKU             string   `json:"sku"`
	VendorID        string   `json:"vendor_id"`
	CurrentPrice    float64  `json:"current_price"`
	SuggestedPrice  float64  `json:"suggested_price"`
	ExpectedRevenue float64  `json:"expected_revenue"`
	ExpectedProfit  float64  `json:"expected_profit"`
	Elasticity      float64  `json:"elasticity"`
	Confidence      float64  `json:"confidence"`
	Reason          string   `json:"reason"`
	Actions         []string `json:"actions"`
}

// @Summary Suggest a price
// @Tags pricing
// @Param sku query string true "sku"
// @Param vendor_id query string false "vendor id"
// @Success 200 {object} suggestionResponse
// @Failure 400 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Router /price-suggestions [get]
func (h *PricingHandler) suggest(c *gin.Context) {
	if h.Optimizer == nil {
		Error(c, http.StatusInternalServerError, "optimizer unavailable", nil)
		return
	}
	sku := strings.TrimSpace(c.Query("sku"))
	if sku == "" {
		Error(c, http.StatusBadRequest, "sku is required", nil)
		return
	}
	vendorID := strings.TrimSpace(c.Query("vendor_id"))
	if vendorID == "" {
		vendorID = h.DefaultVendorID
	}
	if !auth.VendorAllowed(c, vendorID) {
		Error(c, http.StatusForbidden, "vendor not allowed", nil)
		return
	}

	item, skip, err := h.Optimizer.Suggest(c.Request.Context(), sku, vendorID)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("price suggestion failed", zap.String("sku", sku), zap.String("vendor_id", vendorID), zap.Error(err))
		}
		upstreamError(c, err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "No suggestion available", map[string]any{"reason": string(skip)})
		return
	}
	Ok(c, suggestionResponse{
		SuggestionID:    item.PublicID,
		SKU:             item.SKU,
		VendorID:        item.VendorID,
		CurrentPrice:    item.CurrentPrice,
		SuggestedPrice:  item.OptimalPrice,
		ExpectedRevenue: item.ExpectedRevenue,
		ExpectedProfit:  item.ExpectedProfit,
		Elasticity:      item.Elasticity,
		Confidence:      item.Confidence,
		Reason:          item.Reason,
		Actions:         feedback.Actions,
	}, nil)
}

// @Summary Record price feedback
// @Tags pricing
// @Accept json
// @Param body body feedback.Payload true "feedback"
// @Success 200 {object} feedback.Outcome
// @Failure 400 {object} apiResponse
// @Failure 403 {object} apiResponse
// @Router /price-feedback [post]
func (h *PricingHandler) recordFeedback(c *gin.Context) {
	if h.Feedback == nil {
		Error(c, http.StatusInternalServerError, "feedback unavailable", nil)
		return
	}
	var payload feedback.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	fb, err := feedback.Validate(payload)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if !auth.VendorAllowed(c, fb.VendorID) {
		Error(c, http.StatusForbidden, "vendor not allowed", nil)
		return
	}
	out, err := h.Feedback.Record(c.Request.Context(), fb)
	if err != nil {
		if errors.Is(err, feedback.ErrInvalidAction) {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		if h.Logger != nil {
			h.Logger.Warn("feedback record failed", zap.String("sku", fb.SKU), zap.String("vendor_id", fb.VendorID), zap.Error(err))
		}
		upstreamError(c, err)
		return
	}
	Ok(c, out, nil)
}

// @Summary Feedback counts by action
// @Tags pricing
// @Success 200 {object} map[string]int64
// @Router /price-feedback/summary [get]
func (h *PricingHandler) feedbackSummary(c *gin.Context) {
	if h.Feedback == nil {
		Error(c, http.StatusInternalServerError, "feedback unavailable", nil)
		return
	}
	counts, err := h.Feedback.Summary(c.Request.Context())
	if err != nil {
		upstreamError(c, err)
		return
	}
	Ok(c, counts, nil)
}
