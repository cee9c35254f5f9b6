package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pricing/internal/models"
	"pricing/internal/repository"
)

type MetricReader interface {
	ListMetrics(ctx context.Context, params repository.ListMetricsParams) ([]models.MonitoringMetric, error)
	CountMetrics(ctx context.Context, params repository.ListMetricsParams) (int64, error)
}

type MonitoringHandler struct {
	Repo MetricReader
}

func (h *MonitoringHandler) Register(r *gin.Engine) {
	r.GET("/monitoring/metrics", h.listMetrics)
}

var metricOrderColumns = map[string]string{
	"date":         "date",
	"created_at":   "created_at",
	"metric_name":  "metric_name",
	"metric_value": "metric_value",
}

// @Summary List monitoring metrics
// @Tags monitoring
// @Param date query string false "YYYY-MM-DD"
// @Param model_type query string false "demand | elasticity | coverage"
// @Param metric_name query string false "metric name"
// @Param sku query string false "sku"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {array} models.MonitoringMetric
// @Router /monitoring/metrics [get]
func (h *MonitoringHandler) listMetrics(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	date, ok := dateQuery(c, "date")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid date", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	orderBy := metricOrderColumns[strings.TrimSpace(c.Query("order_by"))]
	if orderBy == "" {
		orderBy = "created_at"
	}
	params := repository.ListMetricsParams{
		Limit:      limit,
		Offset:     offset,
		Date:       date,
		ModelType:  stringQueryPtr(c, "model_type"),
		MetricName: stringQueryPtr(c, "metric_name"),
		SKU:        stringQueryPtr(c, "sku"),
		OrderBy:    orderBy,
		Asc:        boolPtr(strings.EqualFold(c.Query("order"), "asc")),
	}
	items, err := h.Repo.ListMetrics(c.Request.Context(), params)
	if err != nil {
		upstreamError(c, err)
		return
	}
	total, err := h.Repo.CountMetrics(c.Request.Context(), params)
	if err != nil {
		upstreamError(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}
