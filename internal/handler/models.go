package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pricing/internal/demand"
	"pricing/internal/models"
)

type ModelRegistry interface {
	LatestModelArtifact(ctx context.Context, name string) (*models.ModelArtifact, error)
	CountElasticity(ctx context.Context) (int64, error)
}

// ModelsHandler reports and reloads the serving demand model. Serving is nil
// when predictions go to a remote service.
type ModelsHandler struct {
	Repo          ModelRegistry
	PredictorKind string
	Serving       *demand.ModelPredictor
	Files         *demand.FileStore
	Logger        *zap.Logger
}

func (h *ModelsHandler) Register(r *gin.Engine) {
	r.GET("/models/status", h.status)
	r.POST("/models/reload", h.reload)
}

type demandModelStatus struct {
	Kind   string                `json:"kind"`
	Loaded bool                  `json:"loaded"`
	Path   string                `json:"path,omitempty"`
	Latest *models.ModelArtifact `json:"latest_artifact,omitempty"`
}

type modelsStatusResponse struct {
	DemandModel     demandModelStatus `json:"demand_model"`
	ElasticityCount int64             `json:"elasticity_coefficients"`
}

// @Summary Model status
// @Tags models
// @Success 200 {object} modelsStatusResponse
// @Router /models/status [get]
func (h *ModelsHandler) status(c *gin.Context) {
	ctx := c.Request.Context()
	out := modelsStatusResponse{DemandModel: demandModelStatus{Kind: h.PredictorKind}}
	switch {
	case h.Serving != nil:
		out.DemandModel.Loaded = h.Serving.Loaded()
	case h.PredictorKind == "remote":
		out.DemandModel.Loaded = true
	}
	if h.Files != nil {
		out.DemandModel.Path = h.Files.Path
	}
	if h.Repo != nil {
		latest, err := h.Repo.LatestModelArtifact(ctx, demand.ArtifactName)
		if err != nil {
			upstreamError(c, err)
			return
		}
		out.DemandModel.Latest = latest
		count, err := h.Repo.CountElasticity(ctx)
		if err != nil {
			upstreamError(c, err)
			return
		}
		out.ElasticityCount = count
	}
	Ok(c, out, nil)
}

// @Summary Reload the demand model artifact
// @Tags models
// @Success 200 {object} map[string]any
// @Failure 409 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Router /models/reload [post]
func (h *ModelsHandler) reload(c *gin.Context) {
	if h.Serving == nil || h.Files == nil {
		Error(c, http.StatusConflict, "demand model is not served locally", nil)
		return
	}
	m, err := h.Files.Load()
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("demand model reload failed", zap.String("path", h.Files.Path), zap.Error(err))
		}
		upstreamError(c, err)
		return
	}
	h.Serving.Swap(m)
	if h.Logger != nil {
		h.Logger.Info("demand model reloaded", zap.String("path", h.Files.Path), zap.Int("trees", len(m.Trees)))
	}
	Ok(c, map[string]any{"loaded": true, "path": h.Files.Path, "trees": len(m.Trees)}, nil)
}
