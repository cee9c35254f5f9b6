package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pricing/internal/settings"
)

type SwitchesHandler struct {
	Switches *settings.Switches
}

func (h *SwitchesHandler) Register(r *gin.Engine) {
	g := r.Group("/api/system-settings")
	g.GET("/switches", h.list)
	g.GET("/switches/:name", h.get)
	g.PUT("/switches/:name", h.put)
}

// @Summary List job switches
// @Tags settings
// @Success 200 {array} settings.Switch
// @Router /api/system-settings/switches [get]
func (h *SwitchesHandler) list(c *gin.Context) {
	if h.Switches == nil {
		Error(c, http.StatusInternalServerError, "settings unavailable", nil)
		return
	}
	items, err := h.Switches.List(c.Request.Context())
	if err != nil {
		upstreamError(c, err)
		return
	}
	Ok(c, items, nil)
}

// @Summary Get a job switch
// @Tags settings
// @Param name path string true "switch name"
// @Success 200 {object} settings.Switch
// @Failure 404 {object} apiResponse
// @Router /api/system-settings/switches/{name} [get]
func (h *SwitchesHandler) get(c *gin.Context) {
	if h.Switches == nil {
		Error(c, http.StatusInternalServerError, "settings unavailable", nil)
		return
	}
	key := settings.KeyFor(c.Param("name"))
	if !settings.Known(key) {
		Error(c, http.StatusNotFound, "unknown switch", nil)
		return
	}
	enabled := h.Switches.IsEnabled(c.Request.Context(), key, true)
	Ok(c, settings.Switch{Name: strings.TrimPrefix(key, settings.Prefix), Key: key, Enabled: enabled}, nil)
}

type putSwitchRequest struct {
	Enabled *bool `json:"enabled"`
}

// @Summary Turn a job switch on or off
// @Tags settings
// @Accept json
// @Param name path string true "switch name"
// @Param body body putSwitchRequest true "state"
// @Success 200 {object} settings.Switch
// @Failure 400 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/system-settings/switches/{name} [put]
func (h *SwitchesHandler) put(c *gin.Context) {
	if h.Switches == nil {
		Error(c, http.StatusInternalServerError, "settings unavailable", nil)
		return
	}
	key := settings.KeyFor(c.Param("name"))
	if !settings.Known(key) {
		Error(c, http.StatusNotFound, "unknown switch", nil)
		return
	}
	var req putSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Switches.SetEnabled(c.Request.Context(), key, *req.Enabled)
	if err != nil {
		upstreamError(c, err)
		return
	}
	Ok(c, item, nil)
}
