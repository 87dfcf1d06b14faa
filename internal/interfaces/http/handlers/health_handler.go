package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openprocure/tenderisk/internal/infrastructure/anomaly"
	"github.com/openprocure/tenderisk/internal/infrastructure/workingset"
)

// HealthHandler provides liveness and readiness endpoints.
type HealthHandler struct {
	store   *workingset.Store
	bundles *anomaly.BundleProvider
	version string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store *workingset.Store, bundles *anomaly.BundleProvider, version string) *HealthHandler {
	return &HealthHandler{store: store, bundles: bundles, version: version}
}

// LivenessCheck reports the process is up.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   h.version,
		"timestamp": time.Now().UTC(),
	})
}

// ReadinessCheck reports serving state. The service has no hard external
// dependencies; the model check is informational since scoring falls back to
// an on-demand fit.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	modelStatus := "on_demand"
	if h.bundles.Current() != nil {
		modelStatus = "pretrained"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"version":   h.version,
		"timestamp": time.Now().UTC(),
		"checks": gin.H{
			"model":       modelStatus,
			"working_set": h.store.Count(),
		},
	})
}
