package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mtsatou/mte-core/internal/usecase"
)

// HealthHandler exposes liveness information.
type HealthHandler struct {
	cache     *usecase.CacheService
	startedAt time.Time
}

// NewHealthHandler builds a new health handler instance.
func NewHealthHandler(cache *usecase.CacheService) *HealthHandler {
	return &HealthHandler{
		cache:     cache,
		startedAt: time.Now().UTC(),
	}
}

// Status reports liveness. The cache tier is optional, so a disconnected
// store degrades the report without failing it.
func (h *HealthHandler) Status(c *gin.Context) {
	cacheState := "unavailable"
	if h.cache != nil && h.cache.IsAvailable() {
		cacheState = "ok"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		StartedAt: h.startedAt,
		Cache:     cacheState,
	})
}
