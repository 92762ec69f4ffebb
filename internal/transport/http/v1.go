package http

import (
	"github.com/gin-gonic/gin"

	"github.com/dwarvesf/chain-scanner/internal/handler"
)

func loadV1Routes(r *gin.Engine, h *handler.Handler) {
	r.GET("/healthz", h.HealthHandler.Basic)

	v1 := r.Group("/api/v1")

	health := v1.Group("/health")
	{
		health.GET("/checkpoints", h.HealthHandler.Checkpoints)
		health.GET("/providers", h.HealthHandler.Providers)
		health.GET("/jobs", h.HealthHandler.Jobs)
	}
}
