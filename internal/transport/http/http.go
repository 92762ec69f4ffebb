package http

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dwarvesf/chain-scanner/internal/handler"
	"github.com/dwarvesf/chain-scanner/internal/monitoring"
	"github.com/dwarvesf/chain-scanner/internal/utils/config"
)

func setupCORS(r *gin.Engine, cfg *config.AppConfig) {
	if cfg.ApiServer.AllowedOrigins == "" {
		return
	}
	corsOrigins := strings.Split(cfg.ApiServer.AllowedOrigins, ";")
	r.Use(cors.New(
		cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET", "OPTIONS", "HEAD"},
			AllowHeaders: []string{
				"Origin", "Host", "Content-Type", "Content-Length", "Accept-Encoding", "Accept-Language", "Accept",
				"Authorization", "X-Requested-With",
			},
		},
	))
}

// NewHttpServer builds the operational listener: health checks and the
// prometheus scrape endpoint.
func NewHttpServer(appConfig *config.AppConfig, h *handler.Handler, registry *prometheus.Registry, httpMetrics *monitoring.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.LoggerWithWriter(gin.DefaultWriter, "/healthz", "/metrics"),
		gin.Recovery(),
	)
	if httpMetrics != nil {
		r.Use(monitoring.HTTPMetricsMiddleware(httpMetrics))
	}
	setupCORS(r, appConfig)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})))

	loadV1Routes(r, h)

	return r
}
