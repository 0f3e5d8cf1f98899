package api

import (
	"github.com/gin-gonic/gin"

	"github.com/agrobench/agrobench/internal/config"
	"github.com/agrobench/agrobench/internal/metrics"
)

// NewRouter builds the gin engine with middleware and every route
func NewRouter(cfg config.ServerConfig, h *Handler) *gin.Engine {
	useStrictBinding()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(CORSMiddleware(cfg.CORSOrigin))
	router.Use(RequestLogger())
	router.Use(MetricsMiddleware())

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	api.Use(RateLimitMiddleware(cfg.RateLimitPerMinute, cfg.RateLimitBurst))
	{
		api.GET("/tables", h.ListTables)
		api.GET("/tables/:name", h.DescribeTable)
		api.POST("/query", h.Query)
		api.POST("/query/median", h.Median)
		api.POST("/query/frequency", h.Frequency)
		api.POST("/prediction", h.Predict)
	}

	return router
}
