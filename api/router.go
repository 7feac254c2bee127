package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tendercrawl/api/handler"
	"github.com/use-agent/tendercrawl/api/middleware"
	"github.com/use-agent/tendercrawl/config"
	"github.com/use-agent/tendercrawl/crawler"
)

// NewRouter creates the status server engine.
//
// Middleware chain:
//
//	Global:   Recovery → Logger
//	Progress: Auth (if keys are configured)
//
// Health endpoint stays outside auth so monitoring probes always work.
func NewRouter(progress *crawler.Progress, cfg config.ServerConfig, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(progress, startTime))

	protected := v1.Group("")
	protected.Use(middleware.Auth(cfg.APIKeys))
	protected.GET("/progress", handler.Progress(progress))

	return r
}
