package http

import (
	"github.com/gin-gonic/gin"
)

// RouterConfig carries the controllers the router mounts.
type RouterConfig struct {
	Imports *ImportsController
	Health  *HealthController
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/health", cfg.Health.Status)

	api := router.Group("/api")
	{
		api.POST("/imports", cfg.Imports.Create)
		api.GET("/imports/:id", cfg.Imports.Get)
		api.GET("/imports/:id/items", cfg.Imports.ListItems)
		api.POST("/imports/:id/retry", cfg.Imports.Retry)
	}

	return router
}
