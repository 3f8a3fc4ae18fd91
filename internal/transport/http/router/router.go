package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bravo68web/gitolfs/internal/application/dto"
	"github.com/bravo68web/gitolfs/internal/transport/http/handler"
	"github.com/bravo68web/gitolfs/internal/transport/http/middleware"
)

// Handlers bundles everything the router wires up
type Handlers struct {
	Auth     *middleware.AuthMiddleware
	Batch    *handler.BatchHandler
	Transfer *handler.TransferHandler
	Health   *handler.HealthHandler
}

// Register attaches middleware and routes to the engine
func Register(engine *gin.Engine, h Handlers) {
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.LoggerMiddleware())
	engine.Use(middleware.RecoveryMiddleware())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Authorization", "Content-Type", "Accept"}
	engine.Use(cors.New(corsCfg))

	engine.HandleMethodNotAllowed = true
	engine.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, dto.ErrorResponse{
			Message:   "method not allowed",
			RequestID: middleware.GetRequestID(c),
		})
	})
	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, dto.ErrorResponse{
			Message:   "not found",
			RequestID: middleware.GetRequestID(c),
		})
	})

	engine.GET("/healthz", h.Health.Healthz)
	engine.GET("/readyz", h.Health.Readyz)

	objects := engine.Group("/:owner/:repo/info/lfs/objects")
	objects.Use(h.Auth.RequireToken())
	{
		objects.POST("/batch", h.Batch.Batch)
		objects.PUT("/upload", h.Transfer.Upload)
		objects.GET("/download", h.Transfer.Download)
		objects.POST("/verify", h.Transfer.Verify)
	}
}
