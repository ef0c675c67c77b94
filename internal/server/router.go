package server

import (
	"github.com/gin-gonic/gin"
)

// Dependencies holds what Register wires into the routes.
type Dependencies struct {
	Handler *Handler
}

// Register mounts the health check and the /api/v1 routes on r.
func Register(r *gin.Engine, d Dependencies) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/compress", d.Handler.Compress)
		v1.POST("/decompress", d.Handler.Decompress)
	}
}
