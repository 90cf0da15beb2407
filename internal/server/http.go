package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sparklabs/spark-backend/internal/app"
	"github.com/sparklabs/spark-backend/internal/logger"
)

// NewEngine builds the gin engine and registers all provided services.
func NewEngine(appCtx *app.AppContext, registrars ...Registrar) *gin.Engine {
	if appCtx.Cfg.App.ENV != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	e := gin.New()
	e.Use(gin.Recovery())
	e.Use(requestLogger())
	e.Use(corsHeaders())

	e.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"app": "Spark Dating API", "status": "running"})
	})
	e.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	for _, r := range registrars {
		r.Register(e)
	}

	return e
}

// Start boots the HTTP server on the configured address.
func Start(appCtx *app.AppContext, registrars ...Registrar) error {
	e := NewEngine(appCtx, registrars...)
	addr := fmt.Sprintf("%s:%s", appCtx.Cfg.HTTP.Host, appCtx.Cfg.HTTP.Port)
	return e.Run(addr)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.L().Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func corsHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
