package handler

import (
	"context"
	"net/http"

	"userapi/internal/middleware"
	"userapi/internal/service"
	"userapi/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Pinger reports database health
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps are the collaborators the HTTP surface is built from
type RouterDeps struct {
	UserService service.UserService
	JWTUtil     *utils.JWTUtil
	DB          Pinger
	Log         logrus.FieldLogger
	Registry    *prometheus.Registry
}

// NewRouter wires middleware and routes
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(d.Log))
	if d.Registry != nil {
		router.Use(middleware.NewMetrics(d.Registry).Handler())
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	jwtAuthMW := middleware.JWTAuthMiddleware(middleware.NewGate(d.JWTUtil), d.Log)

	NewAuthHandler(d.UserService, d.Log).RegisterAuthRoutes(&router.RouterGroup)
	NewUserHandler(d.UserService, d.Log).RegisterUserRoutes(&router.RouterGroup, jwtAuthMW)

	router.GET("/health", func(c *gin.Context) {
		if d.DB == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		if err := d.DB.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
	})

	return router
}
