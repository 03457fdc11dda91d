package handler

import (
	"errors"
	"net/http"

	"userapi/internal/middleware"
	"userapi/internal/model"
	"userapi/internal/service"
	"userapi/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	service service.UserService
	log     logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(s service.UserService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{service: s, log: log}
}

// Login responds with the signed token as a bare JSON string
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if errs := validator.ValidateLogin(req); len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		entry := h.log.WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.RequestIDKey),
			"username":   req.Username,
		})
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrUserNotFound.Error()})
		case errors.Is(err, service.ErrInvalidCredentials):
			entry.Info("login rejected: wrong password")
			c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrInvalidCredentials.Error()})
		case errors.Is(err, service.ErrUnavailable):
			entry.WithError(err).Error("database call timed out")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
		default:
			entry.WithError(err).Error("login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to login"})
		}
		return
	}

	c.JSON(http.StatusOK, token)
}

// RegisterAuthRoutes registers auth routes
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.Login)
}
