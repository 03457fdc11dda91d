package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"userapi/internal/middleware"
	"userapi/internal/model"
	"userapi/internal/service"
	"userapi/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserHandler handles user account requests
type UserHandler struct {
	service service.UserService
	log     logrus.FieldLogger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(s service.UserService, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{service: s, log: log}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		h.internalError(c, err, "Failed to retrieve users")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			// A miss is an empty result, not an error
			c.JSON(http.StatusOK, []model.User{})
			return
		}
		h.internalError(c, err, "Failed to retrieve user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if !bindCreate(c, &req) {
		return
	}

	user, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordTooLong):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": []string{err.Error()}})
		case errors.Is(err, service.ErrUsernameTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrUsernameTaken.Error()})
		case errors.Is(err, service.ErrPasswordHash):
			h.internalError(c, err, "Failed to create user")
		case errors.Is(err, service.ErrUnavailable):
			h.unavailable(c, err)
		default:
			h.entry(c).WithError(err).Warn("create user failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to create user"})
		}
		return
	}

	h.entry(c).WithField("user_id", user.ID).Info("user created")
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.CreateUserRequest
	if !bindCreate(c, &req) {
		return
	}

	user, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		case errors.Is(err, service.ErrPasswordTooLong):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": []string{err.Error()}})
		case errors.Is(err, service.ErrUsernameTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrUsernameTaken.Error()})
		case errors.Is(err, service.ErrPasswordHash):
			h.internalError(c, err, "Failed to update user")
		case errors.Is(err, service.ErrUnavailable):
			h.unavailable(c, err)
		default:
			h.entry(c).WithError(err).Warn("update user failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to update user"})
		}
		return
	}

	h.entry(c).WithField("user_id", user.ID).Info("user updated")
	c.JSON(http.StatusOK, user)
}

// RegisterUserRoutes registers the protected user routes
func (h *UserHandler) RegisterUserRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	users := rg.Group("/users", authMW)
	{
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.POST("", h.CreateUser)
		users.PUT("/:id", h.UpdateUser)
	}
}

// entry returns a log entry tagged with the request ID and, when known, the acting user.
func (h *UserHandler) entry(c *gin.Context) *logrus.Entry {
	e := h.log.WithField("request_id", c.GetString(middleware.RequestIDKey))
	if id, ok := middleware.IdentityFrom(c); ok {
		e = e.WithField("actor_id", id.UserID)
	}
	return e
}

func (h *UserHandler) internalError(c *gin.Context, err error, msg string) {
	if errors.Is(err, service.ErrUnavailable) {
		h.unavailable(c, err)
		return
	}
	h.entry(c).WithError(err).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func (h *UserHandler) unavailable(c *gin.Context, err error) {
	h.entry(c).WithError(err).Error("database call timed out")
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body into obj. An empty body leaves obj zero-valued so it fails validation instead.
func bindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func bindCreate(c *gin.Context, req *model.CreateUserRequest) bool {
	if err := bindJSON(c, req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return false
	}
	if errs := validator.ValidateCreate(*req); len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
		return false
	}
	return true
}
