package middleware

import (
	"net/http"
	"strings"

	"userapi/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const AuthIdentityKey = "authIdentity"

const (
	msgAuthMissing = "Auth token missing"
	msgAuthInvalid = "Invalid auth token"
)

// Identity is the caller decoded from a verified token
type Identity struct {
	UserID int64
	Name   string
}

// Decision is the outcome of authenticating a request: either Authorized or Rejected.
type Decision interface {
	decision()
}

// Authorized carries the verified caller
type Authorized struct {
	Identity Identity
}

// Rejected carries the reason shown to the client and the underlying cause, if any
type Rejected struct {
	Reason string
	Err    error
}

func (Authorized) decision() {}
func (Rejected) decision()   {}

// Gate verifies bearer tokens
type Gate struct {
	jwtUtil *utils.JWTUtil
}

// NewGate creates a Gate backed by jwtUtil
func NewGate(jwtUtil *utils.JWTUtil) *Gate {
	return &Gate{jwtUtil: jwtUtil}
}

// Authenticate decides on the value of an Authorization header
func (g *Gate) Authenticate(authHeader string) Decision {
	if authHeader == "" {
		return Rejected{Reason: msgAuthMissing}
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return Rejected{Reason: msgAuthInvalid}
	}

	claims, err := g.jwtUtil.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		return Rejected{Reason: msgAuthInvalid, Err: err}
	}

	return Authorized{Identity: Identity{UserID: claims.UserID, Name: claims.Name}}
}

// JWTAuthMiddleware creates a middleware for JWT authentication
func JWTAuthMiddleware(gate *Gate, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch d := gate.Authenticate(c.GetHeader("Authorization")).(type) {
		case Authorized:
			c.Set(AuthIdentityKey, d.Identity)
			c.Next()
		case Rejected:
			if d.Err != nil {
				log.WithFields(logrus.Fields{
					"request_id": c.GetString(RequestIDKey),
					"error":      d.Err,
				}).Warn("rejected auth token")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": d.Reason})
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgAuthInvalid})
		}
	}
}

// IdentityFrom returns the caller set by JWTAuthMiddleware
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, exists := c.Get(AuthIdentityKey)
	if !exists {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
