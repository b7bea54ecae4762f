package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/apperr"
	"github.com/lalith-99/fretboard/internal/auth"
)

// Context keys for claims stored in gin.Context.
const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "email"
	ContextKeyRole   = "role"
)

// AuthMiddleware rejects requests without a valid bearer token and
// stores the token's claims for the handlers behind it.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth stores claims when a valid bearer token is present and
// otherwise lets the request through anonymously. Callables use it so the
// unauthenticated case is reported in their own error envelope.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := bearerClaims(c, secret); err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// TokenFromQuery copies ?access_token= into the Authorization header.
// Browsers cannot set headers on a websocket handshake.
func TokenFromQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			if tok := c.Query("access_token"); tok != "" {
				c.Request.Header.Set("Authorization", "Bearer "+tok)
			}
		}
		c.Next()
	}
}

// RequireRole checks the caller's current role claim (not the copy in the
// token) against allow. Must run after AuthMiddleware.
func RequireRole(gate *auth.Gate, allow auth.RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := gate.Authorize(c.Request.Context(), GetUserID(c), allow)
		if err != nil {
			kind := apperr.KindOf(err)
			c.AbortWithStatusJSON(kind.HTTPStatus(), gin.H{
				"error": apperr.Message(err),
			})
			return
		}
		c.Set(ContextKeyRole, role)
		c.Next()
	}
}

func bearerClaims(c *gin.Context, secret string) (*auth.Claims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, errors.New("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errors.New("invalid authorization format, expected: Bearer <token>")
	}

	claims, err := auth.ParseToken(strings.TrimSpace(parts[1]), secret)
	if err != nil {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyEmail, claims.Email)
	if role, err := auth.ParseRole(claims.Role); err == nil {
		c.Set(ContextKeyRole, role)
	}
}

// GetUserID returns uuid.Nil for anonymous requests.
func GetUserID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func GetEmail(c *gin.Context) string {
	val, exists := c.Get(ContextKeyEmail)
	if !exists {
		return ""
	}
	email, ok := val.(string)
	if !ok {
		return ""
	}
	return email
}

// GetRole returns the role set by RequireRole, falling back to the
// token's copy of the claim.
func GetRole(c *gin.Context) auth.Role {
	val, exists := c.Get(ContextKeyRole)
	if !exists {
		return auth.RoleNone
	}
	role, ok := val.(auth.Role)
	if !ok {
		return auth.RoleNone
	}
	return role
}
