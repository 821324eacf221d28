package middleware

import (
	"net/http"
	"strings"

	"parkly/internal/shared/config"
	"parkly/internal/shared/utils/response"
	"parkly/internal/users"
	"parkly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
	ContextPrincipal = "principal"
	ContextRequestID = "request_id"
)

// JWTAuth creates a JWT authentication middleware
func JWTAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "Authorization header is required", nil, nil)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil, nil)
			c.Abort()
			return
		}

		principal, email, err := parseAccessToken(cfg, parts[1])
		if err != nil {
			logger.GetDefault().LogAuthFailure(c.Request.Context(), err.Error(), c.ClientIP())
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid or expired token", nil, nil)
			c.Abort()
			return
		}

		setPrincipal(c, principal, email)
		c.Next()
	}
}

// OptionalAuth validates a JWT token if present but doesn't require it
func OptionalAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}

		if principal, email, err := parseAccessToken(cfg, parts[1]); err == nil {
			setPrincipal(c, principal, email)
		}
		c.Next()
	}
}

func parseAccessToken(cfg *config.Config, tokenString string) (users.Principal, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil || !token.Valid {
		return users.Principal{}, "", jwt.ErrSignatureInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return users.Principal{}, "", jwt.ErrInvalidKeyType
	}
	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return users.Principal{}, "", jwt.NewValidationError("invalid token type", jwt.ValidationErrorClaimsInvalid)
	}

	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return users.Principal{}, "", jwt.NewValidationError("invalid user id claim", jwt.ValidationErrorClaimsInvalid)
	}
	rawRole, _ := claims["role"].(string)
	role, err := users.ParseRole(rawRole)
	if err != nil {
		return users.Principal{}, "", jwt.NewValidationError("invalid role claim", jwt.ValidationErrorClaimsInvalid)
	}
	email, _ := claims["email"].(string)

	return users.Principal{UserID: userID, Role: role}, email, nil
}

func setPrincipal(c *gin.Context, principal users.Principal, email string) {
	c.Set(ContextPrincipal, principal)
	c.Set(ContextUserID, principal.UserID.String())
	c.Set(ContextUserEmail, email)
	c.Set(ContextUserRole, string(principal.Role))
}

// CurrentPrincipal returns the authenticated caller set by JWTAuth
func CurrentPrincipal(c *gin.Context) (users.Principal, bool) {
	value, exists := c.Get(ContextPrincipal)
	if !exists {
		return users.Principal{}, false
	}
	principal, ok := value.(users.Principal)
	return principal, ok
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...users.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, exists := CurrentPrincipal(c)
		if !exists {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "user role not found in context", nil, nil)
			c.Abort()
			return
		}

		for _, role := range requiredRoles {
			if principal.Role == role {
				c.Next()
				return
			}
		}

		response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
		c.Abort()
	}
}

// RequestID tags every request with an id, reusing X-Request-ID when the caller sends one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestID, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
