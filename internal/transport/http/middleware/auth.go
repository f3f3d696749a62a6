package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/florafleet/pollination-api/internal/core/port"
	"github.com/florafleet/pollination-api/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// AccessTokenParser verifies bearer tokens for the auth middleware.
type AccessTokenParser interface {
	ParseAccessToken(token string) (*port.TokenClaims, error)
}

// RequireAuth validates the Authorization header and stores the
// authenticated account ID on the gin context.
func RequireAuth(parser AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		claims, err := parser.ParseAccessToken(token)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrExpiredAccessToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "access token expired"))
			case errors.Is(err, usecase.ErrInvalidAccessToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid access token"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		c.Set(AccountIDKey, claims.AccountID)
		c.Set("claims", claims)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.AccountID = claims.AccountID
		}

		c.Next()
	}
}

// GetAuthenticatedAccountID retrieves the account ID from context (helper for handlers)
func GetAuthenticatedAccountID(c *gin.Context) (string, bool) {
	accountID, exists := c.Get(AccountIDKey)
	if !exists {
		return "", false
	}

	if id, ok := accountID.(string); ok {
		return id, true
	}

	return "", false
}
