package auth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware rejects requests without the configured bearer token.
func AuthMiddleware(authService *TokenAuthService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		err := authService.Authenticate(ctx.ClientIP(), TokenFromRequest(ctx.Request))
		if err == nil {
			ctx.Next()
			return
		}

		var throttled *TooManyFailuresError
		switch {
		case errors.As(err, &throttled):
			ctx.Header("Retry-After", strconv.Itoa(throttled.RetryAfterSec))
			ctx.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many failed authentication attempts"})
		case errors.Is(err, ErrTokenRequired):
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
		default:
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		}
		ctx.Abort()
	}
}
