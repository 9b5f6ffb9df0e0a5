package middleware

import (
	"net/http"
	"strings"

	"procounsellor/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{
		Error: "Insufficient authorization",
		Code:  "unauthorized",
	})
}

// JWTAuthUserMiddleware accepts a bearer token and stores its subject as the caller's user id.
func JWTAuthUserMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(c)
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			unauthorized(c)
			return
		}

		userID, err := utils.ExtractIDFromToken(tokenString)
		if err != nil || userID == "" {
			logger.Debug("rejected bearer token", zap.String("ip", getClientIP(c)), zap.Error(err))
			unauthorized(c)
			return
		}

		c.Set(utils.ContextUserIDKey, userID)
		c.Next()
	}
}

// AuthenticatedUser returns the user id stored by JWTAuthUserMiddleware.
func AuthenticatedUser(c *gin.Context) (string, bool) {
	v, ok := c.Get(utils.ContextUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
