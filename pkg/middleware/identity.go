package middleware

import (
	"strings"
	"time"

	"trustmarket/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	UserIDHeader = "X-User-ID"
	userIDKey    = "user_id"
)

// RequireUser reads the caller id set by the upstream authenticator.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			_ = c.Error(errutil.Unauthorized("missing "+UserIDHeader+" header", nil))
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the caller id stored by RequireUser.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		zap.L().Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
