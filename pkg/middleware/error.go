package middleware

import (
	"trustmarket/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last handler error as {"error":{code,message,details}}.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil || c.Writer.Written() {
			return
		}

		be := errutil.Normalize(err.Err)
		if be.Code == errutil.StatusInternal {
			zap.L().Error("unhandled error", zap.String("path", c.FullPath()), zap.Error(err.Err))
		}

		c.JSON(be.Code.HTTPStatus(), gin.H{
			"error": gin.H{
				"code":    be.Code,
				"message": be.Message,
				"details": be.Details,
			},
		})
	}
}
