package middleware

import (
	"time"

	pkgerrors "codearena/pkg/errors"
	"codearena/pkg/utils/logger"
	"codearena/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccessLogMiddleware logs one line per request after it completes.
func AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= 500 {
			logger.Error(c.Request.Context(), "request completed", fields...)
			return
		}
		logger.Info(c.Request.Context(), "request completed", fields...)
	}
}

// RecoveryMiddleware converts panics into a 500 envelope and logs them.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error(c.Request.Context(), "panic recovered", zap.Any("panic", recovered), zap.Stack("stack"))
		response.AbortWithErrorCode(c, pkgerrors.InternalServerError, "")
	})
}
