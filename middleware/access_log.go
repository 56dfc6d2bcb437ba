package middleware

import (
	"time"

	"TalkTime/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccessLog HTTP 访问日志；/ws 是长连接，只记升级请求
func AccessLog() gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info(c.Request.Method+" "+c.FullPath(),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("cost", time.Since(start)),
			zap.String("ip", c.ClientIP()))
	}
}
