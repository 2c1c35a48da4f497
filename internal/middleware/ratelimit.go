package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimit 返回基于客户端 IP 的速率限制中间件。
// 计数器放在 Redis 中，多实例部署时共享同一限额。
func RateLimit(redisClient *redis.Client, maxRequests int, window time.Duration) gin.HandlerFunc {
	if redisClient == nil {
		panic("Redis client cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 {
		panic("maxRequests must be positive for RateLimit middleware")
	}
	if window <= 0 {
		panic("window duration must be positive for RateLimit middleware")
	}

	return func(c *gin.Context) {
		// 反向代理后面时 ClientIP 依赖 gin 的 trusted proxy 配置
		key := "ratelimit:" + c.ClientIP()

		// INCR 和 EXPIRE 走同一个 pipeline，减少计数与过期设置之间的窗口
		pipe := redisClient.Pipeline()
		incrCmd := pipe.Incr(c.Request.Context(), key)
		pipe.Expire(c.Request.Context(), key, window)
		if _, err := pipe.Exec(c.Request.Context()); err != nil {
			logrus.WithError(err).Error("RateLimit: Redis pipeline failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limiting error"})
			c.Abort()
			return
		}

		count, err := incrCmd.Result()
		if err != nil {
			logrus.WithError(err).Error("RateLimit: failed to read INCR result")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limiting error"})
			c.Abort()
			return
		}

		if count > int64(maxRequests) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}
