package middleware

import (
	"github.com/gin-gonic/gin"

	"shiftclock/backend/pkg/ratelimit"
	"shiftclock/backend/pkg/response"
)

// RateLimit 按 (scope, 调用方) 限流
// 已认证请求按 user_id 计数，否则按客户端 IP；limiter 为 nil 时放行
func RateLimit(limiter *ratelimit.Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		id := c.GetString("user_id")
		if id == "" {
			id = c.ClientIP()
		}

		if !limiter.Allow(c.Request.Context(), scope, id) {
			response.TooManyRequests(c)
			c.Abort()
			return
		}

		c.Next()
	}
}
