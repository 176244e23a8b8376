package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"timesheet-hub/backend/pkg/response"
)

// defaultMaxBodyBytes 未配置时的请求体上限（批量保存最多 200 条明细）
const defaultMaxBodyBytes int64 = 1 << 20

// BodyLimit 全局请求体大小限制中间件
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
