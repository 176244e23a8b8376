package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var baseAllowHeaders = []string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"}

// CORS 跨域中间件
// extraHeaders 追加允许的请求头（如开发环境的代理主体头）
func CORS(allowOrigins []string, extraHeaders ...string) gin.HandlerFunc {
	originsMap := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		originsMap[strings.TrimRight(o, "/")] = true
	}

	headers := append(append([]string{}, baseAllowHeaders...), extraHeaders...)
	allowHeaders := strings.Join(headers, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if originsMap[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
