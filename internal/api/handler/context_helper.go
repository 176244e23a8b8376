package handler

import (
	"github.com/gin-gonic/gin"

	"timesheet-hub/backend/internal/model"
	"timesheet-hub/backend/pkg/jwt"
	"timesheet-hub/backend/pkg/response"
)

// MustGetActor 从 Gin 上下文中取出 ActingUser 中间件解析出的当前用户。
// 未注入时写入 401 响应并返回 false，调用方应直接 return。
func MustGetActor(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get("actor")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	u, ok := v.(*model.User)
	if !ok || u == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return u, true
}

// MustGetPrincipal 取出请求主体（Token 用户 ID，或开发环境的代理身份）
func MustGetPrincipal(c *gin.Context) (string, bool) {
	v, exists := c.Get("principal")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// GetClaims 取出当前 Access Token 的声明，不存在时返回 nil
func GetClaims(c *gin.Context) *jwt.Claims {
	v, exists := c.Get("claims")
	if !exists {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}
