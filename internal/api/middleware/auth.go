package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"timesheet-hub/backend/config"
	"timesheet-hub/backend/internal/service"
	"timesheet-hub/backend/pkg/jwt"
	"timesheet-hub/backend/pkg/redis"
	"timesheet-hub/backend/pkg/response"
)

// 上下文键
const (
	ContextKeyClaims    = "claims"
	ContextKeyPrincipal = "principal"
	ContextKeyRole      = "role"
	ContextKeyActor     = "actor"
)

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token
// rdb 为 nil 时跳过黑名单检查
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if claims.TokenType != "access" {
			response.Unauthorized(c, 10002, "Token 类型无效")
			c.Abort()
			return
		}

		if rdb != nil && claims.ID != "" {
			revoked, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID)
			// Redis 出错时降级放行
			if err == nil && revoked {
				response.Unauthorized(c, 10002, "Token 已注销")
				c.Abort()
				return
			}
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyPrincipal, claims.UserID())
		c.Set(ContextKeyRole, claims.Role)

		c.Next()
	}
}

// Impersonation 开发环境下允许通过请求头指定代理主体，覆盖 Token 中的主体
func Impersonation(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.ImpersonationEnabled {
			c.Next()
			return
		}

		if acting := strings.TrimSpace(c.GetHeader(cfg.ImpersonationHeader)); acting != "" {
			c.Set(ContextKeyPrincipal, acting)
		}

		c.Next()
	}
}

// ActingUser 将请求主体解析为系统用户并注入上下文
func ActingUser(identity service.IdentityService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := c.GetString(ContextKeyPrincipal)
		if principal == "" {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		user, err := identity.Resolve(c.Request.Context(), principal)
		if err != nil {
			if errors.Is(err, service.ErrPrincipalUnknown) {
				response.Unauthorized(c, 10002, "用户不存在")
				c.Abort()
				return
			}
			logger.Error("解析请求主体失败", zap.String("principal", principal), zap.Error(err))
			response.ServiceUnavailable(c, 20503, "存储暂不可用，请稍后重试")
			c.Abort()
			return
		}

		c.Set(ContextKeyActor, user)
		c.Set(ContextKeyRole, string(user.Role))

		c.Next()
	}
}
