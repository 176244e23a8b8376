package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"timesheet-hub/backend/config"
	"timesheet-hub/backend/internal/api/handler"
	"timesheet-hub/backend/internal/api/middleware"
	"timesheet-hub/backend/internal/service"
	"timesheet-hub/backend/pkg/jwt"
	"timesheet-hub/backend/pkg/redis"
)

// 登录限流：每个 IP 每分钟 10 次
const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, identity service.IdentityService, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	if cfg.Auth.ImpersonationEnabled {
		r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins, cfg.Auth.ImpersonationHeader))
	} else {
		r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	}
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		v1.POST("/auth/login", middleware.RateLimit(rdb, loginRateLimit, loginRateWindow), h.Auth.Login)

		// 已认证主体（尚未解析为系统用户）
		authed := v1.Group("")
		authed.Use(middleware.JWTAuth(jwtMgr, rdb), middleware.Impersonation(&cfg.Auth))
		{
			authed.POST("/auth/logout", h.Auth.Logout)
			// 创建项目只需主体，未知主体按配置自动开通
			authed.POST("/projects", h.Project.Create)
		}

		// 已解析的当前用户
		acting := authed.Group("")
		acting.Use(middleware.ActingUser(identity, logger))
		{
			acting.GET("/auth/me", h.Auth.Me)

			// 项目模块
			projects := acting.Group("/projects")
			{
				projects.GET("", h.Project.List)
				projects.GET("/:id/tasks", h.Project.ListTasks)
				projects.POST("/:id/tasks", h.Project.CreateTask)
			}

			// 工时表模块
			timesheets := acting.Group("/timesheets")
			{
				timesheets.GET("", h.Timesheet.ListMine)
				timesheets.GET("/current", h.Timesheet.GetCurrent)
				timesheets.GET("/approvable", h.Timesheet.ListApprovable)
				timesheets.GET("/:id", h.Timesheet.Get)
				timesheets.GET("/:id/history", h.Timesheet.History)

				timesheets.POST("/:id/submit", h.Timesheet.Submit)
				timesheets.POST("/:id/approve", h.Timesheet.Approve)
				timesheets.POST("/:id/reject", h.Timesheet.Reject)
				timesheets.POST("/:id/submit-to-admin", h.Timesheet.SubmitToAdmin)
				timesheets.POST("/:id/finish", h.Timesheet.Finish)

				timesheets.GET("/:id/export.xlsx", h.Export.ExportXLSX)
				timesheets.GET("/:id/export.ics", h.Export.ExportICS)

				// 工时明细
				timesheets.PUT("/entries/bulk", h.Entry.BulkSave)
				timesheets.DELETE("/entries/:id", h.Entry.Delete)
				timesheets.PUT("/entries/:id/approved-hours", h.Entry.ModifyApprovedHours)
			}
		}
	}

	return r
}
