// Package router 把处理器绑定到 gin 引擎，路由前缀为 /api/v1.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/internal/handle"
	"github.com/yeisme/drivevault/pkg/internal/service"
	"github.com/yeisme/drivevault/pkg/middleware"
)

// APIPrefix 业务路由前缀.
const APIPrefix = "/api/v1"

// Register 注册全部业务路由. 身份认证由引擎级 AuthMiddleware 完成，
// 这里只为认证分组追加按用户限流，为匿名分组追加按 IP 限流.
func Register(r *gin.Engine, h *handle.Handlers, cfg *configs.AppConfig, limiter *service.RateLimiter) {
	v1 := r.Group(APIPrefix)

	RegisterHealthCheckRoute(v1)

	public := v1.Group("/public", middleware.PublicRateLimitMiddleware(cfg.RateLimit.Public))
	{
		public.GET("/links/:token", h.ResolvePublicLink)
		public.POST("/links/:token", h.UnlockPublicLink)
	}

	authed := v1.Group("", middleware.RateLimitMiddleware(limiter))

	registerFolderRoutes(authed, h)
	registerFileRoutes(authed, h)
	registerShareRoutes(authed, h)
	registerTrashRoutes(authed, h)

	authed.GET("/activity", h.ListActivity)
	authed.GET("/permissions/:type/:id", h.CheckPermission)

	admin := authed.Group("/admin", middleware.RequireAdmin(cfg.Auth.Admins))
	RegisterSchedulerRoutes(admin)
}

func registerFolderRoutes(g *gin.RouterGroup, h *handle.Handlers) {
	folders := g.Group("/folders")
	{
		folders.POST("", h.CreateFolder)
		folders.GET("", h.ListFolder)
		folders.GET("/:id", h.GetFolder)
		folders.PATCH("/:id", h.RenameFolder)
		folders.POST("/:id/move", h.MoveFolder)
		folders.DELETE("/:id", h.TrashFolder)
		folders.GET("/:id/activity", h.FolderActivity)
	}
}

func registerFileRoutes(g *gin.RouterGroup, h *handle.Handlers) {
	files := g.Group("/files")
	{
		files.POST("", h.UploadFile)
		files.GET("/:id", h.GetFile)
		files.PATCH("/:id", h.RenameFile)
		files.POST("/:id/move", h.MoveFile)
		files.DELETE("/:id", h.TrashFile)
		files.GET("/:id/activity", h.FileActivity)
	}
}

func registerShareRoutes(g *gin.RouterGroup, h *handle.Handlers) {
	shares := g.Group("/shares")
	{
		shares.POST("", h.CreateShare)
		shares.GET("", h.ListShares)
		shares.GET("/incoming", h.ListIncomingShares)
		shares.DELETE("/:id", h.DeleteShare)
	}

	links := g.Group("/links")
	{
		links.POST("", h.CreateLink)
		links.GET("", h.GetLink)
		links.DELETE("/:id", h.DeleteLink)
	}

	stars := g.Group("/stars")
	{
		stars.POST("", h.StarResource)
		stars.GET("", h.ListStars)
		stars.DELETE("/:type/:id", h.UnstarResource)
	}
}

func registerTrashRoutes(g *gin.RouterGroup, h *handle.Handlers) {
	trash := g.Group("/trash")
	{
		trash.GET("", h.ListTrash)
		trash.POST("/empty", h.EmptyTrash)
		trash.POST("/:type/:id/restore", h.RestoreTrash)
		trash.DELETE("/:type/:id", h.PurgeTrash)
	}
}
