package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/configs"
)

// CORSMiddleware CORS中间件，暴露限流与请求 ID 响应头.
// 未配置 allowed_origins 或调试模式下允许任意来源.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowOrigins = cfg.AllowedOrigins
	config.AllowCredentials = len(cfg.AllowedOrigins) > 0
	config.AllowHeaders = append(config.AllowHeaders, "Authorization", "X-User-Id", RequestIDHeader)
	config.ExposeHeaders = []string{
		RequestIDHeader,
		HeaderRateLimit,
		HeaderRateRemaining,
		HeaderRateReset,
		HeaderRetryAfter,
		"Content-Disposition",
	}

	if cfg.Debug || len(cfg.AllowedOrigins) == 0 {
		config.AllowAllOrigins = true
		config.AllowOrigins = nil
		config.AllowCredentials = false
	}

	return cors.New(config)
}
