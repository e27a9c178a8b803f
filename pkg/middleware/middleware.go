// Package middleware 提供 gin 中间件：请求 ID、身份认证、限流、熔断、日志、指标与追踪.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yeisme/drivevault/pkg/context"
	"github.com/yeisme/drivevault/pkg/internal/storage"
	"github.com/yeisme/drivevault/pkg/scheduler"
)

// RequestIDHeader 请求 ID 头.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestIDMiddleware 透传或生成请求 ID，并写入响应头与请求上下文.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}

		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(context.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// InjectMiddleware 把存储管理器与调度器放入请求上下文，供健康检查与管理接口读取.
func InjectMiddleware(manager *storage.Manager, sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if manager != nil {
			ctx = context.WithStorageManager(ctx, manager)
		}

		if sched != nil {
			ctx = context.WithScheduler(ctx, sched)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
