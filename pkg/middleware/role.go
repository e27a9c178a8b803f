package middleware

import (
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/api"
	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/context"
)

// RequireAdmin 仅允许 admins 中的调用者访问. 列表为空时拒绝所有人.
func RequireAdmin(admins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := context.CallerID(c.Request.Context())
		if !ok {
			api.Fail(c, apperr.ErrUnauthenticated)

			return
		}

		if !slices.Contains(admins, caller) {
			api.Fail(c, apperr.ErrForbidden.WithMessage("admin access required"))

			return
		}

		c.Next()
	}
}
