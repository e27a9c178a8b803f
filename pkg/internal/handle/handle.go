// Package handle 提供 HTTP 请求处理器，负责参数绑定与信封响应，业务规则全部委托给 service.
package handle

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/api"
	"github.com/yeisme/drivevault/pkg/apperr"
	ctxPkg "github.com/yeisme/drivevault/pkg/context"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/service"
	"github.com/yeisme/drivevault/pkg/rule"
)

// Handlers 持有服务集合，每个方法对应一个路由.
type Handlers struct {
	svc *service.Services
}

// New 创建处理器.
func New(svc *service.Services) *Handlers {
	return &Handlers{svc: svc}
}

// caller 读取已认证的调用者，缺失时直接写出 401.
func caller(c *gin.Context) (string, bool) {
	id, ok := ctxPkg.CallerID(c.Request.Context())
	if !ok {
		api.Fail(c, apperr.ErrUnauthenticated)

		return "", false
	}

	return id, true
}

// bindJSON 解析并校验请求体. 空请求体按零值处理，交给 rule 校验.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		api.Invalid(c, "malformed request body", nil)

		return false
	}

	return validate(c, req)
}

// bindQuery 解析并校验查询参数.
func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		api.Invalid(c, "malformed query parameters", nil)

		return false
	}

	return validate(c, req)
}

func validate(c *gin.Context, req any) bool {
	if err := rule.ValidateStruct(req); err != nil {
		fields := rule.Errors(err)
		if fields == nil {
			api.Fail(c, apperr.ErrInvalidInput.WithCause(err))

			return false
		}

		api.Invalid(c, "validation failed: "+fields.String(), fields)

		return false
	}

	return true
}

// resourceParam 读取 :type 路径参数.
func resourceParam(c *gin.Context) (model.ResourceType, bool) {
	rt, err := model.ParseResourceType(strings.ToLower(c.Param("type")))
	if err != nil {
		api.Invalid(c, "unknown resource type", map[string]string{"type": "failed on oneof=file folder"})

		return "", false
	}

	return rt, true
}

// optionalID 空字符串视为未指定.
func optionalID(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}

	v := strings.TrimSpace(*s)

	return &v
}
