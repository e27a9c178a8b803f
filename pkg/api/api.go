// Package api 定义 HTTP 响应信封，成功与失败都使用同一结构.
//
//	{"success":true,"data":...}
//	{"success":false,"error":{"code":"...","message":"..."}}
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/apperr"
	ctxPkg "github.com/yeisme/drivevault/pkg/context"
	"github.com/yeisme/drivevault/pkg/log"
)

// Envelope 响应信封.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody 错误详情.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// OK 200 成功响应.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created 201 成功响应.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Fail 把错误映射为信封并中止请求. 5xx 以 error 级别记录，内部原因不返回给客户端.
func Fail(c *gin.Context, err error) {
	e := apperr.From(err)
	_ = c.Error(err)

	if e.Status >= http.StatusInternalServerError {
		l := ctxPkg.WithTraceContext(c.Request.Context(), *log.Logger())
		l.Error().Err(err).
			Str("code", e.Code).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(e.Status, Envelope{Error: &ErrorBody{Code: e.Code, Message: e.Message}})
}

// Invalid 请求参数校验失败，附带字段级错误.
func Invalid(c *gin.Context, message string, fields map[string]string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{Error: &ErrorBody{
		Code:    apperr.ErrInvalidInput.Code,
		Message: message,
		Fields:  fields,
	}})
}
