package handle

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/api"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/service"
	"github.com/yeisme/drivevault/pkg/internal/types"
)

// CreateLink 创建公开链接，同一资源的旧链接会被替换.
//
//	@Summary		创建公开链接
//	@Description	仅资源所有者可创建；可选口令与过期时间，返回的 token 即访问凭据
//	@Tags			公开链接
//	@Accept			json
//	@Produce		json
//	@Param			body	body		types.CreateLinkRequest	true	"链接参数"
//	@Success		201		{object}	api.Envelope{data=model.LinkShare}
//	@Failure		400		{object}	api.Envelope
//	@Failure		403		{object}	api.Envelope
//	@Failure		404		{object}	api.Envelope
//	@Router			/api/v1/links [post]
func (h *Handlers) CreateLink(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	var req types.CreateLinkRequest
	if !bindJSON(c, &req) {
		return
	}

	link, err := h.svc.Links.CreateLink(c.Request.Context(), model.ResourceType(req.ResourceType), req.ResourceID, user, service.LinkOptions{
		Password:  req.Password,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.Created(c, link)
}

// GetLink 读取资源当前的公开链接.
//
//	@Summary	读取公开链接
//	@Tags		公开链接
//	@Produce	json
//	@Param		resource_type	query		string	true	"file 或 folder"
//	@Param		resource_id		query		string	true	"资源ID"
//	@Success	200				{object}	api.Envelope{data=model.LinkShare}
//	@Failure	403				{object}	api.Envelope
//	@Failure	404				{object}	api.Envelope
//	@Router		/api/v1/links [get]
func (h *Handlers) GetLink(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	var q types.ResourceQuery
	if !bindQuery(c, &q) {
		return
	}

	link, err := h.svc.Links.GetLink(c.Request.Context(), model.ResourceType(q.ResourceType), q.ResourceID, user)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, link)
}

// DeleteLink 删除公开链接，仅创建者可操作.
//
//	@Summary	删除公开链接
//	@Tags		公开链接
//	@Produce	json
//	@Param		id	path		string	true	"链接ID"
//	@Success	200	{object}	api.Envelope
//	@Failure	403	{object}	api.Envelope
//	@Failure	404	{object}	api.Envelope
//	@Router		/api/v1/links/{id} [delete]
func (h *Handlers) DeleteLink(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	if err := h.svc.Links.DeleteLink(c.Request.Context(), c.Param("id"), user); err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, gin.H{"id": c.Param("id"), "deleted": true})
}

// ResolvePublicLink 匿名解析公开链接（无口令）.
//
//	@Summary		解析公开链接
//	@Description	匿名访问；文件返回预签名下载与预览地址，文件夹返回直接子项
//	@Tags			公开链接
//	@Produce		json
//	@Param			token	path		string	true	"链接 token"
//	@Success		200		{object}	api.Envelope{data=service.ResolvedLink}
//	@Failure		401		{object}	api.Envelope	"PASSWORD_REQUIRED"
//	@Failure		404		{object}	api.Envelope	"LINK_NOT_FOUND"
//	@Failure		410		{object}	api.Envelope	"LINK_EXPIRED"
//	@Failure		429		{object}	api.Envelope
//	@Router			/api/v1/public/links/{token} [get]
func (h *Handlers) ResolvePublicLink(c *gin.Context) {
	h.resolve(c, "")
}

// UnlockPublicLink 携带口令解析公开链接.
//
//	@Summary	携带口令解析公开链接
//	@Tags		公开链接
//	@Accept		json
//	@Produce	json
//	@Param		token	path		string						true	"链接 token"
//	@Param		body	body		types.ResolveLinkRequest	true	"口令"
//	@Success	200		{object}	api.Envelope{data=service.ResolvedLink}
//	@Failure	401		{object}	api.Envelope	"INVALID_PASSWORD"
//	@Failure	404		{object}	api.Envelope
//	@Failure	410		{object}	api.Envelope
//	@Router		/api/v1/public/links/{token} [post]
func (h *Handlers) UnlockPublicLink(c *gin.Context) {
	var req types.ResolveLinkRequest
	if !bindJSON(c, &req) {
		return
	}

	h.resolve(c, req.Password)
}

func (h *Handlers) resolve(c *gin.Context, password string) {
	resolved, err := h.svc.Links.ResolveLink(c.Request.Context(), c.Param("token"), password)
	if err != nil {
		api.Fail(c, err)

		return
	}

	c.Header("Cache-Control", "no-store")
	api.OK(c, resolved)
}
