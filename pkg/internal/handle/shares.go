package handle

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/api"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/service"
	"github.com/yeisme/drivevault/pkg/internal/types"
)

// CreateShare 授予协作者角色，仅资源所有者可操作.
//
//	@Summary		授予协作者
//	@Description	对文件或文件夹授予 viewer 或 editor 角色，角色会沿层级向下继承
//	@Tags			协作者
//	@Accept			json
//	@Produce		json
//	@Param			body	body		types.CreateShareRequest	true	"授权请求"
//	@Success		201		{object}	api.Envelope{data=model.Share}
//	@Failure		400		{object}	api.Envelope
//	@Failure		403		{object}	api.Envelope
//	@Failure		409		{object}	api.Envelope
//	@Router			/api/v1/shares [post]
func (h *Handlers) CreateShare(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	var req types.CreateShareRequest
	if !bindJSON(c, &req) {
		return
	}

	share, err := h.svc.Shares.Create(c.Request.Context(), user, service.ShareInput{
		ResourceType:  model.ResourceType(req.ResourceType),
		ResourceID:    req.ResourceID,
		GranteeUserID: req.GranteeUserID,
		Role:          model.Role(req.Role),
	})
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.Created(c, share)
}

// ListShares 列出资源上的授权.
//
//	@Summary	列出资源协作者
//	@Tags		协作者
//	@Produce	json
//	@Param		resource_type	query		string	true	"file 或 folder"
//	@Param		resource_id		query		string	true	"资源ID"
//	@Success	200				{object}	api.Envelope{data=[]model.Share}
//	@Failure	403				{object}	api.Envelope
//	@Router		/api/v1/shares [get]
func (h *Handlers) ListShares(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	var q types.ResourceQuery
	if !bindQuery(c, &q) {
		return
	}

	shares, err := h.svc.Shares.ListForResource(c.Request.Context(), model.ResourceType(q.ResourceType), q.ResourceID, user)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, shares)
}

// ListIncomingShares 列出授予调用者的授权.
//
//	@Summary	与我共享
//	@Tags		协作者
//	@Produce	json
//	@Success	200	{object}	api.Envelope{data=[]model.Share}
//	@Router		/api/v1/shares/incoming [get]
func (h *Handlers) ListIncomingShares(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	shares, err := h.svc.Shares.ListIncoming(c.Request.Context(), user)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, shares)
}

// DeleteShare 撤销授权.
//
//	@Summary	撤销协作者
//	@Tags		协作者
//	@Produce	json
//	@Param		id	path		string	true	"授权ID"
//	@Success	200	{object}	api.Envelope
//	@Failure	403	{object}	api.Envelope
//	@Failure	404	{object}	api.Envelope
//	@Router		/api/v1/shares/{id} [delete]
func (h *Handlers) DeleteShare(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	if err := h.svc.Shares.Delete(c.Request.Context(), c.Param("id"), user); err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, gin.H{"id": c.Param("id"), "deleted": true})
}
