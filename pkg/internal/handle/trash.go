package handle

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/api"
)

// ListTrash 列出调用者回收站中的资源.
//
//	@Summary	列出回收站
//	@Tags		回收站
//	@Produce	json
//	@Success	200	{object}	api.Envelope{data=service.Listing}
//	@Router		/api/v1/trash [get]
func (h *Handlers) ListTrash(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	listing, err := h.svc.Trash.List(c.Request.Context(), user)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, listing)
}

// RestoreTrash 从回收站恢复，只恢复资源本身.
//
//	@Summary	恢复资源
//	@Tags		回收站
//	@Produce	json
//	@Param		type	path		string	true	"file 或 folder"
//	@Param		id		path		string	true	"资源ID"
//	@Success	200		{object}	api.Envelope
//	@Failure	400		{object}	api.Envelope	"NOT_IN_TRASH"
//	@Failure	403		{object}	api.Envelope
//	@Failure	404		{object}	api.Envelope
//	@Router		/api/v1/trash/{type}/{id}/restore [post]
func (h *Handlers) RestoreTrash(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	rt, ok := resourceParam(c)
	if !ok {
		return
	}

	if err := h.svc.Trash.Restore(c.Request.Context(), rt, c.Param("id"), user); err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, gin.H{"resource_type": rt, "id": c.Param("id"), "restored": true})
}

// PurgeTrash 永久删除资源及其子树.
//
//	@Summary		永久删除
//	@Description	仅所有者可操作；文件夹按子树级联删除，非本人所有的子项会保留并在 skipped 中列出
//	@Tags			回收站
//	@Produce		json
//	@Param			type	path		string	true	"file 或 folder"
//	@Param			id		path		string	true	"资源ID"
//	@Success		200		{object}	api.Envelope{data=service.PurgeReport}
//	@Failure		403		{object}	api.Envelope
//	@Failure		404		{object}	api.Envelope
//	@Failure		500		{object}	api.Envelope	"INTEGRITY_CORRUPTION"
//	@Router			/api/v1/trash/{type}/{id} [delete]
func (h *Handlers) PurgeTrash(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	rt, ok := resourceParam(c)
	if !ok {
		return
	}

	report, err := h.svc.Trash.Purge(c.Request.Context(), rt, c.Param("id"), user)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, report)
}

// EmptyTrash 清空回收站.
//
//	@Summary	清空回收站
//	@Tags		回收站
//	@Produce	json
//	@Success	200	{object}	api.Envelope{data=service.PurgeReport}
//	@Router		/api/v1/trash/empty [post]
func (h *Handlers) EmptyTrash(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	report, err := h.svc.Trash.Empty(c.Request.Context(), user)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, report)
}
