package handle

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/api"
	"github.com/yeisme/drivevault/pkg/internal/types"
)

// CreateFolder 创建文件夹.
//
//	@Summary		创建文件夹
//	@Description	在指定父文件夹下创建文件夹，需要父文件夹的 editor 角色；未指定父文件夹时创建在根目录
//	@Tags			文件夹
//	@Accept			json
//	@Produce		json
//	@Param			folder	body		types.CreateFolderRequest	true	"创建文件夹请求"
//	@Success		201		{object}	api.Envelope{data=model.Folder}
//	@Failure		400		{object}	api.Envelope
//	@Failure		403		{object}	api.Envelope
//	@Failure		404		{object}	api.Envelope
//	@Router			/api/v1/folders [post]
func (h *Handlers) CreateFolder(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	var req types.CreateFolderRequest
	if !bindJSON(c, &req) {
		return
	}

	folder, err := h.svc.Folders.Create(c.Request.Context(), user, req.Name, optionalID(req.ParentID))
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.Created(c, folder)
}

// ListFolder 列出子项.
//
//	@Summary		列出文件夹内容
//	@Description	列出 parent_id 下未删除的子文件夹与文件；省略 parent_id 时列出调用者的根目录
//	@Tags			文件夹
//	@Produce		json
//	@Param			parent_id	query		string	false	"父文件夹ID"
//	@Success		200			{object}	api.Envelope{data=service.Listing}
//	@Failure		403			{object}	api.Envelope
//	@Failure		404			{object}	api.Envelope
//	@Router			/api/v1/folders [get]
func (h *Handlers) ListFolder(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	var q types.ListFolderQuery
	if !bindQuery(c, &q) {
		return
	}

	listing, err := h.svc.Folders.List(c.Request.Context(), user, optionalID(&q.ParentID))
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, listing)
}

// GetFolder 读取文件夹.
//
//	@Summary	读取文件夹
//	@Tags		文件夹
//	@Produce	json
//	@Param		id	path		string	true	"文件夹ID"
//	@Success	200	{object}	api.Envelope{data=model.Folder}
//	@Failure	403	{object}	api.Envelope
//	@Failure	404	{object}	api.Envelope
//	@Router		/api/v1/folders/{id} [get]
func (h *Handlers) GetFolder(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	folder, err := h.svc.Folders.Get(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, folder)
}

// RenameFolder 重命名文件夹.
//
//	@Summary	重命名文件夹
//	@Tags		文件夹
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"文件夹ID"
//	@Param		body	body		types.RenameRequest	true	"新名称"
//	@Success	200		{object}	api.Envelope{data=model.Folder}
//	@Failure	400		{object}	api.Envelope
//	@Failure	403		{object}	api.Envelope
//	@Failure	404		{object}	api.Envelope
//	@Router		/api/v1/folders/{id} [patch]
func (h *Handlers) RenameFolder(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	var req types.RenameRequest
	if !bindJSON(c, &req) {
		return
	}

	folder, err := h.svc.Folders.Rename(c.Request.Context(), c.Param("id"), user, req.Name)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, folder)
}

// MoveFolder 移动文件夹.
//
//	@Summary		移动文件夹
//	@Description	需要源文件夹与目标父文件夹的 editor 角色；移动到自身返回 CANNOT_MOVE_INTO_SELF，移动到后代返回 WOULD_CREATE_CYCLE
//	@Tags			文件夹
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"文件夹ID"
//	@Param			body	body		types.MoveFolderRequest	true	"目标父文件夹"
//	@Success		200		{object}	api.Envelope{data=model.Folder}
//	@Failure		400		{object}	api.Envelope
//	@Failure		403		{object}	api.Envelope
//	@Failure		404		{object}	api.Envelope
//	@Router			/api/v1/folders/{id}/move [post]
func (h *Handlers) MoveFolder(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	var req types.MoveFolderRequest
	if !bindJSON(c, &req) {
		return
	}

	folder, err := h.svc.Folders.Move(c.Request.Context(), c.Param("id"), user, optionalID(req.ParentID))
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, folder)
}

// TrashFolder 把文件夹移入回收站，只标记文件夹本身.
//
//	@Summary	删除文件夹（移入回收站）
//	@Tags		文件夹
//	@Produce	json
//	@Param		id	path		string	true	"文件夹ID"
//	@Success	200	{object}	api.Envelope
//	@Failure	400	{object}	api.Envelope
//	@Failure	403	{object}	api.Envelope
//	@Failure	404	{object}	api.Envelope
//	@Router		/api/v1/folders/{id} [delete]
func (h *Handlers) TrashFolder(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	if err := h.svc.Folders.Trash(c.Request.Context(), c.Param("id"), user); err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, gin.H{"id": c.Param("id"), "trashed": true})
}
