package handle

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/api"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/types"
)

// ListActivity 调用者自己的动态.
//
//	@Summary	我的动态
//	@Tags		动态
//	@Produce	json
//	@Param		limit	query		int	false	"条数，默认 50，最大 200"
//	@Success	200		{object}	api.Envelope{data=[]model.Activity}
//	@Router		/api/v1/activity [get]
func (h *Handlers) ListActivity(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	var q types.ActivityQuery
	if !bindQuery(c, &q) {
		return
	}

	items, err := h.svc.Activity.ListMine(c.Request.Context(), user, q.Limit)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, items)
}

// FolderActivity 文件夹的动态.
//
//	@Summary	文件夹动态
//	@Tags		动态
//	@Produce	json
//	@Param		id		path		string	true	"文件夹ID"
//	@Param		limit	query		int		false	"条数"
//	@Success	200		{object}	api.Envelope{data=[]model.Activity}
//	@Failure	403		{object}	api.Envelope
//	@Router		/api/v1/folders/{id}/activity [get]
func (h *Handlers) FolderActivity(c *gin.Context) {
	h.resourceActivity(c, model.ResourceFolder)
}

// FileActivity 文件的动态.
//
//	@Summary	文件动态
//	@Tags		动态
//	@Produce	json
//	@Param		id		path		string	true	"文件ID"
//	@Param		limit	query		int		false	"条数"
//	@Success	200		{object}	api.Envelope{data=[]model.Activity}
//	@Failure	403		{object}	api.Envelope
//	@Router		/api/v1/files/{id}/activity [get]
func (h *Handlers) FileActivity(c *gin.Context) {
	h.resourceActivity(c, model.ResourceFile)
}

func (h *Handlers) resourceActivity(c *gin.Context, rt model.ResourceType) {
	user, ok := caller(c)
	if !ok {
		return
	}

	var q types.ActivityQuery
	if !bindQuery(c, &q) {
		return
	}

	items, err := h.svc.Activity.ListForResource(c.Request.Context(), rt, c.Param("id"), user, q.Limit)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, items)
}

// CheckPermission 判定调用者对资源的有效角色.
//
//	@Summary		权限检查
//	@Description	沿父链查找授权或所有权；role 默认为 viewer
//	@Tags			权限
//	@Produce		json
//	@Param			type	path		string	true	"file 或 folder"
//	@Param			id		path		string	true	"资源ID"
//	@Param			role	query		string	false	"viewer、editor 或 owner"
//	@Success		200		{object}	api.Envelope{data=service.Decision}
//	@Failure		500		{object}	api.Envelope	"INTEGRITY_CORRUPTION"
//	@Router			/api/v1/permissions/{type}/{id} [get]
func (h *Handlers) CheckPermission(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	rt, ok := resourceParam(c)
	if !ok {
		return
	}

	var q types.PermissionQuery
	if !bindQuery(c, &q) {
		return
	}

	required := model.RoleViewer
	if q.Role != "" {
		required = model.Role(q.Role)
	}

	decision, err := h.svc.Permissions.Resolve(c.Request.Context(), rt, c.Param("id"), user, required)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, decision)
}
