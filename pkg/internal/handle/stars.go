package handle

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/api"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/types"
)

// StarResource 收藏.
//
//	@Summary	收藏资源
//	@Tags		收藏
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.StarRequest	true	"资源"
//	@Success	200		{object}	api.Envelope{data=model.Star}
//	@Failure	403		{object}	api.Envelope
//	@Failure	404		{object}	api.Envelope
//	@Router		/api/v1/stars [post]
func (h *Handlers) StarResource(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	var req types.StarRequest
	if !bindJSON(c, &req) {
		return
	}

	star, err := h.svc.Stars.Star(c.Request.Context(), user, model.ResourceType(req.ResourceType), req.ResourceID)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, star)
}

// UnstarResource 取消收藏.
//
//	@Summary	取消收藏
//	@Tags		收藏
//	@Produce	json
//	@Param		type	path		string	true	"file 或 folder"
//	@Param		id		path		string	true	"资源ID"
//	@Success	200		{object}	api.Envelope
//	@Router		/api/v1/stars/{type}/{id} [delete]
func (h *Handlers) UnstarResource(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	rt, ok := resourceParam(c)
	if !ok {
		return
	}

	if err := h.svc.Stars.Unstar(c.Request.Context(), user, rt, c.Param("id")); err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, gin.H{"resource_type": rt, "id": c.Param("id"), "starred": false})
}

// ListStars 列出收藏.
//
//	@Summary	列出收藏
//	@Tags		收藏
//	@Produce	json
//	@Success	200	{object}	api.Envelope{data=[]model.Star}
//	@Router		/api/v1/stars [get]
func (h *Handlers) ListStars(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	stars, err := h.svc.Stars.List(c.Request.Context(), user)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, stars)
}
