package handle

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/api"
	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/internal/service"
	"github.com/yeisme/drivevault/pkg/internal/types"
	"github.com/yeisme/drivevault/pkg/log"
)

// multipartSlack multipart 边界与表单字段的额外余量.
const multipartSlack = 1 << 20

// UploadFile 上传文件.
//
//	@Summary		上传文件
//	@Description	multipart 表单上传，file 为内容，folder_id 可选，name 可覆盖原始文件名
//	@Tags			文件
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file		formData	file	true	"文件内容"
//	@Param			folder_id	formData	string	false	"目标文件夹ID"
//	@Param			name		formData	string	false	"文件名"
//	@Success		201			{object}	api.Envelope{data=model.File}
//	@Failure		400			{object}	api.Envelope
//	@Failure		403			{object}	api.Envelope
//	@Failure		404			{object}	api.Envelope
//	@Router			/api/v1/files [post]
func (h *Handlers) UploadFile(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	limit := h.svc.Files.MaxUploadBytes()
	if limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartSlack)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(c, apperr.ErrFileTooLarge.WithMessage("file exceeds the %d byte upload limit", limit))

			return
		}

		api.Invalid(c, "missing multipart field file", map[string]string{"file": "failed on required"})

		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = filepath.Base(header.Filename)
	}

	body, err := header.Open()
	if err != nil {
		api.Fail(c, err)

		return
	}

	defer func() {
		if cerr := body.Close(); cerr != nil {
			log.Logger().Warn().Err(cerr).Msg("close multipart file")
		}
	}()

	folderID := c.PostForm("folder_id")

	file, err := h.svc.Files.Upload(c.Request.Context(), user, service.UploadInput{
		Name:        name,
		FolderID:    optionalID(&folderID),
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        body,
	})
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.Created(c, file)
}

// GetFile 读取文件元数据与预签名下载地址.
//
//	@Summary	读取文件
//	@Tags		文件
//	@Produce	json
//	@Param		id	path		string	true	"文件ID"
//	@Success	200	{object}	api.Envelope{data=service.FileView}
//	@Failure	403	{object}	api.Envelope
//	@Failure	404	{object}	api.Envelope
//	@Router		/api/v1/files/{id} [get]
func (h *Handlers) GetFile(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	view, err := h.svc.Files.Get(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, view)
}

// RenameFile 重命名文件.
//
//	@Summary	重命名文件
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"文件ID"
//	@Param		body	body		types.RenameRequest	true	"新名称"
//	@Success	200		{object}	api.Envelope{data=model.File}
//	@Failure	400		{object}	api.Envelope
//	@Failure	403		{object}	api.Envelope
//	@Router		/api/v1/files/{id} [patch]
func (h *Handlers) RenameFile(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	var req types.RenameRequest
	if !bindJSON(c, &req) {
		return
	}

	file, err := h.svc.Files.Rename(c.Request.Context(), c.Param("id"), user, req.Name)
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, file)
}

// MoveFile 移动文件.
//
//	@Summary	移动文件
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"文件ID"
//	@Param		body	body		types.MoveFileRequest	true	"目标文件夹"
//	@Success	200		{object}	api.Envelope{data=model.File}
//	@Failure	403		{object}	api.Envelope
//	@Failure	404		{object}	api.Envelope
//	@Router		/api/v1/files/{id}/move [post]
func (h *Handlers) MoveFile(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	var req types.MoveFileRequest
	if !bindJSON(c, &req) {
		return
	}

	file, err := h.svc.Files.Move(c.Request.Context(), c.Param("id"), user, optionalID(req.FolderID))
	if err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, file)
}

// TrashFile 把文件移入回收站.
//
//	@Summary	删除文件（移入回收站）
//	@Tags		文件
//	@Produce	json
//	@Param		id	path		string	true	"文件ID"
//	@Success	200	{object}	api.Envelope
//	@Failure	403	{object}	api.Envelope
//	@Failure	404	{object}	api.Envelope
//	@Router		/api/v1/files/{id} [delete]
func (h *Handlers) TrashFile(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	if err := h.svc.Files.Trash(c.Request.Context(), c.Param("id"), user); err != nil {
		api.Fail(c, err)

		return
	}

	api.OK(c, gin.H{"id": c.Param("id"), "trashed": true})
}
