package httptransport

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailfoxes/backend/internal/domain"
	"mailfoxes/backend/internal/service"
	"mailfoxes/backend/internal/storage"
)

// sourceResponse 来源详情响应，附带读取路径上解析出的展示身份。
type sourceResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	EmailAddress string    `json:"emailAddress"`
	Description  string    `json:"description,omitempty"`
	DisplayName  *string   `json:"displayName,omitempty"`
	ParentID     *string   `json:"parentId,omitempty"`
	Hidden       bool      `json:"hidden"`
	CreatedAt    time.Time `json:"createdAt"`
	Display      string    `json:"display"` // 合并解析后的展示身份
}

// createSourceRequest 创建来源请求体。
type createSourceRequest struct {
	Name         string  `json:"name" binding:"required"`
	EmailAddress string  `json:"emailAddress" binding:"required"`
	Description  string  `json:"description"`
	DisplayName  *string `json:"displayName"`
}

// updateSourceRequest 更新来源请求体，缺失字段保持不变。
type updateSourceRequest struct {
	Name        *string `json:"name"`
	DisplayName *string `json:"displayName"`
	Description *string `json:"description"`
	ParentID    *string `json:"parentId"`
	Hidden      *bool   `json:"hidden"`
}

// consolidateRequest 来源合并请求体。
type consolidateRequest struct {
	ParentID string `json:"parentId" binding:"required"`
}

// createSource 显式创建新来源。
func (h *Handler) createSource(c *gin.Context) {
	var req createSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	source, err := h.sources.Create(service.CreateSourceInput{
		Name:         req.Name,
		EmailAddress: req.EmailAddress,
		Description:  req.Description,
		DisplayName:  req.DisplayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAddressInvalid):
			BadRequest(c, GetErrorMessage(service.ErrAddressInvalid))
		case errors.Is(err, service.ErrSourceConflict):
			Conflict(c, GetErrorMessage(service.ErrSourceConflict))
		default:
			h.logger.Error("create source failed", zap.Error(err))
			InternalError(c, MsgSourceCreateFailed)
		}
		return
	}
	Created(c, h.sourceView(source))
}

// listSources 列出来源。include_hidden=true 时包含已合并隐藏的来源。
func (h *Handler) listSources(c *gin.Context) {
	includeHidden := false
	if raw := c.Query("include_hidden"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			BadRequest(c, MsgInvalidRequest)
			return
		}
		includeHidden = parsed
	}

	sources, err := h.sources.List(includeHidden)
	if err != nil {
		h.logger.Error("list sources failed", zap.Error(err))
		InternalError(c, MsgSourceListFailed)
		return
	}

	views := make([]sourceResponse, 0, len(sources))
	for i := range sources {
		views = append(views, h.sourceView(&sources[i]))
	}
	Success(c, views)
}

// getSource 获取单个来源详情。
func (h *Handler) getSource(c *gin.Context) {
	source, err := h.sources.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrSourceNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrSourceNotFound))
			return
		}
		h.logger.Error("get source failed", zap.String("source_id", c.Param("id")), zap.Error(err))
		InternalError(c, MsgSourceGetFailed)
		return
	}
	Success(c, h.sourceView(source))
}

// updateSource 更新来源的展示字段与合并关系。
func (h *Handler) updateSource(c *gin.Context) {
	var req updateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	source, err := h.sources.Update(c.Param("id"), service.UpdateSourceInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		ParentID:    req.ParentID,
		Hidden:      req.Hidden,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrSourceNotFound):
			NotFound(c, GetErrorMessage(storage.ErrSourceNotFound))
		case errors.Is(err, service.ErrSelfParent):
			BadRequest(c, GetErrorMessage(service.ErrSelfParent))
		default:
			h.logger.Error("update source failed", zap.String("source_id", c.Param("id")), zap.Error(err))
			InternalError(c, MsgSourceUpdateFailed)
		}
		return
	}
	Success(c, h.sourceView(source))
}

// consolidateSource 把来源合并到另一来源名下。
// 只影响展示归属，邮件数据保持原样。
func (h *Handler) consolidateSource(c *gin.Context) {
	var req consolidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	source, err := h.sources.Consolidate(c.Param("id"), req.ParentID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrSourceNotFound):
			NotFound(c, GetErrorMessage(storage.ErrSourceNotFound))
		case errors.Is(err, service.ErrSelfParent):
			BadRequest(c, GetErrorMessage(service.ErrSelfParent))
		default:
			h.logger.Error("consolidate source failed", zap.String("source_id", c.Param("id")), zap.Error(err))
			InternalError(c, MsgSourceConsolidateFailed)
		}
		return
	}
	SuccessWithMsg(c, "来源合并成功", h.sourceView(source))
}

// deleteSource 删除来源。关联邮件保留并解除来源引用。
func (h *Handler) deleteSource(c *gin.Context) {
	if err := h.sources.Delete(c.Param("id")); err != nil {
		if errors.Is(err, storage.ErrSourceNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrSourceNotFound))
			return
		}
		h.logger.Error("delete source failed", zap.String("source_id", c.Param("id")), zap.Error(err))
		InternalError(c, MsgSourceDeleteFailed)
		return
	}
	NoContent(c)
}

// sourceView 组装来源响应，解析一层父引用得到展示身份。
func (h *Handler) sourceView(source *domain.EmailSource) sourceResponse {
	return sourceResponse{
		ID:           source.ID,
		Name:         source.Name,
		EmailAddress: source.EmailAddress,
		Description:  source.Description,
		DisplayName:  source.DisplayName,
		ParentID:     source.ParentID,
		Hidden:       source.Hidden,
		CreatedAt:    source.CreatedAt,
		Display:      h.sources.DisplayFor(source),
	}
}
