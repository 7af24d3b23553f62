package httptransport

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailfoxes/backend/internal/domain"
	"mailfoxes/backend/internal/service"
	"mailfoxes/backend/internal/storage"
)

// listEmails 列出邮件展示视图。
// 支持 source_id / processed / limit / offset 查询参数。
func (h *Handler) listEmails(c *gin.Context) {
	var filter domain.EmailFilter

	if sourceID := c.Query("source_id"); sourceID != "" {
		filter.SourceID = &sourceID
	}
	if raw := c.Query("processed"); raw != "" {
		processed, err := strconv.ParseBool(raw)
		if err != nil {
			BadRequest(c, MsgInvalidRequest)
			return
		}
		filter.Processed = &processed
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			BadRequest(c, MsgInvalidRequest)
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			BadRequest(c, MsgInvalidRequest)
			return
		}
		filter.Offset = offset
	}

	views, err := h.emails.List(filter)
	if err != nil {
		h.logger.Error("list emails failed", zap.Error(err))
		InternalError(c, MsgEmailListFailed)
		return
	}
	Success(c, views)
}

// getEmail 获取单封邮件的展示视图（派生字段读取时计算）。
func (h *Handler) getEmail(c *gin.Context) {
	view, err := h.emails.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrEmailNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrEmailNotFound))
			return
		}
		h.logger.Error("get email failed", zap.String("email_id", c.Param("id")), zap.Error(err))
		InternalError(c, MsgEmailGetFailed)
		return
	}
	Success(c, view)
}

// markEmailProcessed 将邮件置为已处理。重复标记是幂等的。
func (h *Handler) markEmailProcessed(c *gin.Context) {
	if err := h.emails.MarkProcessed(c.Param("id")); err != nil {
		if errors.Is(err, storage.ErrEmailNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrEmailNotFound))
			return
		}
		h.logger.Error("mark email processed failed", zap.String("email_id", c.Param("id")), zap.Error(err))
		InternalError(c, MsgEmailMarkFailed)
		return
	}
	if h.metrics != nil {
		h.metrics.EmailsProcessed.Inc()
	}
	SuccessWithMsg(c, "已标记为处理完成", nil)
}

// backfillSpamRequest 垃圾分回填请求体。
type backfillSpamRequest struct {
	SourceID string `json:"sourceId" binding:"required"`
	Limit    int    `json:"limit"`
}

// backfillSpamScores 为指定来源的存量邮件回填垃圾分。
// 单封检测失败不中断整批，统计在响应的 failed 字段中。
func (h *Handler) backfillSpamScores(c *gin.Context) {
	var req backfillSpamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.emails.BackfillSpamScores(req.SourceID, req.Limit)
	if err != nil {
		if errors.Is(err, service.ErrSpamCheckerUnavailable) {
			ServiceUnavailable(c, GetErrorMessage(service.ErrSpamCheckerUnavailable))
			return
		}
		h.logger.Error("spam backfill failed", zap.String("source_id", req.SourceID), zap.Error(err))
		InternalError(c, MsgBackfillFailed)
		return
	}
	if h.metrics != nil {
		h.metrics.SpamBackfilled.Add(float64(result.Scored))
	}
	Success(c, result)
}
