package httptransport

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailfoxes/backend/internal/service"
	"mailfoxes/backend/internal/storage"
)

// analyze 对时间范围内指定来源的邮件执行分析。
//
// 查询参数: start / end（RFC 3339）、source_ids（逗号分隔）、prompt。
// 相同参数组合的结果记忆化一天，重复请求不会触发重复的外部调用。
func (h *Handler) analyze(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		BadRequest(c, MsgInvalidTimeRange)
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		BadRequest(c, MsgInvalidTimeRange)
		return
	}
	if end.Before(start) {
		BadRequest(c, MsgInvalidTimeRange)
		return
	}

	var sourceIDs []string
	for _, id := range strings.Split(c.Query("source_ids"), ",") {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			sourceIDs = append(sourceIDs, trimmed)
		}
	}
	if len(sourceIDs) == 0 {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	entry, err := h.analysis.Analyze(c.Request.Context(), start, end, sourceIDs, c.Query("prompt"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAnalyzerUnavailable):
			ServiceUnavailable(c, GetErrorMessage(service.ErrAnalyzerUnavailable))
		case errors.Is(err, storage.ErrSourceNotFound):
			NotFound(c, GetErrorMessage(storage.ErrSourceNotFound))
		default:
			h.logger.Error("analysis failed", zap.Error(err))
			InternalError(c, MsgAnalysisFailed)
		}
		return
	}
	Success(c, entry)
}
