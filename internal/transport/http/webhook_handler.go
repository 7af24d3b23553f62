package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailfoxes/backend/internal/service"
)

// parseEmailForm SendGrid Inbound Parse 回调的表单字段。
// 供给方把整封邮件拆成字段后以 multipart/form-data 提交；
// "email" 字段是未拆分的原始 MIME 文本，拆好的字段缺失时从它解码。
type parseEmailForm struct {
	To      string `form:"to"`
	From    string `form:"from"`
	Subject string `form:"subject"`
	Text    string `form:"text"`
	HTML    string `form:"html"`
	Email   string `form:"email"`
}

// parseEmail 处理入站邮件 webhook 回调。
//
// 内容缺失是客户端错误（400），存储故障是服务端错误（500），
// 两者必须区分：供给方依据状态码决定是否重试投递。
func (h *Handler) parseEmail(c *gin.Context) {
	var form parseEmailForm
	if err := c.ShouldBind(&form); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	record, err := h.emails.Ingest(service.IngestInput{
		To:      form.To,
		From:    form.From,
		Subject: form.Subject,
		Text:    form.Text,
		HTML:    form.HTML,
		RawMIME: form.Email,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoContent) {
			BadRequest(c, GetErrorMessage(service.ErrNoContent))
			return
		}
		h.logger.Error("ingest email failed",
			zap.String("to", form.To),
			zap.String("from", form.From),
			zap.Error(err),
		)
		if h.metrics != nil {
			h.metrics.IngestFailures.Inc()
		}
		InternalError(c, MsgIngestFailed)
		return
	}

	if h.metrics != nil {
		h.metrics.EmailsIngested.Inc()
	}
	h.logger.Info("email ingested",
		zap.String("email_id", record.ID),
		zap.String("to", record.ToAddress),
		zap.Int("urls", len(record.URLs)),
	)
	Created(c, record)
}
