package httptransport

import (
	"mailfoxes/backend/internal/service"
	"mailfoxes/backend/internal/storage"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// 摄入错误
	service.ErrNoContent: "请求未携带可用的邮件内容",

	// 来源错误
	service.ErrAddressInvalid: "收件地址格式无效",
	service.ErrSourceConflict: "该收件地址已被其他来源使用",
	service.ErrSelfParent:     "来源不能合并到自身",
	storage.ErrSourceNotFound: "来源不存在",

	// 邮件错误
	storage.ErrEmailNotFound: "邮件不存在",

	// 协作方错误
	service.ErrSpamCheckerUnavailable: "垃圾分检测服务未配置",
	service.ErrAnalyzerUnavailable:    "分析服务未配置",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest   = "请求参数格式错误"
	MsgInvalidTimeRange = "时间范围格式无效"

	// 摄入相关
	MsgIngestFailed = "邮件摄入失败"

	// 邮件相关
	MsgEmailListFailed = "获取邮件列表失败"
	MsgEmailGetFailed  = "获取邮件详情失败"
	MsgEmailMarkFailed = "标记已处理失败"
	MsgBackfillFailed  = "垃圾分回填失败"

	// 来源相关
	MsgSourceCreateFailed      = "创建来源失败"
	MsgSourceListFailed        = "获取来源列表失败"
	MsgSourceGetFailed         = "获取来源详情失败"
	MsgSourceUpdateFailed      = "更新来源失败"
	MsgSourceDeleteFailed      = "删除来源失败"
	MsgSourceConsolidateFailed = "合并来源失败"

	// 分析相关
	MsgAnalysisFailed = "邮件分析失败"

	// 服务器错误
	MsgInternalError = "服务器内部错误，请稍后重试"
)
