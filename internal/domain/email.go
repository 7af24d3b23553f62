package domain

import "time"

// EmailRecord 表示一封已归一化并持久化的入站邮件。
//
// ReceivedAt 在摄入时由服务端赋值，不接受调用方提供。
// URLs 由正文派生，保持首次出现顺序且允许重复，写入后不再修改。
// 创建后唯一可变的字段是 Processed（由外部消费者显式置位）
// 和 SpamScore（由回填作业更新）。
type EmailRecord struct {
	ID          string    `json:"id"`
	SourceID    *string   `json:"sourceId,omitempty"`
	ToAddress   string    `json:"toAddress"`
	FromAddress string    `json:"fromAddress"`
	Subject     string    `json:"subject"`
	BodyText    string    `json:"bodyText"`
	BodyHTML    string    `json:"bodyHtml"`
	URLs        []string  `json:"urls"`
	ReceivedAt  time.Time `json:"receivedAt"`
	Processed   bool      `json:"processed"`
	SpamScore   float64   `json:"spamScore"`
}

// EmailFilter 定义邮件列表查询条件。
type EmailFilter struct {
	SourceID  *string // 按来源过滤
	Processed *bool   // 按处理状态过滤
	Limit     int     // 0 表示不限制
	Offset    int
}
