package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// EmailView 是读取路径上的展示视图：在 EmailRecord 之上附加派生字段。
//
// 派生字段是存储记录的纯函数，每次读取重新计算，绝不写回存储。
// 同一条未变更的记录多次派生必须得到完全相同的结果。
type EmailView struct {
	EmailRecord
	DisplayBody   string `json:"displayBody"`
	SubjectLength int    `json:"subjectLength"`
	WordCount     int    `json:"wordCount"`
	LinkCount     int    `json:"linkCount"`
	ShareURL      string `json:"shareUrl"`
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// NewEmailView 基于持久化记录计算展示视图。
func NewEmailView(record EmailRecord) EmailView {
	return EmailView{
		EmailRecord:   record,
		DisplayBody:   displayBody(record.BodyText, record.BodyHTML),
		SubjectLength: len([]rune(record.Subject)),
		WordCount:     wordCount(record.BodyText, record.BodyHTML),
		LinkCount:     len(record.URLs),
		ShareURL:      fmt.Sprintf("/emails/%s", record.ID),
	}
}

// displayBody 选取展示正文。两种正文都存在时偏向 HTML，
// 与链接提取的纯文本优先相反，按来源系统的既定行为保留。
func displayBody(text, html string) string {
	if strings.TrimSpace(html) != "" {
		return html
	}
	return text
}

// wordCount 统计正文词数。优先使用纯文本正文；
// 纯文本为空时剥离 HTML 标签后按空白切词。
func wordCount(text, html string) int {
	if strings.TrimSpace(text) != "" {
		return len(strings.Fields(text))
	}
	stripped := htmlTagPattern.ReplaceAllString(html, " ")
	return len(strings.Fields(stripped))
}
