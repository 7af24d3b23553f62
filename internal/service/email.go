package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mailfoxes/backend/internal/domain"
	"mailfoxes/backend/internal/mailparse"
	"mailfoxes/backend/internal/storage"
)

var (
	// ErrNoContent 请求未携带可用邮件内容（客户端错误，区别于存储故障）
	ErrNoContent = errors.New("no usable email content in request")
	// ErrSpamCheckerUnavailable 未配置垃圾分检测服务
	ErrSpamCheckerUnavailable = errors.New("spam checker not configured")
)

// SpamChecker 垃圾分检测协作方接口。
// 摄入管线不依赖它；缺席时分数保持默认 0。
type SpamChecker interface {
	Check(rawEmail string) (float64, error)
}

// EmailService 封装邮件记录的归一化、持久化与读取派生。
type EmailService struct {
	repo    storage.EmailRepository
	sources *SourceService
	checker SpamChecker // 可选
}

// NewEmailService 创建邮件业务服务。
func NewEmailService(repo storage.EmailRepository, sources *SourceService) *EmailService {
	return &EmailService{repo: repo, sources: sources}
}

// SetSpamChecker 设置垃圾分检测服务（可选协作方）。
func (s *EmailService) SetSpamChecker(checker SpamChecker) {
	s.checker = checker
}

// IngestInput 定义摄入一封邮件的输入。
// 要么提供 webhook 表单拆好的字段，要么提供一整段原始 MIME 文本。
type IngestInput struct {
	To      string
	From    string
	Subject string
	Text    string
	HTML    string
	RawMIME string
}

// Ingest 摄入一封入站邮件：解码、提取链接、解析来源、组装并持久化。
//
// 接收时间在归一化时由服务端赋值。链接从纯文本正文提取，
// 纯文本为空时才用 HTML（与展示正文的偏好相反，按来源系统的既定行为保留）。
// 来源解析每封邮件只发生一次；若来源自动创建已提交而后续邮件写入失败，
// 留下的来源行是可接受的无害副作用，不做回滚。
func (s *EmailService) Ingest(input IngestInput) (*domain.EmailRecord, error) {
	if input.RawMIME != "" {
		parsed, err := mailparse.ParseRaw([]byte(input.RawMIME))
		if err != nil {
			if errors.Is(err, mailparse.ErrNoContent) {
				return nil, ErrNoContent
			}
			return nil, err
		}
		if input.To == "" {
			input.To = parsed.To
		}
		if input.From == "" {
			input.From = parsed.From
		}
		if input.Subject == "" {
			input.Subject = parsed.Subject
		}
		input.Text = parsed.Text
		input.HTML = parsed.HTML
	}

	if strings.TrimSpace(input.Text) == "" && strings.TrimSpace(input.HTML) == "" {
		return nil, ErrNoContent
	}

	// 链接提取：纯文本优先，纯文本为空时回退 HTML
	linkSource := input.Text
	if strings.TrimSpace(linkSource) == "" {
		linkSource = input.HTML
	}
	urls := mailparse.ExtractURLs(linkSource)

	sourceID, err := s.sources.Resolve(input.To, input.From)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}

	record := &domain.EmailRecord{
		ID:          uuid.NewString(),
		SourceID:    &sourceID,
		ToAddress:   input.To,
		FromAddress: input.From,
		Subject:     input.Subject,
		BodyText:    input.Text,
		BodyHTML:    input.HTML,
		URLs:        urls,
		ReceivedAt:  time.Now().UTC(),
		Processed:   false,
		SpamScore:   0,
	}

	if err := s.repo.SaveEmail(record); err != nil {
		return nil, fmt.Errorf("save email: %w", err)
	}
	return record, nil
}

// Get 获取单封邮件的展示视图。派生字段每次读取重新计算。
func (s *EmailService) Get(id string) (*domain.EmailView, error) {
	record, err := s.repo.GetEmail(id)
	if err != nil {
		return nil, err
	}
	view := domain.NewEmailView(*record)
	return &view, nil
}

// List 按条件列出邮件的展示视图。
func (s *EmailService) List(filter domain.EmailFilter) ([]domain.EmailView, error) {
	records, err := s.repo.ListEmails(filter)
	if err != nil {
		return nil, err
	}

	views := make([]domain.EmailView, 0, len(records))
	for _, record := range records {
		views = append(views, domain.NewEmailView(record))
	}
	return views, nil
}

// MarkProcessed 将邮件置为已处理。
// 这是 processed 标记唯一的转换路径，且不可回退。
func (s *EmailService) MarkProcessed(id string) error {
	return s.repo.MarkProcessed(id)
}

// Count 统计邮件总数。
func (s *EmailService) Count() (int64, error) {
	return s.repo.CountEmails()
}

// BackfillResult 垃圾分回填结果。
type BackfillResult struct {
	SourceID string `json:"sourceId"`
	Scored   int    `json:"scored"`
	Failed   int    `json:"failed"`
}

// BackfillSpamScores 为指定来源下尚无垃圾分的邮件计算并写入分数。
//
// 用收件/发件/主题/正文重组出近似原始报文交给检测服务。
// 单封检测失败写入默认分 0，不中断整批回填。
func (s *EmailService) BackfillSpamScores(sourceID string, limit int) (*BackfillResult, error) {
	if s.checker == nil {
		return nil, ErrSpamCheckerUnavailable
	}

	records, err := s.repo.ListEmailsForSpamBackfill(sourceID, limit)
	if err != nil {
		return nil, err
	}

	result := &BackfillResult{SourceID: sourceID}
	for _, record := range records {
		raw := fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\n\n%s",
			record.FromAddress, record.ToAddress, record.Subject, record.BodyText)

		score, checkErr := s.checker.Check(raw)
		if checkErr != nil {
			score = 0
			result.Failed++
		}
		if err := s.repo.UpdateSpamScore(record.ID, score); err != nil {
			return result, err
		}
		if checkErr == nil {
			result.Scored++
		}
	}
	return result, nil
}
