package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mailfoxes/backend/internal/cache"
	"mailfoxes/backend/internal/domain"
	"mailfoxes/backend/internal/storage"
)

// ErrAnalyzerUnavailable 未配置分析服务（外部 LLM 协作方缺席）。
var ErrAnalyzerUnavailable = errors.New("analyzer not configured")

// Analyzer LLM 分析协作方接口。具体实现是外部服务调用，不在本系统内。
type Analyzer interface {
	Analyze(ctx context.Context, prompt string, corpus string) (string, error)
}

// AnalysisService 封装跨来源的邮件分析，结果按
// 时间范围 + 来源集合 + 提示词 做一天新鲜期的记忆化。
//
// 摄入管线不依赖本服务；分析服务缺席只影响分析端点本身。
type AnalysisService struct {
	emails   storage.EmailRepository
	sources  storage.SourceRepository
	analyzer Analyzer              // 可选
	local    *cache.LocalCache     // L1
	shared   storage.AnalysisCache // L2，可选（多进程部署时共享）
}

// NewAnalysisService 创建分析业务服务。
func NewAnalysisService(emails storage.EmailRepository, sources storage.SourceRepository) *AnalysisService {
	return &AnalysisService{
		emails:  emails,
		sources: sources,
		local:   cache.NewLocalCache(domain.AnalysisCacheTTL),
	}
}

// SetAnalyzer 设置分析服务（可选协作方）。
func (s *AnalysisService) SetAnalyzer(analyzer Analyzer) {
	s.analyzer = analyzer
}

// SetSharedCache 设置共享缓存（L2）。
func (s *AnalysisService) SetSharedCache(shared storage.AnalysisCache) {
	s.shared = shared
}

// Analyze 对时间范围内指定来源的邮件做一次分析，结果记忆化一天。
func (s *AnalysisService) Analyze(ctx context.Context, start, end time.Time, sourceIDs []string, prompt string) (*domain.AnalysisEntry, error) {
	key := domain.AnalysisCacheKey(start, end, sourceIDs, prompt)

	// L1
	if val, ok := s.local.Get(key); ok {
		if entry, ok := val.(*domain.AnalysisEntry); ok {
			return entry, nil
		}
	}

	// L2
	if s.shared != nil {
		if entry, err := s.shared.GetAnalysis(key); err == nil {
			if time.Since(entry.CreatedAt) < domain.AnalysisCacheTTL {
				s.local.Set(key, entry, 0)
				return entry, nil
			}
		}
	}

	if s.analyzer == nil {
		return nil, ErrAnalyzerUnavailable
	}

	corpus, err := s.buildCorpus(start, end, sourceIDs)
	if err != nil {
		return nil, err
	}

	text, err := s.analyzer.Analyze(ctx, prompt, corpus)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	entry := &domain.AnalysisEntry{
		Key:       key,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	s.local.Set(key, entry, 0)
	if s.shared != nil {
		// 共享缓存写失败不影响本次结果
		_ = s.shared.SaveAnalysis(entry, domain.AnalysisCacheTTL)
	}
	return entry, nil
}

// buildCorpus 汇集时间范围内各来源的邮件摘要文本，作为分析输入。
func (s *AnalysisService) buildCorpus(start, end time.Time, sourceIDs []string) (string, error) {
	var b strings.Builder

	for _, sourceID := range sourceIDs {
		source, err := s.sources.GetSource(sourceID)
		if err != nil {
			return "", err
		}

		id := sourceID
		records, err := s.emails.ListEmails(domain.EmailFilter{SourceID: &id})
		if err != nil {
			return "", err
		}

		fmt.Fprintf(&b, "## %s\n", source.DisplayIdentity())
		for _, record := range records {
			if record.ReceivedAt.Before(start) || record.ReceivedAt.After(end) {
				continue
			}
			view := domain.NewEmailView(record)
			fmt.Fprintf(&b, "- [%s] %s (words=%d, links=%d)\n",
				record.ReceivedAt.Format("2006-01-02"), record.Subject, view.WordCount, view.LinkCount)
		}
	}
	return b.String(), nil
}
