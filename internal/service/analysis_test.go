package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mailfoxes/backend/internal/storage/memory"
)

// stubAnalyzer 分析协作方桩，记录调用次数与入参。
type stubAnalyzer struct {
	calls    int
	corpus   string
	response string
}

func (a *stubAnalyzer) Analyze(ctx context.Context, prompt string, corpus string) (string, error) {
	a.calls++
	a.corpus = corpus
	return a.response, nil
}

func TestAnalysisService(t *testing.T) {
	t.Run("未配置分析服务时报错", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewAnalysisService(store, store)

		_, err := svc.Analyze(context.Background(), time.Now().Add(-time.Hour), time.Now(), []string{"a"}, "summarize")

		assert.ErrorIs(t, err, ErrAnalyzerUnavailable)
	})

	t.Run("相同参数组合命中缓存不重复调用", func(t *testing.T) {
		store := memory.NewStore()
		sources := NewSourceService(store)
		emails := NewEmailService(store, sources)
		svc := NewAnalysisService(store, store)

		analyzer := &stubAnalyzer{response: "analysis text"}
		svc.SetAnalyzer(analyzer)

		record, err := emails.Ingest(IngestInput{
			To:      "a@x.com",
			From:    "b@y.com",
			Subject: "Weekly",
			Text:    "content http://z.com",
		})
		assert.NoError(t, err)

		start := time.Now().Add(-time.Hour).UTC()
		end := time.Now().Add(time.Hour).UTC()
		sourceIDs := []string{*record.SourceID}

		first, err := svc.Analyze(context.Background(), start, end, sourceIDs, "summarize")
		assert.NoError(t, err)
		assert.Equal(t, "analysis text", first.Text)
		assert.Equal(t, 1, analyzer.calls)

		// 语料包含来源标题与邮件摘要
		assert.Contains(t, analyzer.corpus, "Y - Auto")
		assert.Contains(t, analyzer.corpus, "Weekly")

		second, err := svc.Analyze(context.Background(), start, end, sourceIDs, "summarize")
		assert.NoError(t, err)
		assert.Equal(t, first.Text, second.Text)
		assert.Equal(t, 1, analyzer.calls)
	})

	t.Run("提示词不同时重新分析", func(t *testing.T) {
		store := memory.NewStore()
		sources := NewSourceService(store)
		emails := NewEmailService(store, sources)
		svc := NewAnalysisService(store, store)

		analyzer := &stubAnalyzer{response: "text"}
		svc.SetAnalyzer(analyzer)

		record, err := emails.Ingest(IngestInput{To: "a@x.com", From: "b@y.com", Text: "body"})
		assert.NoError(t, err)

		start := time.Now().Add(-time.Hour).UTC()
		end := time.Now().Add(time.Hour).UTC()
		sourceIDs := []string{*record.SourceID}

		_, err = svc.Analyze(context.Background(), start, end, sourceIDs, "summarize")
		assert.NoError(t, err)
		_, err = svc.Analyze(context.Background(), start, end, sourceIDs, "compare")
		assert.NoError(t, err)

		assert.Equal(t, 2, analyzer.calls)
	})
}
