package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEmailView(t *testing.T) {
	t.Run("派生字段基于存储记录计算", func(t *testing.T) {
		record := EmailRecord{
			ID:       "email-1",
			Subject:  "Hello World",
			BodyText: "See http://z.com for details",
			URLs:     []string{"http://z.com"},
		}

		view := NewEmailView(record)

		assert.Equal(t, 11, view.SubjectLength)
		assert.Equal(t, 4, view.WordCount)
		assert.Equal(t, 1, view.LinkCount)
		assert.Equal(t, "/emails/email-1", view.ShareURL)
	})

	t.Run("主题长度按字符数统计", func(t *testing.T) {
		view := NewEmailView(EmailRecord{Subject: "你好世界"})

		assert.Equal(t, 4, view.SubjectLength)
	})

	t.Run("纯文本为空时剥离 HTML 标签统计词数", func(t *testing.T) {
		view := NewEmailView(EmailRecord{BodyHTML: "<p>Hello <b>world</b></p>"})

		assert.Equal(t, 2, view.WordCount)
	})

	t.Run("纯文本非空时忽略 HTML 正文", func(t *testing.T) {
		view := NewEmailView(EmailRecord{
			BodyText: "one two three",
			BodyHTML: "<p>a b c d e f</p>",
		})

		assert.Equal(t, 3, view.WordCount)
	})

	t.Run("展示正文偏向 HTML", func(t *testing.T) {
		view := NewEmailView(EmailRecord{
			BodyText: "plain version",
			BodyHTML: "<p>rich version</p>",
		})

		assert.Equal(t, "<p>rich version</p>", view.DisplayBody)
	})

	t.Run("HTML 为空时展示正文回退纯文本", func(t *testing.T) {
		view := NewEmailView(EmailRecord{BodyText: "plain only", BodyHTML: "  "})

		assert.Equal(t, "plain only", view.DisplayBody)
	})

	t.Run("同一记录重复派生结果一致", func(t *testing.T) {
		record := EmailRecord{
			ID:       "email-2",
			Subject:  "Stable",
			BodyText: "alpha beta",
			URLs:     []string{"http://a.com", "http://a.com"},
		}

		first := NewEmailView(record)
		second := NewEmailView(record)

		assert.Equal(t, first, second)
	})

	t.Run("链接数按存储的 urls 统计含重复项", func(t *testing.T) {
		view := NewEmailView(EmailRecord{
			URLs: []string{"http://x.com", "http://x.com", "http://y.com"},
		})

		assert.Equal(t, 3, view.LinkCount)
	})
}

func TestAnalysisCacheKey(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	t.Run("来源顺序不影响缓存键", func(t *testing.T) {
		key1 := AnalysisCacheKey(start, end, []string{"a", "b"}, "summarize")
		key2 := AnalysisCacheKey(start, end, []string{"b", "a"}, "summarize")

		assert.Equal(t, key1, key2)
	})

	t.Run("提示词不同则缓存键不同", func(t *testing.T) {
		key1 := AnalysisCacheKey(start, end, []string{"a"}, "summarize")
		key2 := AnalysisCacheKey(start, end, []string{"a"}, "compare")

		assert.NotEqual(t, key1, key2)
	})

	t.Run("时间范围不同则缓存键不同", func(t *testing.T) {
		key1 := AnalysisCacheKey(start, end, []string{"a"}, "summarize")
		key2 := AnalysisCacheKey(start.Add(time.Hour), end, []string{"a"}, "summarize")

		assert.NotEqual(t, key1, key2)
	})
}
