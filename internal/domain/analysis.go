package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// AnalysisEntry 表示一次 LLM 分析结果的缓存条目，新鲜期为一天。
type AnalysisEntry struct {
	Key       string    `json:"key"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// AnalysisCacheTTL 分析缓存的新鲜窗口。
const AnalysisCacheTTL = 24 * time.Hour

// AnalysisCacheKey 计算分析缓存键：时间范围 + 来源集合 + 提示词的哈希。
// 来源 ID 先排序，保证集合相同则键相同。
func AnalysisCacheKey(start, end time.Time, sourceIDs []string, prompt string) string {
	ids := make([]string, len(sourceIDs))
	copy(ids, sourceIDs)
	sort.Strings(ids)

	h := sha256.New()
	h.Write([]byte(start.UTC().Format(time.RFC3339)))
	h.Write([]byte("|"))
	h.Write([]byte(end.UTC().Format(time.RFC3339)))
	h.Write([]byte("|"))
	h.Write([]byte(strings.Join(ids, ",")))
	h.Write([]byte("|"))
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}
