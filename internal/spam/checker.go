package spam

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// DefaultEndpoint Postmark SpamCheck 公开接口。
const DefaultEndpoint = "https://spamcheck.postmarkapp.com/filter"

// Checker 垃圾分检测客户端，调用外部 SpamAssassin 接口。
// 只取分数，不取完整报告。
type Checker struct {
	endpoint   string
	httpClient *http.Client
}

// NewChecker 创建垃圾分检测客户端。endpoint 为空时使用默认接口。
func NewChecker(endpoint string) *Checker {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Checker{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type checkRequest struct {
	Email   string `json:"email"`
	Options string `json:"options"`
}

type checkResponse struct {
	Success bool   `json:"success"`
	Score   string `json:"score"`
	Message string `json:"message"`
}

// Check 对重组后的原始邮件文本打分。
func (c *Checker) Check(rawEmail string) (float64, error) {
	payload, err := json.Marshal(checkRequest{
		Email:   rawEmail,
		Options: "short",
	})
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Post(c.endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("spam check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("spam check returned status %d", resp.StatusCode)
	}

	var result checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("spam check response: %w", err)
	}
	if !result.Success {
		return 0, fmt.Errorf("spam check failed: %s", result.Message)
	}

	score, err := strconv.ParseFloat(result.Score, 64)
	if err != nil {
		return 0, fmt.Errorf("spam check score %q: %w", result.Score, err)
	}
	return score, nil
}
