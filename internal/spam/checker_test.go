package spam

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckerCheck(t *testing.T) {
	t.Run("解析成功响应的分数", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req checkRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "short", req.Options)
			assert.Contains(t, req.Email, "Subject: Offer")

			json.NewEncoder(w).Encode(checkResponse{Success: true, Score: "5.2"})
		}))
		defer server.Close()

		checker := NewChecker(server.URL)
		score, err := checker.Check("From: a@b.com\nTo: c@d.com\nSubject: Offer\n\nbody")

		assert.NoError(t, err)
		assert.Equal(t, 5.2, score)
	})

	t.Run("接口报告失败时返回错误", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(checkResponse{Success: false, Message: "invalid email"})
		}))
		defer server.Close()

		checker := NewChecker(server.URL)
		_, err := checker.Check("raw")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid email")
	})

	t.Run("非 200 状态码返回错误", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		checker := NewChecker(server.URL)
		_, err := checker.Check("raw")

		assert.Error(t, err)
	})

	t.Run("分数非数字时返回错误", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(checkResponse{Success: true, Score: "not-a-number"})
		}))
		defer server.Close()

		checker := NewChecker(server.URL)
		_, err := checker.Check("raw")

		assert.Error(t, err)
	})

	t.Run("未指定接口地址时使用默认地址", func(t *testing.T) {
		checker := NewChecker("")

		assert.Equal(t, DefaultEndpoint, checker.endpoint)
	})
}
