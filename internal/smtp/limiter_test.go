package smtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionLimiter(t *testing.T) {
	t.Run("并发连接数受上限约束", func(t *testing.T) {
		limiter := NewConnectionLimiter(2, 100)

		assert.True(t, limiter.Acquire())
		assert.True(t, limiter.Acquire())
		assert.False(t, limiter.Acquire())

		limiter.Release()
		assert.True(t, limiter.Acquire())
	})

	t.Run("释放不会把计数降到负数", func(t *testing.T) {
		limiter := NewConnectionLimiter(1, 100)

		limiter.Release()
		assert.Equal(t, 0, limiter.Current())

		assert.True(t, limiter.Acquire())
		assert.Equal(t, 1, limiter.Current())
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("令牌耗尽后拒绝", func(t *testing.T) {
		limiter := NewRateLimiter(3)

		assert.True(t, limiter.Allow())
		assert.True(t, limiter.Allow())
		assert.True(t, limiter.Allow())
		assert.False(t, limiter.Allow())
	})
}
