package health

import (
	"fmt"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"mailfoxes/backend/internal/storage"
)

// Pinger 可探活的依赖组件。
type Pinger interface {
	Health() error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	store  storage.Store
	cache  Pinger // 可选（共享缓存）
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器。cache 可以为 nil。
func NewHealthChecker(store storage.Store, cache Pinger, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		store:  store,
		cache:  cache,
		logger: logger,
	}

	hc.addChecks()
	return hc
}

// addChecks 添加健康检查
func (hc *HealthChecker) addChecks() {
	// 存储连接检查
	hc.health.AddReadinessCheck("storage", func() error {
		return hc.store.Health()
	})

	// 共享缓存检查（如果启用）
	if hc.cache != nil {
		hc.health.AddReadinessCheck("cache", func() error {
			return hc.cache.Health()
		})
	}

	// 进程存活检查
	hc.health.AddLivenessCheck("process", func() error {
		return nil
	})
}

// LiveEndpoint 存活探针处理函数。
// healthcheck 内部的 ServeMux 只认 /live 与 /ready 路径，
// 挂载到其它路径时必须直接暴露端点函数而不是整个处理器。
func (hc *HealthChecker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪探针处理函数。
func (hc *HealthChecker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.ReadyEndpoint(w, r)
}

// CheckHealth 执行一轮健康检查并返回各组件状态。
func (hc *HealthChecker) CheckHealth() map[string]string {
	results := make(map[string]string)

	if err := hc.store.Health(); err != nil {
		results["storage"] = fmt.Sprintf("ERROR: %v", err)
	} else {
		results["storage"] = "OK"
	}

	if hc.cache != nil {
		if err := hc.cache.Health(); err != nil {
			results["cache"] = fmt.Sprintf("ERROR: %v", err)
		} else {
			results["cache"] = "OK"
		}
	} else {
		results["cache"] = "NOT_AVAILABLE"
	}

	results["timestamp"] = time.Now().Format(time.RFC3339)
	return results
}
