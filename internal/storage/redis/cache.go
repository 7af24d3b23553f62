package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mailfoxes/backend/internal/domain"
	"mailfoxes/backend/internal/storage"
)

// ErrCacheMiss 表示缓存中没有对应条目。
var ErrCacheMiss = errors.New("analysis entry not found in cache")

// Cache Redis 缓存实现，作为分析结果的 L2 缓存。
// 多个无状态进程共享同一份缓存条目。
type Cache struct {
	client *redis.Client
	ctx    context.Context
}

// NewCache 创建 Redis 缓存实例。
func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{
		client: client,
		ctx:    ctx,
	}, nil
}

// GetAnalysis 获取缓存的分析结果。
func (c *Cache) GetAnalysis(key string) (*domain.AnalysisEntry, error) {
	data, err := c.client.Get(c.ctx, cacheKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var entry domain.AnalysisEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// SaveAnalysis 缓存分析结果。
func (c *Cache) SaveAnalysis(entry *domain.AnalysisEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, cacheKey(entry.Key), data, ttl).Err()
}

// Close 关闭 Redis 连接。
func (c *Cache) Close() error {
	return c.client.Close()
}

// Health 检查 Redis 健康状态。
func (c *Cache) Health() error {
	return c.client.Ping(c.ctx).Err()
}

func cacheKey(key string) string {
	return fmt.Sprintf("analysis:%s", key)
}

var _ storage.AnalysisCache = (*Cache)(nil)
