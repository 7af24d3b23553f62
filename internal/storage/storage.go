package storage

import (
	"errors"
	"time"

	"mailfoxes/backend/internal/domain"
)

var (
	// ErrSourceNotFound 来源不存在错误
	ErrSourceNotFound = errors.New("email source not found")
	// ErrEmailNotFound 邮件不存在错误
	ErrEmailNotFound = errors.New("email record not found")
)

// SourceRepository 定义邮件来源的数据存取操作。
type SourceRepository interface {
	SaveSource(source *domain.EmailSource) error
	GetSource(id string) (*domain.EmailSource, error)
	GetSourceByAddress(address string) (*domain.EmailSource, error)
	ListSources(includeHidden bool) ([]domain.EmailSource, error)
	UpdateSource(source *domain.EmailSource) error
	// DeleteSource 删除来源，关联邮件的 source_id 置空而非级联删除
	DeleteSource(id string) error
	// FindOrCreateSource 按唯一收件地址执行 upsert：
	// 已存在返回现有行，不存在则插入。并发竞争时两边收敛到同一行，
	// 唯一约束冲突不暴露给调用方。
	FindOrCreateSource(source *domain.EmailSource) (*domain.EmailSource, error)
}

// EmailRepository 定义邮件记录的数据存取操作。
type EmailRepository interface {
	SaveEmail(record *domain.EmailRecord) error
	GetEmail(id string) (*domain.EmailRecord, error)
	ListEmails(filter domain.EmailFilter) ([]domain.EmailRecord, error)
	// MarkProcessed 将邮件置为已处理。单向转换，不可回退。
	MarkProcessed(id string) error
	UpdateSpamScore(id string, score float64) error
	// ListEmailsForSpamBackfill 返回指定来源下尚无垃圾分的邮件（NULL 或 0）
	ListEmailsForSpamBackfill(sourceID string, limit int) ([]domain.EmailRecord, error)
	CountEmails() (int64, error)
}

// AnalysisCache 定义分析结果的缓存存取操作。
type AnalysisCache interface {
	GetAnalysis(key string) (*domain.AnalysisEntry, error)
	SaveAnalysis(entry *domain.AnalysisEntry, ttl time.Duration) error
}

// Store 聚合所有存储接口。
type Store interface {
	SourceRepository
	EmailRepository
	Close() error
	Health() error
}
