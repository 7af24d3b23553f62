package sqlite

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"mailfoxes/backend/internal/domain"
	"mailfoxes/backend/internal/storage"
)

// Store SQLite 嵌入式存储实现，用于本地开发与单机部署。
//
// SQLite 没有数组列类型，urls 序列化为 JSON 存入 TEXT 列；
// 领域层只看到 []string，感知不到后端差异。
type Store struct {
	db *gorm.DB
}

// sourceRow email_sources 表的行模型。
type sourceRow struct {
	ID           string  `gorm:"primaryKey;type:varchar(36)"`
	Name         string  `gorm:"type:varchar(255)"`
	EmailAddress string  `gorm:"type:varchar(255);uniqueIndex"`
	Description  string  `gorm:"type:text"`
	DisplayName  *string `gorm:"type:varchar(255)"`
	ParentID     *string `gorm:"type:varchar(36);index"`
	Hidden       bool    `gorm:"default:false;index"`
	CreatedAt    time.Time
}

func (sourceRow) TableName() string { return "email_sources" }

// emailRow emails 表的行模型。urls 存 JSON 文本。
type emailRow struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	SourceID    *string   `gorm:"type:varchar(36);index"`
	ToAddress   string    `gorm:"type:varchar(255)"`
	FromAddress string    `gorm:"type:varchar(255)"`
	Subject     string    `gorm:"type:text"`
	BodyText    string    `gorm:"type:text"`
	BodyHTML    string    `gorm:"column:body_html;type:text"`
	URLs        string    `gorm:"column:urls;type:text"`
	ReceivedAt  time.Time `gorm:"index"`
	Processed   bool      `gorm:"default:false;index"`
	SpamScore   float64   `gorm:"default:0"`
}

func (emailRow) TableName() string { return "emails" }

// NewStore 创建 SQLite 存储实例，必要时创建数据目录。
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(sqlite.Open(path), config)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Migrate 自动迁移数据库表结构。
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&sourceRow{}, &emailRow{})
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库健康状态。
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// ========== Source Repository ==========

// SaveSource 保存来源。
func (s *Store) SaveSource(source *domain.EmailSource) error {
	row := toSourceRow(source)
	return s.db.Save(&row).Error
}

// GetSource 根据 ID 获取来源。
func (s *Store) GetSource(id string) (*domain.EmailSource, error) {
	var row sourceRow
	err := s.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, storage.ErrSourceNotFound
		}
		return nil, err
	}
	return toDomainSource(&row), nil
}

// GetSourceByAddress 根据收件地址获取来源。
func (s *Store) GetSourceByAddress(address string) (*domain.EmailSource, error) {
	var row sourceRow
	err := s.db.Where("email_address = ?", normalizeAddr(address)).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, storage.ErrSourceNotFound
		}
		return nil, err
	}
	return toDomainSource(&row), nil
}

// ListSources 列出来源，默认排除隐藏项。
func (s *Store) ListSources(includeHidden bool) ([]domain.EmailSource, error) {
	query := s.db.Order("created_at ASC")
	if !includeHidden {
		query = query.Where("hidden = ?", false)
	}

	var rows []sourceRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]domain.EmailSource, 0, len(rows))
	for i := range rows {
		result = append(result, *toDomainSource(&rows[i]))
	}
	return result, nil
}

// UpdateSource 更新来源。
func (s *Store) UpdateSource(source *domain.EmailSource) error {
	row := toSourceRow(source)
	result := s.db.Model(&sourceRow{}).Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"name":          row.Name,
			"email_address": row.EmailAddress,
			"description":   row.Description,
			"display_name":  row.DisplayName,
			"parent_id":     row.ParentID,
			"hidden":        row.Hidden,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrSourceNotFound
	}
	return nil
}

// DeleteSource 删除来源，关联邮件的 source_id 置空。
func (s *Store) DeleteSource(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&emailRow{}).Where("source_id = ?", id).
			Update("source_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&sourceRow{}).Where("parent_id = ?", id).
			Update("parent_id", nil).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&sourceRow{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrSourceNotFound
		}
		return nil
	})
}

// FindOrCreateSource 按唯一收件地址执行 upsert。
// SQLite 同样支持 ON CONFLICT DO NOTHING，语义与 PostgreSQL 后端一致。
func (s *Store) FindOrCreateSource(source *domain.EmailSource) (*domain.EmailSource, error) {
	row := toSourceRow(source)
	row.EmailAddress = normalizeAddr(row.EmailAddress)

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email_address"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	var existing sourceRow
	if err := s.db.Where("email_address = ?", row.EmailAddress).First(&existing).Error; err != nil {
		return nil, err
	}
	return toDomainSource(&existing), nil
}

// ========== Email Repository ==========

// SaveEmail 保存邮件记录。
func (s *Store) SaveEmail(record *domain.EmailRecord) error {
	row, err := toEmailRow(record)
	if err != nil {
		return err
	}
	return s.db.Save(&row).Error
}

// GetEmail 根据 ID 获取邮件记录。
func (s *Store) GetEmail(id string) (*domain.EmailRecord, error) {
	var row emailRow
	err := s.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, storage.ErrEmailNotFound
		}
		return nil, err
	}
	return toDomainEmail(&row), nil
}

// ListEmails 按条件列出邮件，接收时间倒序。
func (s *Store) ListEmails(filter domain.EmailFilter) ([]domain.EmailRecord, error) {
	query := s.db.Order("received_at DESC")
	if filter.SourceID != nil {
		query = query.Where("source_id = ?", *filter.SourceID)
	}
	if filter.Processed != nil {
		query = query.Where("processed = ?", *filter.Processed)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []emailRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]domain.EmailRecord, 0, len(rows))
	for i := range rows {
		result = append(result, *toDomainEmail(&rows[i]))
	}
	return result, nil
}

// MarkProcessed 将邮件置为已处理。
func (s *Store) MarkProcessed(id string) error {
	result := s.db.Model(&emailRow{}).Where("id = ?", id).Update("processed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrEmailNotFound
	}
	return nil
}

// UpdateSpamScore 更新垃圾分。
func (s *Store) UpdateSpamScore(id string, score float64) error {
	result := s.db.Model(&emailRow{}).Where("id = ?", id).Update("spam_score", score)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrEmailNotFound
	}
	return nil
}

// ListEmailsForSpamBackfill 返回指定来源下尚无垃圾分的邮件。
func (s *Store) ListEmailsForSpamBackfill(sourceID string, limit int) ([]domain.EmailRecord, error) {
	query := s.db.Where("source_id = ? AND (spam_score IS NULL OR spam_score = 0)", sourceID).
		Order("received_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []emailRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]domain.EmailRecord, 0, len(rows))
	for i := range rows {
		result = append(result, *toDomainEmail(&rows[i]))
	}
	return result, nil
}

// CountEmails 统计邮件总数。
func (s *Store) CountEmails() (int64, error) {
	var count int64
	err := s.db.Model(&emailRow{}).Count(&count).Error
	return count, err
}

// ========== 行模型转换 ==========

func toSourceRow(source *domain.EmailSource) sourceRow {
	return sourceRow{
		ID:           source.ID,
		Name:         source.Name,
		EmailAddress: source.EmailAddress,
		Description:  source.Description,
		DisplayName:  source.DisplayName,
		ParentID:     source.ParentID,
		Hidden:       source.Hidden,
		CreatedAt:    source.CreatedAt,
	}
}

func toDomainSource(row *sourceRow) *domain.EmailSource {
	return &domain.EmailSource{
		ID:           row.ID,
		Name:         row.Name,
		EmailAddress: row.EmailAddress,
		Description:  row.Description,
		DisplayName:  row.DisplayName,
		ParentID:     row.ParentID,
		Hidden:       row.Hidden,
		CreatedAt:    row.CreatedAt,
	}
}

func toEmailRow(record *domain.EmailRecord) (emailRow, error) {
	urls, err := json.Marshal(record.URLs)
	if err != nil {
		return emailRow{}, fmt.Errorf("failed to encode urls: %w", err)
	}
	return emailRow{
		ID:          record.ID,
		SourceID:    record.SourceID,
		ToAddress:   record.ToAddress,
		FromAddress: record.FromAddress,
		Subject:     record.Subject,
		BodyText:    record.BodyText,
		BodyHTML:    record.BodyHTML,
		URLs:        string(urls),
		ReceivedAt:  record.ReceivedAt,
		Processed:   record.Processed,
		SpamScore:   record.SpamScore,
	}, nil
}

func toDomainEmail(row *emailRow) *domain.EmailRecord {
	var urls []string
	if row.URLs != "" {
		// 历史数据可能存在非 JSON 值，解不开时按空序列处理
		_ = json.Unmarshal([]byte(row.URLs), &urls)
	}
	if urls == nil {
		urls = []string{}
	}
	return &domain.EmailRecord{
		ID:          row.ID,
		SourceID:    row.SourceID,
		ToAddress:   row.ToAddress,
		FromAddress: row.FromAddress,
		Subject:     row.Subject,
		BodyText:    row.BodyText,
		BodyHTML:    row.BodyHTML,
		URLs:        urls,
		ReceivedAt:  row.ReceivedAt,
		Processed:   row.Processed,
		SpamScore:   row.SpamScore,
	}
}

func normalizeAddr(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

var _ storage.Store = (*Store)(nil)
