package memory

import (
	"sort"
	"strings"
	"sync"

	"mailfoxes/backend/internal/domain"
	"mailfoxes/backend/internal/storage"
)

// Store 内存存储实现，用于开发环境与单元测试。
//
// 所有操作由互斥锁保护；FindOrCreateSource 在锁内完成查找与插入，
// 与数据库后端的 upsert 语义保持一致。
type Store struct {
	mu            sync.RWMutex
	sources       map[string]*domain.EmailSource
	sourcesByAddr map[string]string // 收件地址 -> 来源 ID
	emails        map[string]*domain.EmailRecord
}

// NewStore 创建内存存储。
func NewStore() *Store {
	return &Store{
		sources:       make(map[string]*domain.EmailSource),
		sourcesByAddr: make(map[string]string),
		emails:        make(map[string]*domain.EmailRecord),
	}
}

// ========== Source Repository ==========

// SaveSource 保存来源。
func (s *Store) SaveSource(source *domain.EmailSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := cloneSource(source)
	s.sources[cloned.ID] = cloned
	s.sourcesByAddr[normalizeAddr(cloned.EmailAddress)] = cloned.ID
	return nil
}

// GetSource 根据 ID 获取来源。
func (s *Store) GetSource(id string) (*domain.EmailSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	source, ok := s.sources[id]
	if !ok {
		return nil, storage.ErrSourceNotFound
	}
	return cloneSource(source), nil
}

// GetSourceByAddress 根据收件地址获取来源。
func (s *Store) GetSourceByAddress(address string) (*domain.EmailSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.sourcesByAddr[normalizeAddr(address)]
	if !ok {
		return nil, storage.ErrSourceNotFound
	}
	return cloneSource(s.sources[id]), nil
}

// ListSources 列出来源，默认排除隐藏项。
func (s *Store) ListSources(includeHidden bool) ([]domain.EmailSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.EmailSource, 0, len(s.sources))
	for _, source := range s.sources {
		if source.Hidden && !includeHidden {
			continue
		}
		result = append(result, *cloneSource(source))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateSource 更新来源。
func (s *Store) UpdateSource(source *domain.EmailSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sources[source.ID]
	if !ok {
		return storage.ErrSourceNotFound
	}
	delete(s.sourcesByAddr, normalizeAddr(existing.EmailAddress))

	cloned := cloneSource(source)
	s.sources[cloned.ID] = cloned
	s.sourcesByAddr[normalizeAddr(cloned.EmailAddress)] = cloned.ID
	return nil
}

// DeleteSource 删除来源，关联邮件的 source_id 置空。
func (s *Store) DeleteSource(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	source, ok := s.sources[id]
	if !ok {
		return storage.ErrSourceNotFound
	}

	delete(s.sourcesByAddr, normalizeAddr(source.EmailAddress))
	delete(s.sources, id)

	// 孤儿保留：邮件不跟随删除
	for _, record := range s.emails {
		if record.SourceID != nil && *record.SourceID == id {
			record.SourceID = nil
		}
	}

	// 子来源的父引用一并解除
	for _, child := range s.sources {
		if child.ParentID != nil && *child.ParentID == id {
			child.ParentID = nil
		}
	}
	return nil
}

// FindOrCreateSource 按唯一收件地址查找或插入来源。
func (s *Store) FindOrCreateSource(source *domain.EmailSource) (*domain.EmailSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := normalizeAddr(source.EmailAddress)
	if id, ok := s.sourcesByAddr[addr]; ok {
		return cloneSource(s.sources[id]), nil
	}

	cloned := cloneSource(source)
	s.sources[cloned.ID] = cloned
	s.sourcesByAddr[addr] = cloned.ID
	return cloneSource(cloned), nil
}

// ========== Email Repository ==========

// SaveEmail 保存邮件记录。
func (s *Store) SaveEmail(record *domain.EmailRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.emails[record.ID] = cloneEmail(record)
	return nil
}

// GetEmail 根据 ID 获取邮件记录。
func (s *Store) GetEmail(id string) (*domain.EmailRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.emails[id]
	if !ok {
		return nil, storage.ErrEmailNotFound
	}
	return cloneEmail(record), nil
}

// ListEmails 按条件列出邮件，接收时间倒序。
func (s *Store) ListEmails(filter domain.EmailFilter) ([]domain.EmailRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.EmailRecord, 0, len(s.emails))
	for _, record := range s.emails {
		if filter.SourceID != nil {
			if record.SourceID == nil || *record.SourceID != *filter.SourceID {
				continue
			}
		}
		if filter.Processed != nil && record.Processed != *filter.Processed {
			continue
		}
		result = append(result, *cloneEmail(record))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []domain.EmailRecord{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// MarkProcessed 将邮件置为已处理。
func (s *Store) MarkProcessed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.emails[id]
	if !ok {
		return storage.ErrEmailNotFound
	}
	record.Processed = true
	return nil
}

// UpdateSpamScore 更新垃圾分。
func (s *Store) UpdateSpamScore(id string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.emails[id]
	if !ok {
		return storage.ErrEmailNotFound
	}
	record.SpamScore = score
	return nil
}

// ListEmailsForSpamBackfill 返回指定来源下垃圾分为 0 的邮件，接收时间倒序。
func (s *Store) ListEmailsForSpamBackfill(sourceID string, limit int) ([]domain.EmailRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.EmailRecord, 0)
	for _, record := range s.emails {
		if record.SourceID == nil || *record.SourceID != sourceID {
			continue
		}
		if record.SpamScore != 0 {
			continue
		}
		result = append(result, *cloneEmail(record))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountEmails 统计邮件总数。
func (s *Store) CountEmails() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.emails)), nil
}

// Close 关闭存储。内存实现无资源可释放。
func (s *Store) Close() error { return nil }

// Health 健康检查。
func (s *Store) Health() error { return nil }

func normalizeAddr(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func cloneSource(source *domain.EmailSource) *domain.EmailSource {
	cloned := *source
	if source.DisplayName != nil {
		v := *source.DisplayName
		cloned.DisplayName = &v
	}
	if source.ParentID != nil {
		v := *source.ParentID
		cloned.ParentID = &v
	}
	return &cloned
}

func cloneEmail(record *domain.EmailRecord) *domain.EmailRecord {
	cloned := *record
	if record.SourceID != nil {
		v := *record.SourceID
		cloned.SourceID = &v
	}
	cloned.URLs = append([]string(nil), record.URLs...)
	return &cloned
}

// 保证接口实现完整
var _ storage.Store = (*Store)(nil)
