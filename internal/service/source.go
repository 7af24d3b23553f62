package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mailfoxes/backend/internal/domain"
	"mailfoxes/backend/internal/monitoring"
	"mailfoxes/backend/internal/storage"
)

var (
	ErrAddressInvalid = errors.New("email address invalid")
	ErrSourceConflict = errors.New("email address already used by another source")
	ErrSelfParent     = errors.New("source cannot be its own parent")
)

// SourceService 封装邮件来源的业务操作：显式管理与摄入时的来源解析。
type SourceService struct {
	repo    storage.SourceRepository
	metrics *monitoring.Metrics // 可选
}

// NewSourceService 创建来源业务服务。
func NewSourceService(repo storage.SourceRepository) *SourceService {
	return &SourceService{repo: repo}
}

// SetMetrics 设置监控指标（可选协作方）。
func (s *SourceService) SetMetrics(metrics *monitoring.Metrics) {
	s.metrics = metrics
}

// CreateSourceInput 定义创建来源所需的输入。
type CreateSourceInput struct {
	Name         string
	EmailAddress string
	Description  string
	DisplayName  *string
}

// Create 显式创建新来源。收件地址全局唯一。
func (s *SourceService) Create(input CreateSourceInput) (*domain.EmailSource, error) {
	address := strings.ToLower(strings.TrimSpace(input.EmailAddress))
	if address == "" || !strings.Contains(address, "@") {
		return nil, ErrAddressInvalid
	}

	if _, err := s.repo.GetSourceByAddress(address); err == nil {
		return nil, ErrSourceConflict
	} else if !errors.Is(err, storage.ErrSourceNotFound) {
		return nil, err
	}

	source := &domain.EmailSource{
		ID:           uuid.NewString(),
		Name:         input.Name,
		EmailAddress: address,
		Description:  input.Description,
		DisplayName:  input.DisplayName,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.SaveSource(source); err != nil {
		return nil, err
	}
	return source, nil
}

// Get 根据 ID 获取来源。
func (s *SourceService) Get(id string) (*domain.EmailSource, error) {
	return s.repo.GetSource(id)
}

// GetByAddress 根据收件地址精确查找来源。
func (s *SourceService) GetByAddress(address string) (*domain.EmailSource, error) {
	return s.repo.GetSourceByAddress(strings.ToLower(strings.TrimSpace(address)))
}

// List 列出来源。includeHidden 为 false 时排除隐藏项（默认视图）。
func (s *SourceService) List(includeHidden bool) ([]domain.EmailSource, error) {
	return s.repo.ListSources(includeHidden)
}

// UpdateSourceInput 定义来源更新字段，nil 表示不修改。
type UpdateSourceInput struct {
	Name        *string
	DisplayName *string
	Description *string
	ParentID    *string
	Hidden      *bool
}

// Update 更新来源的展示字段与合并关系。
func (s *SourceService) Update(id string, input UpdateSourceInput) (*domain.EmailSource, error) {
	source, err := s.repo.GetSource(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		source.Name = *input.Name
	}
	if input.DisplayName != nil {
		source.DisplayName = input.DisplayName
	}
	if input.Description != nil {
		source.Description = *input.Description
	}
	if input.ParentID != nil {
		if *input.ParentID == id {
			return nil, ErrSelfParent
		}
		if *input.ParentID == "" {
			source.ParentID = nil
		} else {
			if _, err := s.repo.GetSource(*input.ParentID); err != nil {
				return nil, err
			}
			source.ParentID = input.ParentID
		}
	}
	if input.Hidden != nil {
		source.Hidden = *input.Hidden
	}

	if err := s.repo.UpdateSource(source); err != nil {
		return nil, err
	}
	return source, nil
}

// Consolidate 将 child 归并到 parent 名下：
// 设置父引用并隐藏子来源。只影响展示归属，不迁移底层邮件数据。
func (s *SourceService) Consolidate(childID, parentID string) (*domain.EmailSource, error) {
	if childID == parentID {
		return nil, ErrSelfParent
	}
	if _, err := s.repo.GetSource(parentID); err != nil {
		return nil, err
	}

	child, err := s.repo.GetSource(childID)
	if err != nil {
		return nil, err
	}

	child.ParentID = &parentID
	child.Hidden = true
	if err := s.repo.UpdateSource(child); err != nil {
		return nil, err
	}
	return child, nil
}

// Delete 删除来源。关联邮件保留并解除来源引用（孤儿保留语义）。
func (s *SourceService) Delete(id string) error {
	return s.repo.DeleteSource(id)
}

// DisplayFor 返回读取路径上的展示身份：
// 子来源归属到父来源的显示名，仅在此处解析一层父引用。
// 摄入时的归属始终指向直接匹配的来源，不在写路径追父链。
func (s *SourceService) DisplayFor(source *domain.EmailSource) string {
	if source.ParentID != nil {
		if parent, err := s.repo.GetSource(*source.ParentID); err == nil {
			return parent.DisplayIdentity()
		}
	}
	return source.DisplayIdentity()
}

// Resolve 根据收件地址解析逻辑来源，返回来源 ID。
//
// 精确匹配命中时直接返回该行 ID（不追父链，合并只在读取时生效）。
// 未命中时依据发件人域名合成新来源并按唯一地址 upsert：
// 两个并发摄入竞争同一个新地址时收敛到同一行，不会产生重复来源，
// 也不会把唯一约束冲突抛给调用方。
func (s *SourceService) Resolve(to, from string) (string, error) {
	address := strings.ToLower(strings.TrimSpace(to))

	source, err := s.repo.GetSourceByAddress(address)
	if err == nil {
		return source.ID, nil
	}
	if !errors.Is(err, storage.ErrSourceNotFound) {
		return "", err
	}

	name := deriveSourceName(from)
	displayName := name + " - Auto"

	candidate := &domain.EmailSource{
		ID:           uuid.NewString(),
		Name:         name,
		EmailAddress: address,
		Description:  fmt.Sprintf("Auto-created from first email received from %s", from),
		DisplayName:  &displayName,
		CreatedAt:    time.Now().UTC(),
	}
	created, err := s.repo.FindOrCreateSource(candidate)
	if err != nil {
		return "", err
	}
	// 返回的行就是候选行时说明本次调用真正创建了来源
	if s.metrics != nil && created.ID == candidate.ID {
		s.metrics.SourcesAutoCreated.Inc()
	}
	return created.ID, nil
}

// deriveSourceName 从发件地址推导来源名称：
// 取 @ 之后的域名部分，剥离地址解析遗留的尾部 ">"，
// 截取第一个点之前的片段并首字母大写。
func deriveSourceName(from string) string {
	domainPart := from
	if i := strings.LastIndex(domainPart, "@"); i >= 0 {
		domainPart = domainPart[i+1:]
	}
	domainPart = strings.TrimSuffix(strings.TrimSpace(domainPart), ">")
	if i := strings.Index(domainPart, "."); i >= 0 {
		domainPart = domainPart[:i]
	}
	if domainPart == "" {
		return "Unknown"
	}
	return strings.ToUpper(domainPart[:1]) + domainPart[1:]
}
