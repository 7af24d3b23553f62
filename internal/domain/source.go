package domain

import "time"

// EmailSource 表示一个逻辑邮件来源（通讯/竞品身份），以收件地址作为唯一键。
//
// ParentID 用于去重合并：子来源的邮件在展示时归属到父来源的显示身份，
// 子来源约定设置 Hidden 从默认视图中排除。合并只影响展示，不迁移底层数据。
type EmailSource struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	EmailAddress string    `json:"emailAddress"`
	Description  string    `json:"description,omitempty"`
	DisplayName  *string   `json:"displayName,omitempty"`
	ParentID     *string   `json:"parentId,omitempty"`
	Hidden       bool      `json:"hidden"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DisplayIdentity 返回来源的展示名称。
// 优先使用 DisplayName，为空时回退到 Name。
func (s *EmailSource) DisplayIdentity() string {
	if s.DisplayName != nil && *s.DisplayName != "" {
		return *s.DisplayName
	}
	return s.Name
}
