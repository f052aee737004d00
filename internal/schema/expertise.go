package schema

import "time"

// DomainExpertise 用户在某个领域的累计经验
// (user_id, code) 唯一；Level 始终由 Points 经阈值表推导。
type DomainExpertise struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:uniq_user_domain,priority:1" json:"user_id"`
	Code      string    `gorm:"size:50;not null;uniqueIndex:uniq_user_domain,priority:2" json:"code"`
	Name      string    `gorm:"size:100" json:"name"`
	Points    int64     `gorm:"default:0" json:"points"`
	Level     int       `gorm:"default:1" json:"level"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (DomainExpertise) TableName() string {
	return "domain_expertise"
}
