package schema

import "time"

// Habit 习惯定义
// 数据量级：十级/用户。DomainCodes 为该习惯贡献经验的领域（可为空）。
type Habit struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string    `gorm:"size:64;index;not null" json:"user_id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Level       int       `gorm:"default:1" json:"level"` // 习惯等级 ≥1，参与经验公式
	DomainCodes JSONArray `gorm:"type:text" json:"domain_codes"`
	Schedule    string    `gorm:"size:20;default:daily" json:"schedule"` // daily/weekly
	Active      bool      `gorm:"default:true;index" json:"active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Habit) TableName() string {
	return "habits"
}
