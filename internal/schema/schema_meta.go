package schema

import "time"

// SchemaMeta 记录习惯库当前的 schema 版本，迁移时据此决定是否允许 AutoMigrate。
// 活动与经验流水是追加型数据，版本号防止旧版本程序改写新库结构。
// 表内仅维护单行（ID=1）。
type SchemaMeta struct {
	ID            int       `gorm:"primaryKey"`
	SchemaVersion int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (SchemaMeta) TableName() string {
	return "schema_meta"
}
