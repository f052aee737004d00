package schema

import "time"

// ExperienceAwardLog 经验发放审计记录（只追加，不更新不删除）
// 当前同一 (activity_id, code) 重复结算会产生多行，依赖审计回查而非唯一索引。
type ExperienceAwardLog struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string    `gorm:"size:64;index;not null" json:"user_id"`
	HabitID      int64     `gorm:"index;not null" json:"habit_id"`
	ActivityID   int64     `gorm:"index;not null" json:"activity_id"`
	Code         string    `gorm:"size:50;index;not null" json:"code"`
	Points       int64     `gorm:"not null" json:"points"` // 实际入账增量（new − old）
	HabitLevel   int       `gorm:"not null" json:"habit_level"`
	StreakDays   int       `gorm:"not null" json:"streak_days"`
	QualityMult  float64   `gorm:"default:1" json:"quality_mult"`
	FreqBonus    float64   `gorm:"default:0" json:"freq_bonus"`
	Timestamp    int64     `gorm:"index;not null" json:"timestamp"` // Unix ms
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (ExperienceAwardLog) TableName() string {
	return "experience_award_logs"
}
