package schema

import "time"

// 活动类型
const (
	ActivityStart    = "start"
	ActivityComplete = "complete"
	ActivitySkip     = "skip"
	ActivityPause    = "pause"
	ActivityPartial  = "partial"
)

// Activity 一次习惯活动记录，创建后不可变
// 数据量级：千级/年。连续打卡天数只看 Completed 的记录。
type Activity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"size:64;index;not null" json:"user_id"`
	HabitID   int64     `gorm:"index;not null" json:"habit_id"`
	Kind      string    `gorm:"size:16;index;not null" json:"kind"`
	Amount    float64   `gorm:"default:0" json:"amount"`
	Completed bool      `gorm:"index" json:"completed"`
	Timestamp int64     `gorm:"index;not null" json:"timestamp"` // Unix ms
	Note      string    `gorm:"type:text" json:"note"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Activity) TableName() string {
	return "activities"
}
