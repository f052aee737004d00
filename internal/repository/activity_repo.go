package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yuqie6/habitpath/internal/schema"
	"gorm.io/gorm"
)

// ActivityRepository 活动仓储
type ActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository 创建仓储
func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create 创建活动记录
func (r *ActivityRepository) Create(ctx context.Context, activity *schema.Activity) error {
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return fmt.Errorf("创建活动失败: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取活动
func (r *ActivityRepository) GetByID(ctx context.Context, id int64) (*schema.Activity, error) {
	var activity schema.Activity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&activity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("查询活动失败: %w", err)
	}
	return &activity, nil
}

// GetCompletions 获取习惯在最近 maxAgeDays 天内的完成活动（按时间倒序）
func (r *ActivityRepository) GetCompletions(ctx context.Context, habitID int64, maxAgeDays int) ([]schema.Activity, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = 365
	}
	since := time.Now().AddDate(0, 0, -maxAgeDays).UnixMilli()

	var activities []schema.Activity
	err := r.db.WithContext(ctx).
		Where("habit_id = ? AND completed = ? AND timestamp >= ?", habitID, true, since).
		Order("timestamp DESC").
		Find(&activities).Error
	if err != nil {
		return nil, fmt.Errorf("查询完成活动失败: %w", err)
	}
	return activities, nil
}

// GetByTimeRange 获取用户在时间窗内的活动
func (r *ActivityRepository) GetByTimeRange(ctx context.Context, userID string, startTime, endTime int64) ([]schema.Activity, error) {
	var activities []schema.Activity
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND timestamp >= ? AND timestamp <= ?", userID, startTime, endTime).
		Order("timestamp").
		Find(&activities).Error
	if err != nil {
		return nil, fmt.Errorf("查询活动失败: %w", err)
	}
	return activities, nil
}

// CountCompletionDays 统计习惯有完成记录的不同本地日天数
func (r *ActivityRepository) CountCompletionDays(ctx context.Context, habitID int64) (int64, error) {
	const sql = `
SELECT COUNT(DISTINCT strftime('%Y-%m-%d', timestamp/1000, 'unixepoch', 'localtime')) AS days
FROM activities
WHERE habit_id = ? AND completed = 1
`
	var days int64
	if err := r.db.WithContext(ctx).Raw(sql, habitID).Scan(&days).Error; err != nil {
		return 0, fmt.Errorf("统计完成天数失败: %w", err)
	}
	return days, nil
}
