package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/habitpath/internal/schema"
	"gorm.io/gorm"
)

// AwardStat 时间窗内某领域的经验入账聚合
type AwardStat struct {
	Code        string
	PointsSum   int64
	AwardCount  int64
	DaysActive  int
	LastTsMilli int64
}

// AwardLogRepository 经验发放审计仓储（只追加）
type AwardLogRepository struct {
	db *gorm.DB
}

// NewAwardLogRepository 创建仓储
func NewAwardLogRepository(db *gorm.DB) *AwardLogRepository {
	return &AwardLogRepository{db: db}
}

// Append 追加一条审计记录
func (r *AwardLogRepository) Append(ctx context.Context, entry *schema.ExperienceAwardLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("写入审计记录失败: %w", err)
	}
	return nil
}

// GetRecent 获取用户最近的审计记录
func (r *AwardLogRepository) GetRecent(ctx context.Context, userID string, limit int) ([]schema.ExperienceAwardLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []schema.ExperienceAwardLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("查询审计记录失败: %w", err)
	}
	return entries, nil
}

// GetByActivity 获取某次活动产生的全部审计记录
func (r *AwardLogRepository) GetByActivity(ctx context.Context, activityID int64) ([]schema.ExperienceAwardLog, error) {
	var entries []schema.ExperienceAwardLog
	err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("id").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("查询审计记录失败: %w", err)
	}
	return entries, nil
}

// GetStatsByTimeRange 按领域聚合时间窗内的入账
func (r *AwardLogRepository) GetStatsByTimeRange(ctx context.Context, userID string, startTime, endTime int64) ([]AwardStat, error) {
	// timestamp 存的是 ms，需要 /1000 转秒；localtime 让“天”对齐本地时区。
	const sql = `
SELECT
  code AS code,
  COALESCE(SUM(points), 0) AS points_sum,
  COUNT(1) AS award_count,
  COUNT(DISTINCT strftime('%Y-%m-%d', timestamp/1000, 'unixepoch', 'localtime')) AS days_active,
  COALESCE(MAX(timestamp), 0) AS last_ts_milli
FROM experience_award_logs
WHERE user_id = ? AND timestamp >= ? AND timestamp <= ?
GROUP BY code
`
	var out []AwardStat
	if err := r.db.WithContext(ctx).Raw(sql, userID, startTime, endTime).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("统计审计记录失败: %w", err)
	}
	return out, nil
}
