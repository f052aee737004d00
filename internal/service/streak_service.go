package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/yuqie6/habitpath/internal/schema"
)

const defaultStreakWindowDays = 365

// StreakService 连续打卡天数计算
type StreakService struct {
	activityRepo ActivityRepository
	windowDays   int
}

// NewStreakService 创建服务。windowDays 限定回看多少天的完成记录，
// 非正值使用默认窗口。
func NewStreakService(activityRepo ActivityRepository, windowDays int) *StreakService {
	if windowDays <= 0 {
		windowDays = defaultStreakWindowDays
	}
	return &StreakService{activityRepo: activityRepo, windowDays: windowDays}
}

// CurrentStreak 计算习惯截至今天（或昨天）的连续完成天数。
// 读取失败按 0 处理并告警，不阻塞后续发放流程。
func (s *StreakService) CurrentStreak(ctx context.Context, habitID int64) int {
	activities, err := s.activityRepo.GetCompletions(ctx, habitID, s.windowDays)
	if err != nil {
		slog.Warn("查询完成活动失败，连续天数按 0 处理", "habit", habitID, "error", err)
		return 0
	}
	return streakFromActivities(activities, time.Now())
}

// streakFromActivities 对按时间倒序的完成活动计算连续天数。
// 同一天多次完成只计一次；晚于 now 的记录忽略（未来时间不参与连续判断）。
func streakFromActivities(activities []schema.Activity, now time.Time) int {
	if len(activities) == 0 {
		return 0
	}

	today := normalizeDay(now)

	// 归一化到本地日并去重，保持倒序
	days := make([]time.Time, 0, len(activities))
	seen := make(map[string]struct{}, len(activities))
	for _, act := range activities {
		day := normalizeDay(time.UnixMilli(act.Timestamp))
		if day.After(today) {
			continue
		}
		key := day.Format("2006-01-02")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		days = append(days, day)
	}

	streak := 0
	cur := today
	for _, day := range days {
		switch daysBetween(day, cur) {
		case 0, 1:
			streak++
			cur = day
		default:
			return streak
		}
	}
	return streak
}

// normalizeDay 归一化到本地日的正午，避免夏令时导致的天数误差
func normalizeDay(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, time.Local)
}

// daysBetween 返回 later 比 earlier 晚多少天
func daysBetween(earlier, later time.Time) int {
	return int(math.Round(later.Sub(earlier).Hours() / 24))
}
