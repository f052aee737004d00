package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuqie6/habitpath/internal/schema"
)

const (
	habitMaxLevel    = 99
	maxHabitsPerUser = 100
)

// HabitService 习惯管理
type HabitService struct {
	habitRepo    HabitRepository
	activityRepo ActivityRepository
}

// NewHabitService 创建服务
func NewHabitService(habitRepo HabitRepository, activityRepo ActivityRepository) *HabitService {
	return &HabitService{habitRepo: habitRepo, activityRepo: activityRepo}
}

// CreateHabit 创建习惯
func (s *HabitService) CreateHabit(ctx context.Context, habit *schema.Habit) error {
	habit.Name = strings.TrimSpace(habit.Name)
	if habit.Name == "" {
		return fmt.Errorf("习惯名称不能为空")
	}
	if habit.Level < 1 {
		habit.Level = 1
	}
	if habit.Schedule == "" {
		habit.Schedule = "daily"
	}

	count, err := s.habitRepo.Count(ctx, habit.UserID)
	if err != nil {
		return err
	}
	if count >= maxHabitsPerUser {
		return fmt.Errorf("习惯数量已达上限 %d", maxHabitsPerUser)
	}

	habit.Active = true
	habit.DomainCodes = schema.JSONArray(normalizeDomainCodes(habit.DomainCodes))
	return s.habitRepo.Create(ctx, habit)
}

// SetHabitActive 启用/停用习惯。停用不删除历史，经验与审计保留。
func (s *HabitService) SetHabitActive(ctx context.Context, id int64, active bool) error {
	habit, err := s.habitRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if habit == nil {
		return fmt.Errorf("习惯不存在")
	}
	return s.habitRepo.SetActive(ctx, id, active)
}

// ListHabits 获取用户的所有习惯
func (s *HabitService) ListHabits(ctx context.Context, userID string) ([]schema.Habit, error) {
	return s.habitRepo.GetByUser(ctx, userID)
}

// GetHabit 获取单个习惯
func (s *HabitService) GetHabit(ctx context.Context, id int64) (*schema.Habit, error) {
	return s.habitRepo.GetByID(ctx, id)
}

// MaybeLevelUp 完成活动后检查习惯是否升级：
// 每升一级需要累计 7*当前等级 个有完成记录的不同天。
// 返回升级后的新等级，未升级返回 0。失败只告警，不阻塞结算。
func (s *HabitService) MaybeLevelUp(ctx context.Context, habit *schema.Habit) int {
	if habit == nil || habit.Level >= habitMaxLevel {
		return 0
	}

	days, err := s.activityRepo.CountCompletionDays(ctx, habit.ID)
	if err != nil {
		slog.Warn("统计完成天数失败，跳过习惯升级检查", "habit", habit.ID, "error", err)
		return 0
	}

	newLevel := habit.Level
	for newLevel < habitMaxLevel && days >= completionDaysForLevel(newLevel+1) {
		newLevel++
	}
	if newLevel == habit.Level {
		return 0
	}

	if err := s.habitRepo.UpdateLevel(ctx, habit.ID, newLevel); err != nil {
		slog.Warn("保存习惯等级失败", "habit", habit.ID, "error", err)
		return 0
	}
	habit.Level = newLevel
	return newLevel
}

// completionDaysForLevel 达到某习惯等级所需的累计完成天数
func completionDaysForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	// 等级 2 需要 7 天，等级 3 需要 7+14=21 天，以此类推
	var days int64
	for l := 2; l <= level; l++ {
		days += int64(7 * (l - 1))
	}
	return days
}
