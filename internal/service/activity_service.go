package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yuqie6/habitpath/internal/eventbus"
	"github.com/yuqie6/habitpath/internal/repository"
	"github.com/yuqie6/habitpath/internal/schema"
)

// ErrHabitNotFound 习惯不存在，在进入发放流程之前返回
var ErrHabitNotFound = errors.New("习惯不存在")

var validActivityKinds = map[string]struct{}{
	schema.ActivityStart:    {},
	schema.ActivityComplete: {},
	schema.ActivitySkip:     {},
	schema.ActivityPause:    {},
	schema.ActivityPartial:  {},
}

// RecordActivityInput 记录活动的输入
type RecordActivityInput struct {
	UserID    string
	HabitID   int64
	Kind      string
	Amount    float64
	Note      string
	Timestamp int64 // Unix ms，0 表示当前时间
}

// ActivityService 活动记录 + 经验发放的入口。
// 活动创建与经验发放不在同一事务内：活动一定落库，发放尽力而为。
type ActivityService struct {
	habitRepo    HabitRepository
	activityRepo ActivityRepository
	awards       *AwardService
	habits       *HabitService
	hub          *eventbus.Hub
}

// NewActivityService 创建服务
func NewActivityService(habitRepo HabitRepository, activityRepo ActivityRepository, awards *AwardService, habits *HabitService, hub *eventbus.Hub) *ActivityService {
	return &ActivityService{
		habitRepo:    habitRepo,
		activityRepo: activityRepo,
		awards:       awards,
		habits:       habits,
		hub:          hub,
	}
}

// RecordActivity 记录一次活动。完成类活动触发经验发放；
// 发放失败不回滚也不阻塞活动本身，结果随响应返回由调用方决定呈现。
func (s *ActivityService) RecordActivity(ctx context.Context, in RecordActivityInput) (*schema.Activity, *AwardResult, error) {
	if _, ok := validActivityKinds[in.Kind]; !ok {
		return nil, nil, fmt.Errorf("不支持的活动类型: %s", in.Kind)
	}

	habit, err := s.habitRepo.GetByID(ctx, in.HabitID)
	if err != nil {
		return nil, nil, err
	}
	if habit == nil {
		return nil, nil, ErrHabitNotFound
	}

	ts := in.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	activity := &schema.Activity{
		UserID:    in.UserID,
		HabitID:   in.HabitID,
		Kind:      in.Kind,
		Amount:    in.Amount,
		Completed: in.Kind == schema.ActivityComplete,
		Timestamp: ts,
		Note:      in.Note,
	}
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		return nil, nil, err
	}

	s.hub.Publish(eventbus.Event{
		Type: eventbus.EventActivityRecorded,
		Data: map[string]any{"habit_id": habit.ID, "activity_id": activity.ID, "kind": activity.Kind},
	})

	if !activity.Completed {
		return activity, nil, nil
	}

	award := s.awards.AwardExperienceForCompletion(ctx, in.UserID, habit, activity.ID)

	for _, change := range award.LevelChanges {
		s.hub.Publish(eventbus.Event{
			Type: eventbus.EventLevelUp,
			Data: map[string]any{"domain": change.Code, "old_level": change.OldLevel, "new_level": change.NewLevel},
		})
	}

	if newLevel := s.habits.MaybeLevelUp(ctx, habit); newLevel > 0 {
		s.hub.Publish(eventbus.Event{
			Type: eventbus.EventHabitLevelUp,
			Data: map[string]any{"habit_id": habit.ID, "new_level": newLevel},
		})
	}

	return activity, award, nil
}

// GetActivitiesByDate 获取用户某天的活动
func (s *ActivityService) GetActivitiesByDate(ctx context.Context, userID, date string) ([]schema.Activity, error) {
	startMs, endMs, err := repository.DayRange(date)
	if err != nil {
		return nil, err
	}
	return s.activityRepo.GetByTimeRange(ctx, userID, startMs, endMs)
}
