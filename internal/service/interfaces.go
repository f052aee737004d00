package service

import (
	"context"

	"github.com/yuqie6/habitpath/internal/ai"
	"github.com/yuqie6/habitpath/internal/repository"
	"github.com/yuqie6/habitpath/internal/schema"
)

// 仓储/外部依赖的最小接口集合（ISP）

type HabitRepository interface {
	Create(ctx context.Context, habit *schema.Habit) error
	GetByID(ctx context.Context, id int64) (*schema.Habit, error)
	GetByUser(ctx context.Context, userID string) ([]schema.Habit, error)
	UpdateLevel(ctx context.Context, id int64, level int) error
	SetActive(ctx context.Context, id int64, active bool) error
	Count(ctx context.Context, userID string) (int64, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, activity *schema.Activity) error
	GetByID(ctx context.Context, id int64) (*schema.Activity, error)
	GetCompletions(ctx context.Context, habitID int64, maxAgeDays int) ([]schema.Activity, error)
	GetByTimeRange(ctx context.Context, userID string, startTime, endTime int64) ([]schema.Activity, error)
	CountCompletionDays(ctx context.Context, habitID int64) (int64, error)
}

type ExpertiseRepository interface {
	Get(ctx context.Context, userID, code string) (*schema.DomainExpertise, error)
	GetByUser(ctx context.Context, userID string) ([]schema.DomainExpertise, error)
	ApplyDelta(ctx context.Context, userID, code, name string, delta int64, levelFor func(points int64) int) (old, updated *schema.DomainExpertise, err error)
}

type AwardLogRepository interface {
	Append(ctx context.Context, entry *schema.ExperienceAwardLog) error
	GetRecent(ctx context.Context, userID string, limit int) ([]schema.ExperienceAwardLog, error)
	GetByActivity(ctx context.Context, activityID int64) ([]schema.ExperienceAwardLog, error)
	GetStatsByTimeRange(ctx context.Context, userID string, startTime, endTime int64) ([]repository.AwardStat, error)
}

type CoachLLM interface {
	Reply(ctx context.Context, messages []ai.Message) (string, error)
	IsConfigured() bool
}

// MemoryResult 记忆检索结果
type MemoryResult struct {
	Content  string
	Score    float32
	Metadata map[string]string
}

type MemoryQuerier interface {
	Query(ctx context.Context, query string, topK int) ([]MemoryResult, error)
	IndexDaySummary(ctx context.Context, userID, date, content string) error
}
