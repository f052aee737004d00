package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/yuqie6/habitpath/internal/schema"
)

// DefaultDomainCode 习惯未声明领域时经验的归属
const DefaultDomainCode = "general"

// DomainUpdate 一次发放中单个领域的变化
type DomainUpdate struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	OldPoints    int64  `json:"old_points"`
	NewPoints    int64  `json:"new_points"`
	OldLevel     int    `json:"old_level"`
	NewLevel     int    `json:"new_level"`
	LevelChanged bool   `json:"level_changed"`
}

// DomainFailure 单个领域入账失败的描述（不回滚其他领域）
type DomainFailure struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// AwardResult 一次完成活动的经验发放结果
type AwardResult struct {
	TotalPointsAwarded int64           `json:"total_points_awarded"`
	StreakDays         int             `json:"streak_days"`
	DomainUpdates      []DomainUpdate  `json:"domain_updates"`
	LevelChanges       []DomainUpdate  `json:"level_changes"`
	OverallLevel       int             `json:"overall_level"` // 所有领域等级的最大值
	FailedDomains      []DomainFailure `json:"failed_domains,omitempty"`
	AuditErrors        []string        `json:"audit_errors,omitempty"`
}

// AwardService 经验发放编排：连续天数 → 经验公式 → 领域入账 → 审计。
// 每次发放都是独立操作，服务自身不持有跨请求状态。
type AwardService struct {
	expertiseRepo ExpertiseRepository
	awardLogRepo  AwardLogRepository
	streaks       *StreakService
	policy        XPPolicy
}

// NewAwardService 创建服务
func NewAwardService(expertiseRepo ExpertiseRepository, awardLogRepo AwardLogRepository, streaks *StreakService, policy XPPolicy) *AwardService {
	if policy == nil {
		policy = DefaultXPPolicy{}
	}
	return &AwardService{
		expertiseRepo: expertiseRepo,
		awardLogRepo:  awardLogRepo,
		streaks:       streaks,
		policy:        policy,
	}
}

// AwardExperienceForCompletion 结算一次完成活动的经验。
// 顺序固定：先算连续天数，再算经验，再逐领域入账，每个领域入账成功后立即写审计。
// 单个领域失败只记录，不影响其他领域，也不向调用方抛错。
func (s *AwardService) AwardExperienceForCompletion(ctx context.Context, userID string, habit *schema.Habit, activityID int64) *AwardResult {
	result := &AwardResult{
		DomainUpdates: make([]DomainUpdate, 0, len(habit.DomainCodes)),
		LevelChanges:  make([]DomainUpdate, 0),
	}

	streak := s.streaks.CurrentStreak(ctx, habit.ID)
	result.StreakDays = streak

	total := s.policy.ExperienceFor(habit.Level, streak)
	codes := normalizeDomainCodes(habit.DomainCodes)
	shares := splitPoints(total, len(codes))
	nowMs := time.Now().UnixMilli()

	for i, code := range codes {
		old, updated, err := s.expertiseRepo.ApplyDelta(ctx, userID, code, domainDisplayName(code), shares[i], LevelForPoints)
		if err != nil {
			slog.Warn("领域经验入账失败", "user", userID, "domain", code, "error", err)
			result.FailedDomains = append(result.FailedDomains, DomainFailure{Code: code, Reason: err.Error()})
			continue
		}

		update := DomainUpdate{
			Code:         updated.Code,
			Name:         updated.Name,
			OldPoints:    old.Points,
			NewPoints:    updated.Points,
			OldLevel:     old.Level,
			NewLevel:     updated.Level,
			LevelChanged: updated.Level != old.Level,
		}
		result.DomainUpdates = append(result.DomainUpdates, update)
		if update.LevelChanged {
			result.LevelChanges = append(result.LevelChanges, update)
		}

		// 审计记录携带实际入账增量（new − old），部分失败时账目仍然准确
		applied := updated.Points - old.Points
		result.TotalPointsAwarded += applied

		entry := &schema.ExperienceAwardLog{
			UserID:      userID,
			HabitID:     habit.ID,
			ActivityID:  activityID,
			Code:        code,
			Points:      applied,
			HabitLevel:  habit.Level,
			StreakDays:  streak,
			QualityMult: 1,
			FreqBonus:   float64(s.policy.StreakBonus(streak)),
			Timestamp:   nowMs,
		}
		if err := s.LogExperienceAward(ctx, entry); err != nil {
			result.AuditErrors = append(result.AuditErrors, err.Error())
		}
	}

	result.OverallLevel = s.overallLevel(ctx, userID, result.DomainUpdates)
	return result
}

// LogExperienceAward 追加一条审计记录。
// 同一活动重复结算会产生重复行（已知风险，依赖审计回查）。
func (s *AwardService) LogExperienceAward(ctx context.Context, entry *schema.ExperienceAwardLog) error {
	if err := s.awardLogRepo.Append(ctx, entry); err != nil {
		slog.Warn("写入经验审计失败", "user", entry.UserID, "domain", entry.Code, "error", err)
		return err
	}
	return nil
}

// overallLevel 汇总用户所有领域等级的最大值；查询失败时退化为本次触达领域的最大值
func (s *AwardService) overallLevel(ctx context.Context, userID string, updates []DomainUpdate) int {
	all, err := s.expertiseRepo.GetByUser(ctx, userID)
	if err == nil && len(all) > 0 {
		max := 1
		for _, rec := range all {
			if rec.Level > max {
				max = rec.Level
			}
		}
		return max
	}

	max := 1
	for _, u := range updates {
		if u.NewLevel > max {
			max = u.NewLevel
		}
	}
	return max
}

// normalizeDomainCodes 去空白、去重并保持顺序；空集合归入默认领域
func normalizeDomainCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		c := strings.ToLower(strings.TrimSpace(code))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return []string{DefaultDomainCode}
	}
	return out
}

// splitPoints 把总经验按领域均分，余数按输入顺序逐个补 1，保证总和不变
func splitPoints(total int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	shares := make([]int64, n)
	base := total / int64(n)
	remainder := total % int64(n)
	for i := range shares {
		shares[i] = base
		if int64(i) < remainder {
			shares[i]++
		}
	}
	return shares
}

// domainDisplayName 从领域代码生成展示名：fitness → Fitness, deep-work → Deep Work
func domainDisplayName(code string) string {
	parts := strings.Split(code, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
