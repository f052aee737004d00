package service

// XPPolicy 经验计算策略（可替换）。
// StreakBonus 单独暴露连续打卡部分，供审计记录使用，
// 保证审计里的加成与实际生效的策略一致。
type XPPolicy interface {
	ExperienceFor(habitLevel, streakDays int) int64
	StreakBonus(streakDays int) int64
}

// DefaultXPPolicy 默认经验策略：习惯等级主导 + 连续打卡加成 + 封顶
type DefaultXPPolicy struct{}

const (
	xpBasePerLevel  = 10 // 每个习惯等级的基础经验
	xpPerStreakDay  = 2  // 每连续一天的加成
	xpStreakCapDays = 30 // 连续加成封顶天数
)

// ExperienceFor 根据习惯等级与连续天数计算经验值。
// 对两个参数均单调不减；等级 ≥1 时有正的下限。
func (p DefaultXPPolicy) ExperienceFor(habitLevel, streakDays int) int64 {
	if habitLevel < 1 {
		habitLevel = 1
	}
	return int64(xpBasePerLevel*habitLevel) + p.StreakBonus(streakDays)
}

// StreakBonus 连续打卡贡献的经验，封顶后线性
func (p DefaultXPPolicy) StreakBonus(streakDays int) int64 {
	if streakDays < 0 {
		streakDays = 0
	}
	if streakDays > xpStreakCapDays {
		streakDays = xpStreakCapDays
	}
	return int64(xpPerStreakDay * streakDays)
}
