package service

// 领域等级阈值表：等级 N 的门槛是 levelThresholds[N-1]（含边界，刚好达到即升级）。
// 表外每级再加 1000 点。
var levelThresholds = []int64{0, 100, 300, 600, 1000, 1500, 2100, 2800, 3600, 4500}

const levelStepAfterTable = 1000

// LevelForPoints 返回累计经验对应的等级：阈值 ≤ points 的最大等级。
func LevelForPoints(points int64) int {
	if points < 0 {
		points = 0
	}
	level := 1
	for i, threshold := range levelThresholds {
		if points >= threshold {
			level = i + 1
		} else {
			return level
		}
	}

	extra := points - levelThresholds[len(levelThresholds)-1]
	return len(levelThresholds) + int(extra/levelStepAfterTable)
}

// ThresholdForLevel 返回达到某等级所需的累计经验
func ThresholdForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level <= len(levelThresholds) {
		return levelThresholds[level-1]
	}
	return levelThresholds[len(levelThresholds)-1] + int64(level-len(levelThresholds))*levelStepAfterTable
}
