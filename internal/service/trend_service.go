package service

import (
	"context"
	"sort"
	"time"
)

// TrendPeriod 趋势统计周期
type TrendPeriod string

const (
	TrendPeriod7Days  TrendPeriod = "7d"
	TrendPeriod30Days TrendPeriod = "30d"
)

// DomainTrend 单个领域在周期内的经验入账汇总
type DomainTrend struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	PointsSum  int64   `json:"points_sum"`
	AwardCount int64   `json:"award_count"`
	DaysActive int     `json:"days_active"`
	LastActive int64   `json:"last_active"`
	Share      float64 `json:"share"` // 占周期内总经验的百分比
}

// TrendReport 趋势报告
type TrendReport struct {
	Period      TrendPeriod   `json:"period"`
	StartDate   string        `json:"start_date"`
	EndDate     string        `json:"end_date"`
	TotalPoints int64         `json:"total_points"`
	TotalAwards int64         `json:"total_awards"`
	TopDomains  []DomainTrend `json:"top_domains"`
}

// TrendService 基于审计记录的经验趋势统计
type TrendService struct {
	awardLogRepo AwardLogRepository
}

// NewTrendService 创建服务
func NewTrendService(awardLogRepo AwardLogRepository) *TrendService {
	return &TrendService{awardLogRepo: awardLogRepo}
}

// GetTrendReport 统计用户在周期内各领域的经验入账
func (s *TrendService) GetTrendReport(ctx context.Context, userID string, period TrendPeriod) (*TrendReport, error) {
	days := 7
	if period == TrendPeriod30Days {
		days = 30
	}

	now := time.Now()
	start := now.AddDate(0, 0, -days+1)
	startMs := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.Local).UnixMilli()
	endMs := now.UnixMilli()

	stats, err := s.awardLogRepo.GetStatsByTimeRange(ctx, userID, startMs, endMs)
	if err != nil {
		return nil, err
	}

	report := &TrendReport{
		Period:     period,
		StartDate:  start.Format("2006-01-02"),
		EndDate:    now.Format("2006-01-02"),
		TopDomains: make([]DomainTrend, 0, len(stats)),
	}

	for _, st := range stats {
		report.TotalPoints += st.PointsSum
		report.TotalAwards += st.AwardCount
		report.TopDomains = append(report.TopDomains, DomainTrend{
			Code:       st.Code,
			Name:       domainDisplayName(st.Code),
			PointsSum:  st.PointsSum,
			AwardCount: st.AwardCount,
			DaysActive: st.DaysActive,
			LastActive: st.LastTsMilli,
		})
	}

	if report.TotalPoints > 0 {
		for i := range report.TopDomains {
			report.TopDomains[i].Share = float64(report.TopDomains[i].PointsSum) / float64(report.TotalPoints) * 100
		}
	}

	sort.Slice(report.TopDomains, func(i, j int) bool {
		return report.TopDomains[i].PointsSum > report.TopDomains[j].PointsSum
	})

	return report, nil
}
