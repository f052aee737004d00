package repository

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/habitpath/internal/schema"
	"github.com/yuqie6/habitpath/internal/testutil"
)

func TestAwardLogAppendAndGetRecent(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewAwardLogRepository(db)
	ctx := context.Background()

	base := time.Now().UnixMilli()
	for i := 0; i < 3; i++ {
		entry := &schema.ExperienceAwardLog{
			UserID: "u1", HabitID: 1, ActivityID: int64(100 + i),
			Code: "fitness", Points: 10, HabitLevel: 1, StreakDays: i,
			Timestamp: base + int64(i*1000),
		}
		if err := repo.Append(ctx, entry); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	entries, err := repo.GetRecent(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("GetRecent error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].ActivityID != 102 || entries[1].ActivityID != 101 {
		t.Fatalf("unexpected order: %d, %d", entries[0].ActivityID, entries[1].ActivityID)
	}
}

func TestAwardLogGetByActivity(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewAwardLogRepository(db)
	ctx := context.Background()

	now := time.Now().UnixMilli()
	for _, code := range []string{"fitness", "health"} {
		entry := &schema.ExperienceAwardLog{
			UserID: "u1", HabitID: 1, ActivityID: 200,
			Code: code, Points: 5, HabitLevel: 1, Timestamp: now,
		}
		if err := repo.Append(ctx, entry); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	entries, err := repo.GetByActivity(ctx, 200)
	if err != nil {
		t.Fatalf("GetByActivity error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries for activity 200, got %d", len(entries))
	}
}

func TestAwardLogStatsByTimeRange(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewAwardLogRepository(db)
	ctx := context.Background()

	// Anchor at local noon so the two-hour offset stays within the same day.
	n := time.Now()
	now := time.Date(n.Year(), n.Month(), n.Day(), 12, 0, 0, 0, time.Local)
	seed := []struct {
		code   string
		points int64
		ts     time.Time
	}{
		{"fitness", 10, now},
		{"fitness", 14, now.Add(-2 * time.Hour)},
		{"fitness", 12, now.AddDate(0, 0, -1)},
		{"reading", 20, now},
		{"reading", 999, now.AddDate(0, 0, -40)}, // outside the window
	}
	for i, s := range seed {
		entry := &schema.ExperienceAwardLog{
			UserID: "u1", HabitID: 1, ActivityID: int64(300 + i),
			Code: s.code, Points: s.points, HabitLevel: 1, Timestamp: s.ts.UnixMilli(),
		}
		if err := repo.Append(ctx, entry); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	startMs := now.AddDate(0, 0, -7).UnixMilli()
	stats, err := repo.GetStatsByTimeRange(ctx, "u1", startMs, now.UnixMilli())
	if err != nil {
		t.Fatalf("GetStatsByTimeRange error: %v", err)
	}

	byCode := make(map[string]AwardStat, len(stats))
	for _, st := range stats {
		byCode[st.Code] = st
	}
	fit, ok := byCode["fitness"]
	if !ok {
		t.Fatal("missing fitness aggregate")
	}
	if fit.PointsSum != 36 || fit.AwardCount != 3 || fit.DaysActive != 2 {
		t.Fatalf("fitness aggregate = %+v, want sum 36 count 3 days 2", fit)
	}
	read, ok := byCode["reading"]
	if !ok {
		t.Fatal("missing reading aggregate")
	}
	if read.PointsSum != 20 || read.AwardCount != 1 {
		t.Fatalf("entries outside the window must not count, got %+v", read)
	}
}
