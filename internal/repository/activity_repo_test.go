package repository

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/habitpath/internal/schema"
	"github.com/yuqie6/habitpath/internal/testutil"
)

func TestActivityGetCompletionsFiltersAndOrders(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	now := time.Now()
	seed := []schema.Activity{
		{UserID: "u1", HabitID: 1, Kind: schema.ActivityComplete, Completed: true, Timestamp: now.AddDate(0, 0, -2).UnixMilli()},
		{UserID: "u1", HabitID: 1, Kind: schema.ActivityComplete, Completed: true, Timestamp: now.UnixMilli()},
		{UserID: "u1", HabitID: 1, Kind: schema.ActivitySkip, Completed: false, Timestamp: now.AddDate(0, 0, -1).UnixMilli()},
		{UserID: "u1", HabitID: 2, Kind: schema.ActivityComplete, Completed: true, Timestamp: now.UnixMilli()},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	got, err := repo.GetCompletions(ctx, 1, 365)
	if err != nil {
		t.Fatalf("GetCompletions error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 completions for habit 1, got %d", len(got))
	}
	if got[0].Timestamp < got[1].Timestamp {
		t.Fatal("completions should be newest first")
	}
}

func TestActivityGetCompletionsRespectsWindow(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	now := time.Now()
	old := schema.Activity{UserID: "u1", HabitID: 1, Kind: schema.ActivityComplete, Completed: true, Timestamp: now.AddDate(0, 0, -40).UnixMilli()}
	recent := schema.Activity{UserID: "u1", HabitID: 1, Kind: schema.ActivityComplete, Completed: true, Timestamp: now.UnixMilli()}
	for _, act := range []*schema.Activity{&old, &recent} {
		if err := repo.Create(ctx, act); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	got, err := repo.GetCompletions(ctx, 1, 30)
	if err != nil {
		t.Fatalf("GetCompletions error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("completions older than the window should be dropped, got %d", len(got))
	}
}

func TestActivityCountCompletionDays(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	// Two completions on the same local day count as one day.
	n := time.Now()
	noon := time.Date(n.Year(), n.Month(), n.Day(), 12, 0, 0, 0, time.Local)
	seed := []schema.Activity{
		{UserID: "u1", HabitID: 1, Kind: schema.ActivityComplete, Completed: true, Timestamp: noon.UnixMilli()},
		{UserID: "u1", HabitID: 1, Kind: schema.ActivityComplete, Completed: true, Timestamp: noon.Add(-3 * time.Hour).UnixMilli()},
		{UserID: "u1", HabitID: 1, Kind: schema.ActivityComplete, Completed: true, Timestamp: noon.AddDate(0, 0, -1).UnixMilli()},
		{UserID: "u1", HabitID: 1, Kind: schema.ActivitySkip, Completed: false, Timestamp: noon.AddDate(0, 0, -2).UnixMilli()},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	days, err := repo.CountCompletionDays(ctx, 1)
	if err != nil {
		t.Fatalf("CountCompletionDays error: %v", err)
	}
	if days != 2 {
		t.Fatalf("days=%d, want 2", days)
	}
}

func TestActivityGetByTimeRange(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	startMs, endMs, err := DayRange(time.Now().Format("2006-01-02"))
	if err != nil {
		t.Fatalf("DayRange error: %v", err)
	}

	inside := schema.Activity{UserID: "u1", HabitID: 1, Kind: schema.ActivityComplete, Completed: true, Timestamp: startMs + 1000}
	outside := schema.Activity{UserID: "u1", HabitID: 1, Kind: schema.ActivityComplete, Completed: true, Timestamp: startMs - 1000}
	otherUser := schema.Activity{UserID: "u2", HabitID: 1, Kind: schema.ActivityComplete, Completed: true, Timestamp: startMs + 2000}
	for _, act := range []*schema.Activity{&inside, &outside, &otherUser} {
		if err := repo.Create(ctx, act); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	got, err := repo.GetByTimeRange(ctx, "u1", startMs, endMs)
	if err != nil {
		t.Fatalf("GetByTimeRange error: %v", err)
	}
	if len(got) != 1 || got[0].ID != inside.ID {
		t.Fatalf("want only the in-range activity for u1, got %+v", got)
	}
}
