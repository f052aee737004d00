package service

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/habitpath/internal/repository"
	"github.com/yuqie6/habitpath/internal/schema"
	"github.com/yuqie6/habitpath/internal/testutil"
)

func TestCompletionDaysForLevel(t *testing.T) {
	cases := []struct {
		level int
		want  int64
	}{
		{1, 0},
		{2, 7},
		{3, 21},  // 7 + 14
		{4, 42},  // 7 + 14 + 21
		{5, 70},  // 7 + 14 + 21 + 28
	}
	for _, tc := range cases {
		if got := completionDaysForLevel(tc.level); got != tc.want {
			t.Errorf("completionDaysForLevel(%d) = %d, want %d", tc.level, got, tc.want)
		}
	}
}

func TestCreateHabit_Validation(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewHabitService(repository.NewHabitRepository(db), repository.NewActivityRepository(db))
	ctx := context.Background()

	if err := svc.CreateHabit(ctx, &schema.Habit{UserID: "u1", Name: "   "}); err == nil {
		t.Fatal("blank name should be rejected")
	}

	habit := &schema.Habit{UserID: "u1", Name: " morning run ", DomainCodes: schema.JSONArray{"Fitness", "fitness"}}
	if err := svc.CreateHabit(ctx, habit); err != nil {
		t.Fatalf("create habit: %v", err)
	}
	if habit.Name != "morning run" {
		t.Fatalf("name should be trimmed, got %q", habit.Name)
	}
	if habit.Level != 1 || habit.Schedule != "daily" || !habit.Active {
		t.Fatalf("defaults not applied: %+v", habit)
	}
	if len(habit.DomainCodes) != 1 || habit.DomainCodes[0] != "fitness" {
		t.Fatalf("domain codes should be normalized, got %v", habit.DomainCodes)
	}
}

func TestSetHabitActive(t *testing.T) {
	db := testutil.OpenTestDB(t)
	habitRepo := repository.NewHabitRepository(db)
	svc := NewHabitService(habitRepo, repository.NewActivityRepository(db))
	ctx := context.Background()

	if err := svc.SetHabitActive(ctx, 999, false); err == nil {
		t.Fatal("archiving an unknown habit should fail")
	}

	habit := &schema.Habit{UserID: "u1", Name: "read", Level: 1, Active: true}
	if err := habitRepo.Create(ctx, habit); err != nil {
		t.Fatalf("create habit: %v", err)
	}
	if err := svc.SetHabitActive(ctx, habit.ID, false); err != nil {
		t.Fatalf("SetHabitActive error: %v", err)
	}

	stored, err := habitRepo.GetByID(ctx, habit.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload habit: %v", err)
	}
	if stored.Active {
		t.Fatal("habit should be archived")
	}
}

func TestMaybeLevelUp(t *testing.T) {
	db := testutil.OpenTestDB(t)
	habitRepo := repository.NewHabitRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	svc := NewHabitService(habitRepo, activityRepo)
	ctx := context.Background()

	habit := &schema.Habit{UserID: "u1", Name: "meditate", Level: 1, Active: true}
	if err := habitRepo.Create(ctx, habit); err != nil {
		t.Fatalf("create habit: %v", err)
	}

	// Six distinct completion days: one short of level 2.
	now := time.Now()
	for i := 0; i < 6; i++ {
		act := &schema.Activity{
			UserID: "u1", HabitID: habit.ID, Kind: schema.ActivityComplete,
			Completed: true, Timestamp: now.AddDate(0, 0, -i).UnixMilli(),
		}
		if err := activityRepo.Create(ctx, act); err != nil {
			t.Fatalf("seed activity: %v", err)
		}
	}
	if got := svc.MaybeLevelUp(ctx, habit); got != 0 {
		t.Fatalf("6 days should not level up, got %d", got)
	}

	// The seventh day crosses the threshold.
	act := &schema.Activity{
		UserID: "u1", HabitID: habit.ID, Kind: schema.ActivityComplete,
		Completed: true, Timestamp: now.AddDate(0, 0, -6).UnixMilli(),
	}
	if err := activityRepo.Create(ctx, act); err != nil {
		t.Fatalf("seed activity: %v", err)
	}
	if got := svc.MaybeLevelUp(ctx, habit); got != 2 {
		t.Fatalf("7 days should reach level 2, got %d", got)
	}

	// The new level is persisted.
	stored, err := habitRepo.GetByID(ctx, habit.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload habit: %v", err)
	}
	if stored.Level != 2 {
		t.Fatalf("stored level = %d, want 2", stored.Level)
	}
}
