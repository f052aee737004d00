package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/yuqie6/habitpath/internal/schema"
)

func completionAt(t time.Time) schema.Activity {
	return schema.Activity{Kind: schema.ActivityComplete, Completed: true, Timestamp: t.UnixMilli()}
}

func TestStreakFromActivities_Empty(t *testing.T) {
	if got := streakFromActivities(nil, time.Now()); got != 0 {
		t.Fatalf("no completions should give streak 0, got %d", got)
	}
}

func TestStreakFromActivities_TodayAndYesterday(t *testing.T) {
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.Local)
	acts := []schema.Activity{
		completionAt(now.Add(-2 * time.Hour)),
		completionAt(now.AddDate(0, 0, -1)),
	}
	if got := streakFromActivities(acts, now); got != 2 {
		t.Fatalf("today + yesterday should give streak 2, got %d", got)
	}
}

func TestStreakFromActivities_YesterdayGrace(t *testing.T) {
	// A completion yesterday but none today still counts: the streak is not
	// broken until a full day is missed.
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	acts := []schema.Activity{
		completionAt(now.AddDate(0, 0, -1)),
		completionAt(now.AddDate(0, 0, -2)),
		completionAt(now.AddDate(0, 0, -3)),
	}
	if got := streakFromActivities(acts, now); got != 3 {
		t.Fatalf("three consecutive days ending yesterday should give 3, got %d", got)
	}
}

func TestStreakFromActivities_GapBreaks(t *testing.T) {
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.Local)
	acts := []schema.Activity{
		completionAt(now),
		completionAt(now.AddDate(0, 0, -1)),
		// two-day gap here
		completionAt(now.AddDate(0, 0, -4)),
		completionAt(now.AddDate(0, 0, -5)),
	}
	if got := streakFromActivities(acts, now); got != 2 {
		t.Fatalf("gap should stop the walk at 2, got %d", got)
	}
}

func TestStreakFromActivities_SameDayDedup(t *testing.T) {
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.Local)
	acts := []schema.Activity{
		completionAt(now),
		completionAt(now.Add(-3 * time.Hour)),
		completionAt(now.Add(-8 * time.Hour)),
	}
	if got := streakFromActivities(acts, now); got != 1 {
		t.Fatalf("multiple completions in one day count once, got %d", got)
	}
}

func TestStreakFromActivities_FutureIgnored(t *testing.T) {
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.Local)
	acts := []schema.Activity{
		completionAt(now.AddDate(0, 0, 3)), // clock skew, must not count
		completionAt(now),
		completionAt(now.AddDate(0, 0, -1)),
	}
	if got := streakFromActivities(acts, now); got != 2 {
		t.Fatalf("future-dated completion should be ignored, got %d", got)
	}
}

// failingActivityRepo simulates a storage outage for every call.
type failingActivityRepo struct{}

func (failingActivityRepo) Create(ctx context.Context, activity *schema.Activity) error {
	return fmt.Errorf("storage down")
}
func (failingActivityRepo) GetByID(ctx context.Context, id int64) (*schema.Activity, error) {
	return nil, fmt.Errorf("storage down")
}
func (failingActivityRepo) GetCompletions(ctx context.Context, habitID int64, maxAgeDays int) ([]schema.Activity, error) {
	return nil, fmt.Errorf("storage down")
}
func (failingActivityRepo) GetByTimeRange(ctx context.Context, userID string, startTime, endTime int64) ([]schema.Activity, error) {
	return nil, fmt.Errorf("storage down")
}
func (failingActivityRepo) CountCompletionDays(ctx context.Context, habitID int64) (int64, error) {
	return 0, fmt.Errorf("storage down")
}

func TestCurrentStreak_FailsOpen(t *testing.T) {
	svc := NewStreakService(failingActivityRepo{}, 0)
	if got := svc.CurrentStreak(context.Background(), 1); got != 0 {
		t.Fatalf("read failure should degrade to streak 0, got %d", got)
	}
}

// recordingActivityRepo captures the window passed to GetCompletions.
type recordingActivityRepo struct {
	failingActivityRepo
	gotWindow int
}

func (r *recordingActivityRepo) GetCompletions(ctx context.Context, habitID int64, maxAgeDays int) ([]schema.Activity, error) {
	r.gotWindow = maxAgeDays
	return nil, nil
}

func TestCurrentStreak_UsesConfiguredWindow(t *testing.T) {
	repo := &recordingActivityRepo{}
	NewStreakService(repo, 90).CurrentStreak(context.Background(), 1)
	if repo.gotWindow != 90 {
		t.Fatalf("window=%d, want 90", repo.gotWindow)
	}

	// Non-positive values fall back to the default window.
	NewStreakService(repo, 0).CurrentStreak(context.Background(), 1)
	if repo.gotWindow != defaultStreakWindowDays {
		t.Fatalf("window=%d, want %d", repo.gotWindow, defaultStreakWindowDays)
	}
}
