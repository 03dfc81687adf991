package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/storage"
	"go.uber.org/zap"
)

func newTestStorage(t *testing.T) *storage.FileStorage {
	t.Helper()
	dir := t.TempDir()
	logger := internal.NewZapLogger(zap.NewNop().Sugar())
	s, err := storage.NewFileStorage(
		filepath.Join(dir, "plans.json"),
		filepath.Join(dir, "tasks.json"),
		filepath.Join(dir, "ledgers.json"),
		filepath.Join(dir, "rotations.json"),
		logger,
	)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testXPPolicy() XPPolicy {
	return XPPolicy{Extreme: 2000, Hard: 1000, Medium: 300, Easy: 100, Daily: 50}
}

func testLevelPolicy() LevelPolicy {
	return LevelPolicy{BaseXP: 1000, Increment: 100, DailyXPCap: 400}
}

func datePtr(t time.Time) *time.Time { return &t }

func testPlan(userID string) *internal.GoalPlan {
	now := time.Now()
	return &internal.GoalPlan{
		ID:     "plan1",
		UserID: userID,
		Vision: "become a systems programmer",
		ExtremeGoals: []internal.ExtremeGoal{
			{ID: "x1", Title: "Ship a production service", Category: "career"},
		},
		HardGoals: []internal.HardGoal{
			{ID: "h1", Title: "Master Go", ExtremeGoalID: "x1"},
		},
		MediumGoals: []internal.MediumGoal{
			{ID: "m1", Title: "Build three CLI tools", HardGoalID: "h1"},
		},
		EasyGoals: []internal.EasyGoal{
			{
				ID: "e1", Title: "Daily coding practice", MediumGoalID: "m1",
				DailyTasks: []internal.DailyTaskTemplate{
					{Title: "Solve one kata", EstimatedMinutes: 30, Priority: "high"},
					{Title: "Read stdlib source", EstimatedMinutes: 20, Priority: "low"},
				},
			},
		},
		IsActive:  true,
		StartDate: now,
		EndDate:   now.AddDate(1, 0, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
