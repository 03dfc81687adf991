package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yourname/taskquest/internal"
	"go.uber.org/zap"
)

type testPaths struct {
	plans, tasks, ledgers, rotations string
}

func newPaths(t *testing.T) testPaths {
	t.Helper()
	dir := t.TempDir()
	return testPaths{
		plans:     filepath.Join(dir, "plans.json"),
		tasks:     filepath.Join(dir, "tasks.json"),
		ledgers:   filepath.Join(dir, "ledgers.json"),
		rotations: filepath.Join(dir, "rotations.json"),
	}
}

func open(t *testing.T, p testPaths) *FileStorage {
	t.Helper()
	s, err := NewFileStorage(p.plans, p.tasks, p.ledgers, p.rotations, internal.NewZapLogger(zap.NewNop().Sugar()))
	assert.NoError(t, err)
	return s
}

func taskFixture(userID, id string, typ internal.TaskType, goalID string) *internal.Task {
	return &internal.Task{
		ID:        id,
		UserID:    userID,
		Text:      "task " + id,
		XP:        100,
		Type:      typ,
		Date:      time.Now().Truncate(24 * time.Hour),
		Goal:      &internal.GoalRef{GoalID: goalID},
		CreatedAt: time.Now(),
	}
}

func TestFileStoragePersistsAcrossReopen(t *testing.T) {
	p := newPaths(t)
	ctx := context.Background()

	s := open(t, p)
	plan := &internal.GoalPlan{ID: "p1", UserID: "u1", Vision: "v", IsActive: true, CreatedAt: time.Now()}
	assert.NoError(t, s.SavePlan(ctx, plan))
	assert.NoError(t, s.SaveTask(ctx, taskFixture("u1", "t1", internal.TaskGoalEasy, "e1")))
	_, err := s.UpdateLedger(ctx, "u1", func(l *internal.ProgressionLedger) error {
		l.XP = 250
		l.Streak = 3
		return nil
	})
	assert.NoError(t, err)
	assert.NoError(t, s.SaveRotationState(ctx, &internal.RotationState{UserID: "u1", RotationIndex: 4}))
	assert.NoError(t, s.Close())

	s2 := open(t, p)
	defer s2.Close()

	got, err := s2.GetActivePlan(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, "p1", got.ID)

	task, err := s2.GetTask(ctx, "u1", "t1")
	assert.NoError(t, err)
	assert.Equal(t, "e1", task.Goal.GoalID)

	ledger, err := s2.GetLedger(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 250, ledger.XP)
	assert.Equal(t, 3, ledger.Streak)

	rot, err := s2.GetRotationState(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 4, rot.RotationIndex)
}

func TestReplaceTasksLeavesOtherTypesAlone(t *testing.T) {
	p := newPaths(t)
	s := open(t, p)
	defer s.Close()
	ctx := context.Background()

	assert.NoError(t, s.SaveTask(ctx, taskFixture("u1", "easy1", internal.TaskGoalEasy, "e1")))
	assert.NoError(t, s.SaveTask(ctx, taskFixture("u1", "daily1", internal.TaskGoalDaily, "e1")))
	custom := taskFixture("u1", "custom1", internal.TaskCustom, "")
	custom.Goal = nil
	assert.NoError(t, s.SaveTask(ctx, custom))
	assert.NoError(t, s.SaveTask(ctx, taskFixture("u2", "other1", internal.TaskGoalEasy, "z1")))

	fresh := []*internal.Task{
		taskFixture("u1", "easy2", internal.TaskGoalEasy, "e2"),
		taskFixture("u1", "daily2", internal.TaskGoalDaily, "e2"),
	}
	types := []internal.TaskType{internal.TaskGoalEasy, internal.TaskGoalDaily}
	assert.NoError(t, s.ReplaceTasks(ctx, "u1", types, fresh))

	tasks, err := s.ListTasks(ctx, "u1")
	assert.NoError(t, err)
	ids := map[string]bool{}
	for _, task := range tasks {
		ids[task.ID] = true
	}
	assert.Equal(t, map[string]bool{"easy2": true, "daily2": true, "custom1": true}, ids)

	// Tasks of other users are untouched.
	_, err = s.GetTask(ctx, "u2", "other1")
	assert.NoError(t, err)
	_, err = s.GetTask(ctx, "u1", "easy1")
	assert.ErrorIs(t, err, internal.ErrNotFound)
}

func TestDeleteTasksByGoalIDs(t *testing.T) {
	p := newPaths(t)
	s := open(t, p)
	defer s.Close()
	ctx := context.Background()

	assert.NoError(t, s.SaveTask(ctx, taskFixture("u1", "a1", internal.TaskGoalEasy, "a")))
	assert.NoError(t, s.SaveTask(ctx, taskFixture("u1", "a2", internal.TaskGoalDaily, "a")))
	assert.NoError(t, s.SaveTask(ctx, taskFixture("u1", "b1", internal.TaskGoalEasy, "b")))

	n, err := s.DeleteTasksByGoalIDs(ctx, "u1", []string{"a"})
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	tasks, err := s.ListTasks(ctx, "u1")
	assert.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, "b1", tasks[0].ID)
}

func TestUpdateLedgerAbortsOnCallbackError(t *testing.T) {
	p := newPaths(t)
	s := open(t, p)
	defer s.Close()
	ctx := context.Background()

	_, err := s.UpdateLedger(ctx, "u1", func(l *internal.ProgressionLedger) error {
		l.XP = 100
		return nil
	})
	assert.NoError(t, err)

	boom := errors.New("cap reached")
	_, err = s.UpdateLedger(ctx, "u1", func(l *internal.ProgressionLedger) error {
		l.XP = 999
		return boom
	})
	assert.ErrorIs(t, err, boom)

	ledger, err := s.GetLedger(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 100, ledger.XP)
}

func TestGetLedgerDefaultsToLevelOne(t *testing.T) {
	p := newPaths(t)
	s := open(t, p)
	defer s.Close()

	ledger, err := s.GetLedger(context.Background(), "brand-new")
	assert.NoError(t, err)
	assert.Equal(t, 1, ledger.Level)
	assert.Zero(t, ledger.XP)
}

func TestDeactivatePlans(t *testing.T) {
	p := newPaths(t)
	s := open(t, p)
	defer s.Close()
	ctx := context.Background()

	old := &internal.GoalPlan{ID: "p1", UserID: "u1", IsActive: true, CreatedAt: time.Now().Add(-time.Hour)}
	assert.NoError(t, s.SavePlan(ctx, old))
	assert.NoError(t, s.DeactivatePlans(ctx, "u1"))

	_, err := s.GetActivePlan(ctx, "u1")
	assert.ErrorIs(t, err, internal.ErrNotFound)

	next := &internal.GoalPlan{ID: "p2", UserID: "u1", IsActive: true, CreatedAt: time.Now()}
	assert.NoError(t, s.SavePlan(ctx, next))
	got, err := s.GetActivePlan(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, "p2", got.ID)
}
