package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yourname/taskquest/internal"
)

func TestMaterializeBuildsFullTaskSet(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	plan := testPlan("u1")

	res, err := Materialize(ctx, s, plan, testXPPolicy(), 7, time.Now())
	assert.NoError(t, err)
	assert.Empty(t, res.Warnings)
	// 1 extreme + 1 hard + 1 medium + 1 easy + 7 daily
	assert.Equal(t, 11, res.TasksCreated)
	assert.Equal(t, 7, res.DailyTasks)

	tasks, err := s.ListTasks(ctx, "u1")
	assert.NoError(t, err)
	assert.Len(t, tasks, 11)

	byType := map[internal.TaskType]int{}
	for _, task := range tasks {
		byType[task.Type]++
		assert.NotNil(t, task.Goal)
	}
	assert.Equal(t, 1, byType[internal.TaskGoalExtreme])
	assert.Equal(t, 1, byType[internal.TaskGoalHard])
	assert.Equal(t, 1, byType[internal.TaskGoalMedium])
	assert.Equal(t, 1, byType[internal.TaskGoalEasy])
	assert.Equal(t, 7, byType[internal.TaskGoalDaily])
}

func TestMaterializeXPPerLevel(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := Materialize(ctx, s, testPlan("u1"), testXPPolicy(), 7, time.Now())
	assert.NoError(t, err)

	tasks, _ := s.ListTasks(ctx, "u1")
	for _, task := range tasks {
		switch task.Type {
		case internal.TaskGoalExtreme:
			assert.Equal(t, 2000, task.XP)
		case internal.TaskGoalHard:
			assert.Equal(t, 1000, task.XP)
		case internal.TaskGoalMedium:
			assert.Equal(t, 300, task.XP)
		case internal.TaskGoalEasy:
			assert.Equal(t, 100, task.XP)
		case internal.TaskGoalDaily:
			assert.Equal(t, 50, task.XP)
		}
	}
}

func TestMaterializeIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	plan := testPlan("u1")
	now := time.Now()

	_, err := Materialize(ctx, s, plan, testXPPolicy(), 7, now)
	assert.NoError(t, err)
	first, _ := s.ListTasks(ctx, "u1")

	_, err = Materialize(ctx, s, plan, testXPPolicy(), 7, now)
	assert.NoError(t, err)
	second, _ := s.ListTasks(ctx, "u1")

	assert.Equal(t, taskFingerprints(first), taskFingerprints(second))
}

// taskFingerprints ignores generated ids: idempotence is about count,
// type, date and content per type.
func taskFingerprints(tasks []internal.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, string(t.Type)+"|"+t.Date.Format("2006-01-02")+"|"+t.Text)
	}
	sort.Strings(out)
	return out
}

func TestRollingWindowTemplateAssignment(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	plan := testPlan("u1") // easy goal e1 carries exactly 2 templates
	now := time.Now()

	_, err := Materialize(ctx, s, plan, testXPPolicy(), 7, now)
	assert.NoError(t, err)

	daily, err := s.ListTasksByType(ctx, "u1", []internal.TaskType{internal.TaskGoalDaily})
	assert.NoError(t, err)
	assert.Len(t, daily, 7)

	sort.Slice(daily, func(i, j int) bool { return daily[i].Date.Before(daily[j].Date) })
	want := []string{
		"Solve one kata", "Read stdlib source",
		"Solve one kata", "Read stdlib source",
		"Solve one kata", "Read stdlib source",
		"Solve one kata",
	}
	for i, task := range daily {
		assert.Equal(t, want[i], task.Text, "day offset %d", i)
		assert.Equal(t, "e1", task.Goal.GoalID)
		assert.Equal(t, "m1", task.Goal.ParentID)
	}
}

func TestFallbackTitlesWhenNoTemplates(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	plan := testPlan("u1")
	plan.EasyGoals[0].DailyTasks = nil

	_, err := Materialize(ctx, s, plan, testXPPolicy(), 7, time.Now())
	assert.NoError(t, err)

	daily, _ := s.ListTasksByType(ctx, "u1", []internal.TaskType{internal.TaskGoalDaily})
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date.Before(daily[j].Date) })
	assert.Len(t, daily, 7)
	for i, task := range daily {
		assert.True(t, strings.HasPrefix(task.Text, fallbackVerbs[i]), "day %d: %q", i, task.Text)
		assert.True(t, strings.HasSuffix(task.Text, "Daily coding practice"))
		assert.Equal(t, "medium", task.Goal.Priority)
	}
}

func TestMaterializeNoEasyGoalsWarnsWithoutFailing(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	plan := testPlan("u1")
	plan.EasyGoals = nil

	res, err := Materialize(ctx, s, plan, testXPPolicy(), 7, time.Now())
	assert.NoError(t, err)
	assert.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "no easy goals")

	daily, _ := s.ListTasksByType(ctx, "u1", []internal.TaskType{internal.TaskGoalDaily})
	assert.Empty(t, daily)
	// Higher levels still materialize standalone.
	tasks, _ := s.ListTasks(ctx, "u1")
	assert.Len(t, tasks, 3)
}

func TestMaterializePreservesCustomTasks(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	custom := &internal.Task{ID: "c1", UserID: "u1", Text: "Buy running shoes", XP: 20, Type: internal.TaskCustom, Date: startOfDay(now), CreatedAt: now}
	assert.NoError(t, s.SaveTask(ctx, custom))

	_, err := Materialize(ctx, s, testPlan("u1"), testXPPolicy(), 7, now)
	assert.NoError(t, err)

	got, err := s.GetTask(ctx, "u1", "c1")
	assert.NoError(t, err)
	assert.Equal(t, "Buy running shoes", got.Text)
}
