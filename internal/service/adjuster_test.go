package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yourname/taskquest/internal"
)

func multiEasyPlan(userID string) *internal.GoalPlan {
	plan := testPlan(userID)
	plan.EasyGoals = []internal.EasyGoal{
		{ID: "a", Title: "Easy A", MediumGoalID: "m1"},
		{ID: "b", Title: "Easy B", MediumGoalID: "m1"},
		{ID: "c", Title: "Easy C", MediumGoalID: "m1"},
	}
	return plan
}

func TestAdjustRemovesOnlyAffectedBranches(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()
	plan := multiEasyPlan("u1")
	assert.NoError(t, s.SavePlan(ctx, plan))

	_, err := Materialize(ctx, s, plan, testXPPolicy(), 7, now)
	assert.NoError(t, err)

	// Previous easy ids {a,b,c}, revised {b,c,d}: removed = {a}.
	revised := &GeneratedContent{
		EasyGoals: []internal.EasyGoal{
			{ID: "b", Title: "Easy B", MediumGoalID: "m1"},
			{ID: "c", Title: "Easy C", MediumGoalID: "m1"},
			{ID: "d", Title: "Easy D", MediumGoalID: "m1"},
		},
	}
	res, err := Adjust(ctx, s, s, plan, revised, "drop goal A", "", testXPPolicy(), 7, now)
	assert.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.RemovedGoalIDs)
	// goal_easy task for a + its 7 daily children.
	assert.Equal(t, 8, res.TasksRemoved)
	// d gets a fresh 7-day window; b and c keep theirs.
	assert.Equal(t, 7, res.DailyBackfilled)

	daily, _ := s.ListTasksByType(ctx, "u1", []internal.TaskType{internal.TaskGoalDaily})
	perGoal := map[string]int{}
	for _, task := range daily {
		perGoal[task.Goal.GoalID]++
	}
	assert.Zero(t, perGoal["a"])
	assert.Equal(t, 7, perGoal["b"])
	assert.Equal(t, 7, perGoal["c"])
	assert.Equal(t, 7, perGoal["d"])
}

func TestAdjustPreservesCompletionOnSurvivors(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()
	plan := multiEasyPlan("u1")
	assert.NoError(t, s.SavePlan(ctx, plan))
	_, err := Materialize(ctx, s, plan, testXPPolicy(), 7, now)
	assert.NoError(t, err)

	// Complete one of b's daily tasks.
	daily, _ := s.ListTasksByType(ctx, "u1", []internal.TaskType{internal.TaskGoalDaily})
	var completedID string
	for _, task := range daily {
		if task.Goal.GoalID == "b" {
			task.Completed = true
			completedAt := now
			task.CompletedAt = &completedAt
			assert.NoError(t, s.UpdateTask(ctx, &task))
			completedID = task.ID
			break
		}
	}

	revised := &GeneratedContent{
		EasyGoals: []internal.EasyGoal{
			{ID: "b", Title: "Easy B", MediumGoalID: "m1"},
			{ID: "c", Title: "Easy C", MediumGoalID: "m1"},
		},
	}
	_, err = Adjust(ctx, s, s, plan, revised, "drop goal A", "", testXPPolicy(), 7, now)
	assert.NoError(t, err)

	got, err := s.GetTask(ctx, "u1", completedID)
	assert.NoError(t, err)
	assert.True(t, got.Completed)
}

func TestAdjustPartialMergeAndFeedbackLog(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()
	plan := multiEasyPlan("u1")
	assert.NoError(t, s.SavePlan(ctx, plan))

	originalHard := plan.HardGoals
	revised := &GeneratedContent{
		EasyGoals: []internal.EasyGoal{{ID: "b", Title: "Easy B only", MediumGoalID: "m1"}},
	}
	_, err := Adjust(ctx, s, s, plan, revised, "focus on B", "less time this month", testXPPolicy(), 7, now)
	assert.NoError(t, err)

	// Omitted collections stay untouched.
	assert.Equal(t, originalHard, plan.HardGoals)
	assert.Len(t, plan.EasyGoals, 1)

	assert.Len(t, plan.FeedbackHistory, 1)
	entry := plan.FeedbackHistory[0]
	assert.Equal(t, "focus on B", entry.Feedback)
	assert.Equal(t, "less time this month", entry.UserContext)
	// The snapshot preserves the pre-merge easy goals.
	assert.Len(t, entry.Snapshot.EasyGoals, 3)
}

func TestAdjustValidationAbortsBeforeMutation(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()
	plan := multiEasyPlan("u1")
	assert.NoError(t, s.SavePlan(ctx, plan))
	_, err := Materialize(ctx, s, plan, testXPPolicy(), 7, now)
	assert.NoError(t, err)
	before, _ := s.ListTasks(ctx, "u1")

	// Explicitly empty easy goals would orphan every daily task.
	revised := &GeneratedContent{EasyGoals: []internal.EasyGoal{}}
	_, err = Adjust(ctx, s, s, plan, revised, "bad revision", "", testXPPolicy(), 7, now)
	assert.ErrorIs(t, err, internal.ErrValidationFailed)

	assert.Empty(t, plan.FeedbackHistory)
	after, _ := s.ListTasks(ctx, "u1")
	assert.Len(t, after, len(before))
}

func TestValidateGenerated(t *testing.T) {
	assert.ErrorIs(t, ValidateGenerated(nil), internal.ErrValidationFailed)
	assert.ErrorIs(t, ValidateGenerated(&GeneratedContent{}), internal.ErrValidationFailed)

	ok := &GeneratedContent{
		HardGoals:   []internal.HardGoal{{ID: "h1"}},
		MediumGoals: []internal.MediumGoal{{ID: "m1"}},
		EasyGoals:   []internal.EasyGoal{{ID: "e1"}},
	}
	assert.NoError(t, ValidateGenerated(ok))

	// Easy goals are the floor; the other levels may be empty slices.
	noEasy := &GeneratedContent{
		HardGoals:   []internal.HardGoal{},
		MediumGoals: []internal.MediumGoal{},
		EasyGoals:   []internal.EasyGoal{},
	}
	assert.ErrorIs(t, ValidateGenerated(noEasy), internal.ErrValidationFailed)
}
