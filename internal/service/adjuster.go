package service

import (
	"context"
	"time"

	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/storage"
)

type AdjustResult struct {
	RemovedGoalIDs  []string `json:"removed_goal_ids,omitempty"`
	TasksRemoved    int      `json:"tasks_removed"`
	DailyBackfilled int      `json:"daily_backfilled"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Adjust applies externally revised hierarchy content on top of the
// current plan. Only collections present in the revision are replaced;
// tasks are purged selectively by removed goal id instead of a full
// rebuild, so completion state on unaffected branches survives.
//
// Validation failures abort before any mutation. Cleanup/backfill
// failures after the merge are reported as warnings, not rolled back.
func Adjust(ctx context.Context, planRepo storage.PlanRepository, taskRepo storage.TaskRepository,
	plan *internal.GoalPlan, revised *GeneratedContent, feedback, userContext string,
	policy XPPolicy, windowDays int, now time.Time) (*AdjustResult, error) {

	if err := ValidateAdjustment(revised); err != nil {
		return nil, err
	}

	removed := removedGoalIDs(plan, revised)

	snapshot := internal.PlanSnapshot{
		ExtremeGoals: plan.ExtremeGoals,
		HardGoals:    plan.HardGoals,
		MediumGoals:  plan.MediumGoals,
		EasyGoals:    plan.EasyGoals,
	}

	// Partial merge: omitted collections stay untouched.
	if revised.ExtremeGoals != nil {
		plan.ExtremeGoals = revised.ExtremeGoals
	}
	if revised.HardGoals != nil {
		plan.HardGoals = revised.HardGoals
	}
	if revised.MediumGoals != nil {
		plan.MediumGoals = revised.MediumGoals
	}
	if revised.EasyGoals != nil {
		plan.EasyGoals = revised.EasyGoals
	}
	plan.FeedbackHistory = append(plan.FeedbackHistory, internal.FeedbackEntry{
		Feedback:    feedback,
		UserContext: userContext,
		CreatedAt:   now,
		Snapshot:    snapshot,
	})
	plan.UpdatedAt = now

	if err := planRepo.SavePlan(ctx, plan); err != nil {
		return nil, err
	}

	res := &AdjustResult{RemovedGoalIDs: removed}
	if !plan.IsActive {
		return res, nil
	}

	// Selective cleanup. Daily tasks carry their EasyGoal id as GoalID,
	// so removing by goal id also cascades the goal_daily children of
	// removed EasyGoals.
	if len(removed) > 0 {
		count, err := taskRepo.DeleteTasksByGoalIDs(ctx, plan.UserID, removed)
		if err != nil {
			res.Warnings = append(res.Warnings, "task cleanup failed; task set may be stale: "+err.Error())
			return res, nil
		}
		res.TasksRemoved = count
	}

	backfilled, err := BackfillDailyTasks(ctx, taskRepo, plan, policy, windowDays, now)
	if err != nil {
		res.Warnings = append(res.Warnings, "daily backfill failed: "+err.Error())
		return res, nil
	}
	res.DailyBackfilled = backfilled
	if len(plan.EasyGoals) == 0 {
		res.Warnings = append(res.Warnings, "plan has no easy goals; no daily tasks were generated")
	}
	return res, nil
}

// BackfillDailyTasks regenerates daily tasks for the surviving EasyGoals
// only, skipping (goal, day) slots that already have one. Idempotent.
func BackfillDailyTasks(ctx context.Context, taskRepo storage.TaskRepository, plan *internal.GoalPlan,
	policy XPPolicy, windowDays int, now time.Time) (int, error) {

	existing, err := taskRepo.ListTasksByType(ctx, plan.UserID, []internal.TaskType{internal.TaskGoalDaily})
	if err != nil {
		return 0, err
	}
	exclude := make(map[string]bool, len(existing))
	for _, t := range existing {
		if t.Goal != nil {
			exclude[DailyTaskKey(t.Goal.GoalID, t.Date)] = true
		}
	}

	tasks := GenerateDailyTasks(plan.UserID, plan.EasyGoals, now, windowDays, policy.Daily, exclude)
	for _, t := range tasks {
		if err := taskRepo.SaveTask(ctx, t); err != nil {
			return 0, err
		}
	}
	return len(tasks), nil
}

// removedGoalIDs computes previousIDs minus revisedIDs per level, for the
// levels the revision actually touches.
func removedGoalIDs(plan *internal.GoalPlan, revised *GeneratedContent) []string {
	var removed []string
	if revised.ExtremeGoals != nil {
		kept := make(map[string]bool, len(revised.ExtremeGoals))
		for _, g := range revised.ExtremeGoals {
			kept[g.ID] = true
		}
		for _, g := range plan.ExtremeGoals {
			if !kept[g.ID] {
				removed = append(removed, g.ID)
			}
		}
	}
	if revised.HardGoals != nil {
		kept := make(map[string]bool, len(revised.HardGoals))
		for _, g := range revised.HardGoals {
			kept[g.ID] = true
		}
		for _, g := range plan.HardGoals {
			if !kept[g.ID] {
				removed = append(removed, g.ID)
			}
		}
	}
	if revised.MediumGoals != nil {
		kept := make(map[string]bool, len(revised.MediumGoals))
		for _, g := range revised.MediumGoals {
			kept[g.ID] = true
		}
		for _, g := range plan.MediumGoals {
			if !kept[g.ID] {
				removed = append(removed, g.ID)
			}
		}
	}
	if revised.EasyGoals != nil {
		kept := make(map[string]bool, len(revised.EasyGoals))
		for _, g := range revised.EasyGoals {
			kept[g.ID] = true
		}
		for _, g := range plan.EasyGoals {
			if !kept[g.ID] {
				removed = append(removed, g.ID)
			}
		}
	}
	return removed
}
