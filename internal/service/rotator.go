package service

import (
	"context"
	"sort"
	"time"

	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/storage"
)

var priorityRank = map[string]int{"high": 0, "medium": 1, "low": 2}

func taskPriorityRank(t *internal.Task) int {
	if t.Goal == nil {
		return priorityRank["medium"]
	}
	if r, ok := priorityRank[t.Goal.Priority]; ok {
		return r
	}
	return priorityRank["medium"]
}

func taskDeadline(t *internal.Task) *time.Time {
	if t.Goal == nil {
		return nil
	}
	return t.Goal.Deadline
}

// SelectPriority returns the daily tasks the user should act on now:
// incomplete goal_daily tasks dated today or earlier, ordered by deadline
// (tasks without one last), ties broken by priority, capped at limit.
// Pure selection, no mutation.
func SelectPriority(ctx context.Context, taskRepo storage.TaskRepository, userID string, limit int, now time.Time) ([]internal.Task, error) {
	all, err := taskRepo.ListTasksByType(ctx, userID, []internal.TaskType{internal.TaskGoalDaily})
	if err != nil {
		return nil, err
	}

	endOfToday := startOfDay(now).AddDate(0, 0, 1)
	due := []internal.Task{}
	for _, t := range all {
		if !t.Completed && t.Date.Before(endOfToday) {
			due = append(due, t)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		di, dj := taskDeadline(&due[i]), taskDeadline(&due[j])
		switch {
		case di == nil && dj == nil:
			return taskPriorityRank(&due[i]) < taskPriorityRank(&due[j])
		case di == nil:
			return false
		case dj == nil:
			return true
		case !di.Equal(*dj):
			return di.Before(*dj)
		}
		return taskPriorityRank(&due[i]) < taskPriorityRank(&due[j])
	})

	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// RolloverDaily is invoked by the external scheduler. It resets the
// ledger's daily counters when the last reset was on an earlier day and
// tops up the daily window for the active plan. Safe to call more often
// than needed; "today" is computed from the wall clock at call time.
func RolloverDaily(ctx context.Context, planRepo storage.PlanRepository, taskRepo storage.TaskRepository,
	ledgerRepo storage.LedgerRepository, userID string, policy XPPolicy,
	windowDays int, now time.Time) (*MaterializeResult, error) {

	if _, err := ResetDailyIfStale(ctx, ledgerRepo, userID, now); err != nil {
		return nil, err
	}

	plan, err := planRepo.GetActivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}

	backfilled, err := BackfillDailyTasks(ctx, taskRepo, plan, policy, windowDays, now)
	if err != nil {
		return nil, err
	}
	res := &MaterializeResult{TasksCreated: backfilled, DailyTasks: backfilled}
	if len(plan.EasyGoals) == 0 {
		res.Warnings = append(res.Warnings, "plan has no easy goals; no daily tasks were generated")
	}
	return res, nil
}
