package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/storage"
)

// XPPolicy carries the configured experience value per hierarchy level.
type XPPolicy struct {
	Extreme int
	Hard    int
	Medium  int
	Easy    int
	Daily   int
}

type MaterializeResult struct {
	TasksCreated int      `json:"tasks_created"`
	DailyTasks   int      `json:"daily_tasks"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Generic action verbs cycled through when an EasyGoal carries no daily
// templates, one per day offset.
var fallbackVerbs = [7]string{
	"Implement", "Progress on", "Review", "Practice", "Plan", "Refine", "Summarize",
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func goalXP(explicit, policy int) int {
	if explicit > 0 {
		return explicit
	}
	return policy
}

// Materialize rebuilds the flat task set for the plan: one task per
// hierarchy node plus a rolling daily window. The replace is full-rebuild
// over the hierarchy-derived types only, so custom/health/suggestion
// tasks survive, and calling it twice yields the same task set.
func Materialize(ctx context.Context, taskRepo storage.TaskRepository, plan *internal.GoalPlan, policy XPPolicy, windowDays int, now time.Time) (*MaterializeResult, error) {
	today := startOfDay(now)
	tasks := make([]*internal.Task, 0, len(plan.ExtremeGoals)+len(plan.HardGoals)+len(plan.MediumGoals)+len(plan.EasyGoals)*(windowDays+1))

	for _, g := range plan.ExtremeGoals {
		tasks = append(tasks, goalTask(plan.UserID, internal.TaskGoalExtreme, g.Title, g.Description,
			goalXP(g.XPValue, policy.Extreme), today, &internal.GoalRef{GoalID: g.ID, Deadline: g.Deadline}))
	}
	for _, g := range plan.HardGoals {
		tasks = append(tasks, goalTask(plan.UserID, internal.TaskGoalHard, g.Title, g.Description,
			goalXP(g.XPValue, policy.Hard), today, &internal.GoalRef{GoalID: g.ID, ParentID: g.ExtremeGoalID, Deadline: g.Deadline}))
	}
	for _, g := range plan.MediumGoals {
		tasks = append(tasks, goalTask(plan.UserID, internal.TaskGoalMedium, g.Title, g.Description,
			goalXP(g.XPValue, policy.Medium), today, &internal.GoalRef{GoalID: g.ID, ParentID: g.HardGoalID, Deadline: g.Deadline}))
	}
	for _, g := range plan.EasyGoals {
		tasks = append(tasks, goalTask(plan.UserID, internal.TaskGoalEasy, g.Title, g.Description,
			goalXP(g.XPValue, policy.Easy), today, &internal.GoalRef{GoalID: g.ID, ParentID: g.MediumGoalID, Deadline: g.Deadline}))
	}

	daily := GenerateDailyTasks(plan.UserID, plan.EasyGoals, today, windowDays, policy.Daily, nil)
	tasks = append(tasks, daily...)

	if err := taskRepo.ReplaceTasks(ctx, plan.UserID, internal.HierarchyTaskTypes(), tasks); err != nil {
		return nil, err
	}

	res := &MaterializeResult{TasksCreated: len(tasks), DailyTasks: len(daily)}
	if len(plan.EasyGoals) == 0 {
		res.Warnings = append(res.Warnings, "plan has no easy goals; no daily tasks were generated")
	}
	return res, nil
}

func goalTask(userID string, typ internal.TaskType, title, description string, xp int, date time.Time, ref *internal.GoalRef) *internal.Task {
	return &internal.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Text:        title,
		Description: description,
		XP:          xp,
		Type:        typ,
		Date:        date,
		Goal:        ref,
		CreatedAt:   time.Now(),
	}
}

// GenerateDailyTasks builds goal_daily tasks for every day offset in
// [0, windowDays) and every EasyGoal, picking the template at index
// dayOffset mod len(templates). exclude skips (easyGoalID, day) pairs
// that already have a task, which the adjuster uses for backfill.
func GenerateDailyTasks(userID string, easyGoals []internal.EasyGoal, from time.Time, windowDays, dailyXP int, exclude map[string]bool) []*internal.Task {
	from = startOfDay(from)
	tasks := []*internal.Task{}
	for offset := 0; offset < windowDays; offset++ {
		date := from.AddDate(0, 0, offset)
		for _, easy := range easyGoals {
			if exclude != nil && exclude[DailyTaskKey(easy.ID, date)] {
				continue
			}
			tasks = append(tasks, dailyTask(userID, easy, date, offset, dailyXP))
		}
	}
	return tasks
}

func dailyTask(userID string, easy internal.EasyGoal, date time.Time, offset, dailyXP int) *internal.Task {
	var (
		title       string
		description string
		minutes     int
		priority    string
	)
	if len(easy.DailyTasks) > 0 {
		tpl := easy.DailyTasks[offset%len(easy.DailyTasks)]
		title = tpl.Title
		description = tpl.Description
		minutes = tpl.EstimatedMinutes
		priority = tpl.Priority
	} else {
		title = fmt.Sprintf("%s %s", fallbackVerbs[offset%len(fallbackVerbs)], easy.Title)
	}
	if priority == "" {
		priority = "medium"
	}
	return &internal.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Text:        title,
		Description: description,
		XP:          dailyXP,
		Type:        internal.TaskGoalDaily,
		Date:        date,
		Goal: &internal.GoalRef{
			GoalID:           easy.ID,
			ParentID:         easy.MediumGoalID,
			Deadline:         easy.Deadline,
			Priority:         priority,
			EstimatedMinutes: minutes,
		},
		CreatedAt: time.Now(),
	}
}

// DailyTaskKey identifies one (easy goal, calendar day) slot in the
// daily window.
func DailyTaskKey(easyGoalID string, date time.Time) string {
	return easyGoalID + "|" + startOfDay(date).Format("2006-01-02")
}
