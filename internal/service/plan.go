package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/storage"
)

type PlanRequest struct {
	Vision       string   `json:"vision" validate:"required"`
	Goals        []string `json:"goals,omitempty"`
	Challenges   []string `json:"challenges,omitempty"`
	Tools        []string `json:"tools,omitempty"`
	HoursPerWeek int      `json:"hours_per_week,omitempty" validate:"omitempty,gte=1,lte=112"`
}

func ValidatePlanRequest(req *PlanRequest) error {
	return validate.Struct(req)
}

// CreatePlan asks the generation collaborator for a hierarchy, falling
// back to a deterministic local plan when the collaborator is down or its
// response is malformed. Any previously active plan is deactivated so at
// most one plan per user stays active, then the new plan is materialized.
func CreatePlan(ctx context.Context, planRepo storage.PlanRepository, taskRepo storage.TaskRepository,
	gen Generator, user *internal.User, req *PlanRequest, policy XPPolicy, windowDays int,
	now time.Time) (*internal.GoalPlan, *MaterializeResult, error) {

	var warnings []string
	content, err := gen.GeneratePlan(ctx, &GenerationRequest{
		Vision:       req.Vision,
		Goals:        req.Goals,
		Challenges:   req.Challenges,
		Tools:        req.Tools,
		HoursPerWeek: req.HoursPerWeek,
	})
	if err == nil {
		err = ValidateGenerated(content)
	}
	if err != nil {
		warnings = append(warnings, "generator unavailable or response invalid; using fallback plan: "+err.Error())
		content = FallbackContent(req.Vision)
	}

	if err := planRepo.DeactivatePlans(ctx, user.ID); err != nil {
		return nil, nil, err
	}

	start := startOfDay(now)
	plan := &internal.GoalPlan{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Vision:       req.Vision,
		ExtremeGoals: content.ExtremeGoals,
		HardGoals:    content.HardGoals,
		MediumGoals:  content.MediumGoals,
		EasyGoals:    content.EasyGoals,
		IsActive:     true,
		StartDate:    start,
		EndDate:      start.AddDate(1, 0, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := planRepo.SavePlan(ctx, plan); err != nil {
		return nil, nil, err
	}

	res, err := Materialize(ctx, taskRepo, plan, policy, windowDays, now)
	if err != nil {
		// Plan exists but its task set is incomplete; report partial
		// materialization rather than failing the whole request.
		res = &MaterializeResult{Warnings: append(warnings, "materialization incomplete: "+err.Error())}
		return plan, res, nil
	}
	res.Warnings = append(warnings, res.Warnings...)
	return plan, res, nil
}

// ConfirmPlan marks the active plan as user-confirmed.
func ConfirmPlan(ctx context.Context, planRepo storage.PlanRepository, userID string, now time.Time) (*internal.GoalPlan, error) {
	plan, err := planRepo.GetActivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if plan.Confirmed {
		return plan, nil
	}
	plan.Confirmed = true
	plan.UpdatedAt = now
	if err := planRepo.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// RefreshPlanProgress recomputes the plan's derived progress percentage
// from completed hierarchy tasks, plus each EasyGoal's progress from its
// daily tasks, and persists the result.
func RefreshPlanProgress(ctx context.Context, planRepo storage.PlanRepository, taskRepo storage.TaskRepository,
	userID string, now time.Time) (*internal.GoalPlan, error) {

	plan, err := planRepo.GetActivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	tasks, err := taskRepo.ListTasksByType(ctx, userID, internal.HierarchyTaskTypes())
	if err != nil {
		return nil, err
	}

	total, completed := 0, 0
	dailyByGoal := map[string][2]int{} // easyGoalID -> [completed, total]
	for _, t := range tasks {
		total++
		if t.Completed {
			completed++
		}
		if t.Type == internal.TaskGoalDaily && t.Goal != nil {
			counts := dailyByGoal[t.Goal.GoalID]
			if t.Completed {
				counts[0]++
			}
			counts[1]++
			dailyByGoal[t.Goal.GoalID] = counts
		}
	}

	if total > 0 {
		plan.Progress = float64(completed) / float64(total) * 100
	} else {
		plan.Progress = 0
	}
	for i, easy := range plan.EasyGoals {
		counts := dailyByGoal[easy.ID]
		if counts[1] > 0 {
			plan.EasyGoals[i].Progress = float64(counts[0]) / float64(counts[1]) * 100
		}
	}
	plan.UpdatedAt = now

	if err := planRepo.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}
