package storage

import (
	"context"

	"github.com/yourname/taskquest/internal"
)

type PlanRepository interface {
	// SavePlan inserts or fully replaces the plan.
	SavePlan(ctx context.Context, plan *internal.GoalPlan) error
	GetActivePlan(ctx context.Context, userID string) (*internal.GoalPlan, error)
	// DeactivatePlans clears the active flag on every plan the user owns,
	// keeping the at-most-one-active invariant before a new plan is saved.
	DeactivatePlans(ctx context.Context, userID string) error
}

type TaskRepository interface {
	SaveTask(ctx context.Context, task *internal.Task) error
	UpdateTask(ctx context.Context, task *internal.Task) error
	GetTask(ctx context.Context, userID, taskID string) (*internal.Task, error)
	ListTasks(ctx context.Context, userID string) ([]internal.Task, error)
	ListTasksByType(ctx context.Context, userID string, types []internal.TaskType) ([]internal.Task, error)
	// ReplaceTasks atomically deletes the user's tasks of the given types
	// and inserts the new set. Concurrent readers never observe the
	// intermediate empty state.
	ReplaceTasks(ctx context.Context, userID string, types []internal.TaskType, tasks []*internal.Task) error
	DeleteTask(ctx context.Context, userID, taskID string) error
	// DeleteTasksByGoalIDs removes every task whose provenance GoalID is
	// in the set. Daily tasks carry their EasyGoal id as GoalID, so the
	// cascade from a removed EasyGoal is covered by the same call.
	DeleteTasksByGoalIDs(ctx context.Context, userID string, goalIDs []string) (int, error)
}

type LedgerRepository interface {
	GetLedger(ctx context.Context, userID string) (*internal.ProgressionLedger, error)
	// UpdateLedger runs fn against the user's ledger (a fresh level-1
	// ledger when none exists) as a single atomic read-modify-write. If fn
	// returns an error nothing is persisted and the error is returned.
	UpdateLedger(ctx context.Context, userID string, fn func(*internal.ProgressionLedger) error) (*internal.ProgressionLedger, error)
}

type RotationRepository interface {
	GetRotationState(ctx context.Context, userID string) (*internal.RotationState, error)
	SaveRotationState(ctx context.Context, state *internal.RotationState) error
}
