package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/storage"
)

var validate = validator.New()

type TaskRequest struct {
	Text        string `json:"text" validate:"required"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty" validate:"omitempty,oneof=custom health"`
	XP          int    `json:"xp,omitempty" validate:"omitempty,gte=0,lte=2000"`
}

func ValidateTaskRequest(req *TaskRequest) error {
	return validate.Struct(req)
}

// CreateTask adds a user-authored task for today. A task with the same
// text already existing on the same day is rejected as a duplicate.
func CreateTask(ctx context.Context, taskRepo storage.TaskRepository, user *internal.User,
	req *TaskRequest, defaultXP int, now time.Time) (*internal.Task, error) {

	existing, err := taskRepo.ListTasks(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for _, t := range existing {
		if sameDay(t.Date, now) && strings.EqualFold(t.Text, req.Text) {
			return nil, internal.ErrDuplicateTask
		}
	}

	typ := internal.TaskCustom
	if req.Type != "" {
		typ = internal.TaskType(req.Type)
	}
	xp := req.XP
	if xp == 0 {
		xp = defaultXP
	}
	task := &internal.Task{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Text:        req.Text,
		Description: req.Description,
		XP:          xp,
		Type:        typ,
		Date:        startOfDay(now),
		CreatedAt:   now,
	}
	if err := taskRepo.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

type CompletionResult struct {
	Task        *internal.Task `json:"task"`
	Progression *XPResult      `json:"progression,omitempty"`
}

// CompleteTask marks a task complete and books its XP. Completing an
// already-completed task returns it unchanged with no ledger mutation, so
// client retries cannot double-count. A daily-cap rejection leaves the
// task incomplete.
func CompleteTask(ctx context.Context, taskRepo storage.TaskRepository, ledgerRepo storage.LedgerRepository,
	userID, taskID string, p LevelPolicy, now time.Time) (*CompletionResult, error) {

	task, err := taskRepo.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Completed {
		return &CompletionResult{Task: task}, nil
	}

	res, err := RecordCompletion(ctx, ledgerRepo, userID, task.XP, p, now)
	if err != nil {
		return nil, err
	}

	task.Completed = true
	completedAt := now
	task.CompletedAt = &completedAt
	if err := taskRepo.UpdateTask(ctx, task); err != nil {
		// The ledger already booked the XP; surface the mismatch instead
		// of hiding it.
		return nil, err
	}
	return &CompletionResult{Task: task, Progression: res}, nil
}
