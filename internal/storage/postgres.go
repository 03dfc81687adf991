package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourname/taskquest/internal"
)

type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

func NewPostgresStorage(dsn string, logger internal.Logger) (*PostgresStorage, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Errorf("failed to connect to postgres: %v", err)
		return nil, err
	}
	return &PostgresStorage{pool: pool, logger: logger}, nil
}

// --- PlanRepository ---

func (p *PostgresStorage) SavePlan(ctx context.Context, plan *internal.GoalPlan) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO goal_plans (id, user_id, vision, extreme_goals, hard_goals, medium_goals, easy_goals,
			progress, is_active, confirmed, start_date, end_date, feedback_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			vision = EXCLUDED.vision,
			extreme_goals = EXCLUDED.extreme_goals,
			hard_goals = EXCLUDED.hard_goals,
			medium_goals = EXCLUDED.medium_goals,
			easy_goals = EXCLUDED.easy_goals,
			progress = EXCLUDED.progress,
			is_active = EXCLUDED.is_active,
			confirmed = EXCLUDED.confirmed,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			feedback_history = EXCLUDED.feedback_history,
			updated_at = EXCLUDED.updated_at`,
		plan.ID, plan.UserID, plan.Vision, plan.ExtremeGoals, plan.HardGoals, plan.MediumGoals, plan.EasyGoals,
		plan.Progress, plan.IsActive, plan.Confirmed, plan.StartDate, plan.EndDate, plan.FeedbackHistory,
		plan.CreatedAt, plan.UpdatedAt)
	if err != nil {
		p.logger.Errorf("failed to save plan: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) GetActivePlan(ctx context.Context, userID string) (*internal.GoalPlan, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, user_id, vision, extreme_goals, hard_goals, medium_goals, easy_goals,
			progress, is_active, confirmed, start_date, end_date, feedback_history, created_at, updated_at
		FROM goal_plans WHERE user_id = $1 AND is_active = true LIMIT 1`, userID)
	var plan internal.GoalPlan
	err := row.Scan(&plan.ID, &plan.UserID, &plan.Vision, &plan.ExtremeGoals, &plan.HardGoals,
		&plan.MediumGoals, &plan.EasyGoals, &plan.Progress, &plan.IsActive, &plan.Confirmed,
		&plan.StartDate, &plan.EndDate, &plan.FeedbackHistory, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("storage: active plan for user %s: %w", userID, internal.ErrNotFound)
		}
		p.logger.Errorf("failed to query active plan: %v", err)
		return nil, err
	}
	return &plan, nil
}

func (p *PostgresStorage) DeactivatePlans(ctx context.Context, userID string) error {
	_, err := p.pool.Exec(ctx, `UPDATE goal_plans SET is_active = false, updated_at = now() WHERE user_id = $1 AND is_active = true`, userID)
	if err != nil {
		p.logger.Errorf("failed to deactivate plans: %v", err)
		return err
	}
	return nil
}

// --- TaskRepository ---

const taskColumns = `id, user_id, text, description, xp, type, date, completed, completed_at, goal_ref, created_at`

func scanTask(row pgx.Row) (*internal.Task, error) {
	var t internal.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Text, &t.Description, &t.XP, &t.Type, &t.Date,
		&t.Completed, &t.CompletedAt, &t.Goal, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (p *PostgresStorage) SaveTask(ctx context.Context, task *internal.Task) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		task.ID, task.UserID, task.Text, task.Description, task.XP, task.Type, task.Date,
		task.Completed, task.CompletedAt, task.Goal, task.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert task: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) UpdateTask(ctx context.Context, task *internal.Task) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE tasks SET text = $3, description = $4, xp = $5, type = $6, date = $7,
			completed = $8, completed_at = $9, goal_ref = $10
		WHERE id = $1 AND user_id = $2`,
		task.ID, task.UserID, task.Text, task.Description, task.XP, task.Type, task.Date,
		task.Completed, task.CompletedAt, task.Goal)
	if err != nil {
		p.logger.Errorf("failed to update task: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: task %s: %w", task.ID, internal.ErrNotFound)
	}
	return nil
}

func (p *PostgresStorage) GetTask(ctx context.Context, userID, taskID string) (*internal.Task, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("storage: task %s: %w", taskID, internal.ErrNotFound)
		}
		p.logger.Errorf("failed to query task: %v", err)
		return nil, err
	}
	return t, nil
}

func (p *PostgresStorage) ListTasks(ctx context.Context, userID string) ([]internal.Task, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY date, created_at`, userID)
	if err != nil {
		p.logger.Errorf("failed to query tasks: %v", err)
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (p *PostgresStorage) ListTasksByType(ctx context.Context, userID string, types []internal.TaskType) ([]internal.Task, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	rows, err := p.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND type = ANY($2) ORDER BY date, created_at`, userID, names)
	if err != nil {
		p.logger.Errorf("failed to query tasks by type: %v", err)
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]internal.Task, error) {
	tasks := []internal.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// ReplaceTasks runs the delete+insert pair in one transaction so readers
// never observe the intermediate empty state.
func (p *PostgresStorage) ReplaceTasks(ctx context.Context, userID string, types []internal.TaskType, tasks []*internal.Task) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE user_id = $1 AND type = ANY($2)`, userID, names); err != nil {
		p.logger.Errorf("failed to delete stale tasks: %v", err)
		return err
	}

	batch := &pgx.Batch{}
	for _, t := range tasks {
		batch.Queue(`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			t.ID, t.UserID, t.Text, t.Description, t.XP, t.Type, t.Date, t.Completed, t.CompletedAt, t.Goal, t.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		p.logger.Errorf("failed to insert replacement tasks: %v", err)
		return err
	}
	return tx.Commit(ctx)
}

func (p *PostgresStorage) DeleteTask(ctx context.Context, userID, taskID string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID)
	if err != nil {
		p.logger.Errorf("failed to delete task: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: task %s: %w", taskID, internal.ErrNotFound)
	}
	return nil
}

func (p *PostgresStorage) DeleteTasksByGoalIDs(ctx context.Context, userID string, goalIDs []string) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM tasks WHERE user_id = $1 AND goal_ref->>'goal_id' = ANY($2)`, userID, goalIDs)
	if err != nil {
		p.logger.Errorf("failed to delete tasks by goal ids: %v", err)
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// --- LedgerRepository ---

const ledgerColumns = `user_id, level, xp, daily_xp, completed_today, total_completed, streak, last_activity, last_daily_reset`

func (p *PostgresStorage) GetLedger(ctx context.Context, userID string) (*internal.ProgressionLedger, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE user_id = $1`, userID)
	l, err := scanLedger(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return defaultLedger(userID), nil
		}
		p.logger.Errorf("failed to query ledger: %v", err)
		return nil, err
	}
	return l, nil
}

func scanLedger(row pgx.Row) (*internal.ProgressionLedger, error) {
	var l internal.ProgressionLedger
	err := row.Scan(&l.UserID, &l.Level, &l.XP, &l.DailyXP, &l.CompletedToday,
		&l.TotalCompleted, &l.Streak, &l.LastActivity, &l.LastDailyReset)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// UpdateLedger serializes concurrent mutations per user with a row lock,
// closing the read-then-write race on XP accounting.
func (p *PostgresStorage) UpdateLedger(ctx context.Context, userID string, fn func(*internal.ProgressionLedger) error) (*internal.ProgressionLedger, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE user_id = $1 FOR UPDATE`, userID)
	l, err := scanLedger(row)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			p.logger.Errorf("failed to lock ledger: %v", err)
			return nil, err
		}
		l = defaultLedger(userID)
	}

	if err := fn(l); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledgers (`+ledgerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			level = EXCLUDED.level,
			xp = EXCLUDED.xp,
			daily_xp = EXCLUDED.daily_xp,
			completed_today = EXCLUDED.completed_today,
			total_completed = EXCLUDED.total_completed,
			streak = EXCLUDED.streak,
			last_activity = EXCLUDED.last_activity,
			last_daily_reset = EXCLUDED.last_daily_reset`,
		l.UserID, l.Level, l.XP, l.DailyXP, l.CompletedToday, l.TotalCompleted, l.Streak, l.LastActivity, l.LastDailyReset)
	if err != nil {
		p.logger.Errorf("failed to write ledger: %v", err)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// --- RotationRepository ---

func (p *PostgresStorage) GetRotationState(ctx context.Context, userID string) (*internal.RotationState, error) {
	row := p.pool.QueryRow(ctx, `SELECT user_id, used_hashes, rotation_index, updated_at FROM rotation_states WHERE user_id = $1`, userID)
	var r internal.RotationState
	if err := row.Scan(&r.UserID, &r.UsedSuggestionHashes, &r.RotationIndex, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("storage: rotation state for user %s: %w", userID, internal.ErrNotFound)
		}
		p.logger.Errorf("failed to query rotation state: %v", err)
		return nil, err
	}
	return &r, nil
}

func (p *PostgresStorage) SaveRotationState(ctx context.Context, state *internal.RotationState) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO rotation_states (user_id, used_hashes, rotation_index, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			used_hashes = EXCLUDED.used_hashes,
			rotation_index = EXCLUDED.rotation_index,
			updated_at = EXCLUDED.updated_at`,
		state.UserID, state.UsedSuggestionHashes, state.RotationIndex, state.UpdatedAt)
	if err != nil {
		p.logger.Errorf("failed to save rotation state: %v", err)
		return err
	}
	return nil
}

// --- Compile-time assertions ---
var _ PlanRepository = (*PostgresStorage)(nil)
var _ TaskRepository = (*PostgresStorage)(nil)
var _ LedgerRepository = (*PostgresStorage)(nil)
var _ RotationRepository = (*PostgresStorage)(nil)
