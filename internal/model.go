package internal

import "time"

type User struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	Name  string `json:"name"`
}

// DailyTaskTemplate is the per-EasyGoal template the materializer cycles
// through when filling the daily window.
type DailyTaskTemplate struct {
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"`
	Priority         string `json:"priority,omitempty"` // low, medium, high
}

type ExtremeGoal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	XPValue     int        `json:"xp_value,omitempty"`
}

type HardGoal struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Category      string     `json:"category,omitempty"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	ExtremeGoalID string     `json:"extreme_goal_id,omitempty"`
	XPValue       int        `json:"xp_value,omitempty"`
}

type MediumGoal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	HardGoalID  string     `json:"hard_goal_id,omitempty"`
	XPValue     int        `json:"xp_value,omitempty"`
}

type EasyGoal struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Deadline     *time.Time          `json:"deadline,omitempty"`
	MediumGoalID string              `json:"medium_goal_id,omitempty"`
	DailyTasks   []DailyTaskTemplate `json:"daily_tasks,omitempty"`
	Progress     float64             `json:"progress"` // 0-100%
	XPValue      int                 `json:"xp_value,omitempty"`
}

// PlanSnapshot captures the goal collections before an adjustment merge.
type PlanSnapshot struct {
	ExtremeGoals []ExtremeGoal `json:"extreme_goals,omitempty"`
	HardGoals    []HardGoal    `json:"hard_goals,omitempty"`
	MediumGoals  []MediumGoal  `json:"medium_goals,omitempty"`
	EasyGoals    []EasyGoal    `json:"easy_goals,omitempty"`
}

type FeedbackEntry struct {
	Feedback    string       `json:"feedback"`
	UserContext string       `json:"user_context,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Snapshot    PlanSnapshot `json:"snapshot"`
}

// GoalPlan is the single active hierarchy a user owns. At most one plan
// per user has IsActive set.
type GoalPlan struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Vision          string          `json:"vision"`
	ExtremeGoals    []ExtremeGoal   `json:"extreme_goals,omitempty"`
	HardGoals       []HardGoal      `json:"hard_goals,omitempty"`
	MediumGoals     []MediumGoal    `json:"medium_goals,omitempty"`
	EasyGoals       []EasyGoal      `json:"easy_goals,omitempty"`
	Progress        float64         `json:"progress"` // 0-100%
	IsActive        bool            `json:"is_active"`
	Confirmed       bool            `json:"confirmed"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	FeedbackHistory []FeedbackEntry `json:"feedback_history,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type TaskType string

const (
	TaskGoalExtreme  TaskType = "goal_extreme"
	TaskGoalHard     TaskType = "goal_hard"
	TaskGoalMedium   TaskType = "goal_medium"
	TaskGoalEasy     TaskType = "goal_easy"
	TaskGoalDaily    TaskType = "goal_daily"
	TaskHealth       TaskType = "health"
	TaskCustom       TaskType = "custom"
	TaskAISuggestion TaskType = "ai_suggestion"
)

// HierarchyTaskTypes are the task types owned by the materializer. A full
// rebuild replaces exactly these.
func HierarchyTaskTypes() []TaskType {
	return []TaskType{TaskGoalExtreme, TaskGoalHard, TaskGoalMedium, TaskGoalEasy, TaskGoalDaily}
}

// GoalRef is the typed provenance carried by hierarchy-derived tasks.
// For goal_daily tasks GoalID is the owning EasyGoal id. Suggestion
// tasks reuse the priority and estimate fields with an empty GoalID.
type GoalRef struct {
	GoalID           string     `json:"goal_id"`
	ParentID         string     `json:"parent_id,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Priority         string     `json:"priority,omitempty"`
	EstimatedMinutes int        `json:"estimated_minutes,omitempty"`
}

type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Text        string     `json:"text"`
	Description string     `json:"description,omitempty"`
	XP          int        `json:"xp"`
	Type        TaskType   `json:"type"`
	Date        time.Time  `json:"date"` // calendar day the task belongs to
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Goal        *GoalRef   `json:"goal,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProgressionLedger holds per-user leveling state. Invariant after every
// successful mutation: 0 <= XP < requiredXP(Level).
type ProgressionLedger struct {
	UserID         string    `json:"user_id"`
	Level          int       `json:"level"`
	XP             int       `json:"xp"`
	DailyXP        int       `json:"daily_xp"`
	CompletedToday int       `json:"completed_today"`
	TotalCompleted int       `json:"total_completed"`
	Streak         int       `json:"streak"`
	LastActivity   time.Time `json:"last_activity"`
	LastDailyReset time.Time `json:"last_daily_reset"`
}

// RotationState persists suggestion rotation per user so rotation
// survives restarts and multiple service instances.
type RotationState struct {
	UserID               string    `json:"user_id"`
	UsedSuggestionHashes []string  `json:"used_suggestion_hashes,omitempty"`
	RotationIndex        int       `json:"rotation_index"`
	UpdatedAt            time.Time `json:"updated_at"`
}
