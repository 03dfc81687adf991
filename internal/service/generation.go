package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yourname/taskquest/internal"
)

// GenerationRequest is the contract sent to the plan-generation
// collaborator.
type GenerationRequest struct {
	Vision       string   `json:"vision" validate:"required"`
	Goals        []string `json:"goals,omitempty"`
	Challenges   []string `json:"challenges,omitempty"`
	Tools        []string `json:"tools,omitempty"`
	HoursPerWeek int      `json:"hoursPerWeek,omitempty"`
}

// GeneratedContent is a generation or adjustment response mapped onto
// domain types. On adjustment a nil collection means "unchanged".
type GeneratedContent struct {
	ExtremeGoals []internal.ExtremeGoal
	HardGoals    []internal.HardGoal
	MediumGoals  []internal.MediumGoal
	EasyGoals    []internal.EasyGoal
}

type Generator interface {
	GeneratePlan(ctx context.Context, req *GenerationRequest) (*GeneratedContent, error)
	AdjustPlan(ctx context.Context, plan *internal.GoalPlan, feedback, userContext string) (*GeneratedContent, error)
}

// Wire shapes of the collaborator responses.
type wireDailyTask struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	EstimatedMinutes int    `json:"estimatedMinutes"`
	Priority         string `json:"priority"`
}

type wireGoal struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Deadline      *time.Time      `json:"deadline"`
	XPValue       int             `json:"xpValue"`
	ExtremeGoalID string          `json:"extremeGoalId"`
	HardGoalID    string          `json:"hardGoalId"`
	MediumGoalID  string          `json:"mediumGoalId"`
	DailyTasks    []wireDailyTask `json:"dailyTasks"`
}

type wireContent struct {
	ExtremeGoals []wireGoal `json:"extremeGoals"`
	HardGoals    []wireGoal `json:"hardGoals"`
	MediumGoals  []wireGoal `json:"mediumGoals"`
	EasyGoals    []wireGoal `json:"easyGoals"`
}

// toContent maps the wire shapes onto domain types. A present-but-empty
// array stays an empty non-nil slice: only an omitted collection decodes
// to nil, which the adjustment path reads as "unchanged".
func (w *wireContent) toContent() *GeneratedContent {
	c := &GeneratedContent{}
	if w.ExtremeGoals != nil {
		c.ExtremeGoals = make([]internal.ExtremeGoal, 0, len(w.ExtremeGoals))
	}
	if w.HardGoals != nil {
		c.HardGoals = make([]internal.HardGoal, 0, len(w.HardGoals))
	}
	if w.MediumGoals != nil {
		c.MediumGoals = make([]internal.MediumGoal, 0, len(w.MediumGoals))
	}
	if w.EasyGoals != nil {
		c.EasyGoals = make([]internal.EasyGoal, 0, len(w.EasyGoals))
	}
	for _, g := range w.ExtremeGoals {
		c.ExtremeGoals = append(c.ExtremeGoals, internal.ExtremeGoal{
			ID: g.ID, Title: g.Title, Description: g.Description,
			Category: g.Category, Deadline: g.Deadline, XPValue: g.XPValue,
		})
	}
	for _, g := range w.HardGoals {
		c.HardGoals = append(c.HardGoals, internal.HardGoal{
			ID: g.ID, Title: g.Title, Description: g.Description, Category: g.Category,
			Deadline: g.Deadline, ExtremeGoalID: g.ExtremeGoalID, XPValue: g.XPValue,
		})
	}
	for _, g := range w.MediumGoals {
		c.MediumGoals = append(c.MediumGoals, internal.MediumGoal{
			ID: g.ID, Title: g.Title, Description: g.Description,
			Deadline: g.Deadline, HardGoalID: g.HardGoalID, XPValue: g.XPValue,
		})
	}
	for _, g := range w.EasyGoals {
		easy := internal.EasyGoal{
			ID: g.ID, Title: g.Title, Description: g.Description,
			Deadline: g.Deadline, MediumGoalID: g.MediumGoalID, XPValue: g.XPValue,
		}
		for _, dt := range g.DailyTasks {
			easy.DailyTasks = append(easy.DailyTasks, internal.DailyTaskTemplate{
				Title:            dt.Title,
				Description:      dt.Description,
				EstimatedMinutes: dt.EstimatedMinutes,
				Priority:         dt.Priority,
			})
		}
		c.EasyGoals = append(c.EasyGoals, easy)
	}
	return c
}

type HTTPGenerator struct {
	baseURL    string
	httpClient *http.Client
	logger     internal.Logger
}

func NewHTTPGenerator(baseURL string, timeout time.Duration, logger internal.Logger) *HTTPGenerator {
	return &HTTPGenerator{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (g *HTTPGenerator) GeneratePlan(ctx context.Context, req *GenerationRequest) (*GeneratedContent, error) {
	return g.post(ctx, g.baseURL+"/v1/plans/generate", req)
}

func (g *HTTPGenerator) AdjustPlan(ctx context.Context, plan *internal.GoalPlan, feedback, userContext string) (*GeneratedContent, error) {
	body := map[string]interface{}{
		"vision":       plan.Vision,
		"extremeGoals": plan.ExtremeGoals,
		"hardGoals":    plan.HardGoals,
		"mediumGoals":  plan.MediumGoals,
		"easyGoals":    plan.EasyGoals,
		"feedback":     feedback,
		"userContext":  userContext,
	}
	return g.post(ctx, g.baseURL+"/v1/plans/adjust", body)
}

func (g *HTTPGenerator) post(ctx context.Context, url string, payload interface{}) (*GeneratedContent, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		g.logger.Errorf("generator: failed to create request: %v", err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Errorf("generator: request failed: %v", err)
		return nil, fmt.Errorf("generator request failed: %w", internal.ErrExternalUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		g.logger.Errorf("generator: returned status %d", resp.StatusCode)
		return nil, fmt.Errorf("generator returned status %d: %w", resp.StatusCode, internal.ErrExternalUnavailable)
	}

	var wire wireContent
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		g.logger.Errorf("generator: failed to decode response: %v", err)
		return nil, fmt.Errorf("generator response not parseable: %w", internal.ErrValidationFailed)
	}
	return wire.toContent(), nil
}

var _ Generator = (*HTTPGenerator)(nil)

// ValidateGenerated checks a first-generation response: the hard, medium
// and easy collections must all be present, and easy goals must be
// non-empty because the daily window depends on them.
func ValidateGenerated(c *GeneratedContent) error {
	if c == nil {
		return fmt.Errorf("empty generation response: %w", internal.ErrValidationFailed)
	}
	if c.HardGoals == nil {
		return fmt.Errorf("generation response missing hardGoals: %w", internal.ErrValidationFailed)
	}
	if c.MediumGoals == nil {
		return fmt.Errorf("generation response missing mediumGoals: %w", internal.ErrValidationFailed)
	}
	if len(c.EasyGoals) == 0 {
		return fmt.Errorf("generation response has no easyGoals: %w", internal.ErrValidationFailed)
	}
	return nil
}

// ValidateAdjustment checks a revision: omitted collections mean
// "unchanged" and are tolerated, but an explicitly empty easy-goal set
// would orphan every daily task and is rejected.
func ValidateAdjustment(c *GeneratedContent) error {
	if c == nil {
		return fmt.Errorf("empty adjustment response: %w", internal.ErrValidationFailed)
	}
	if c.ExtremeGoals == nil && c.HardGoals == nil && c.MediumGoals == nil && c.EasyGoals == nil {
		return fmt.Errorf("adjustment response changed nothing: %w", internal.ErrValidationFailed)
	}
	if c.EasyGoals != nil && len(c.EasyGoals) == 0 {
		return fmt.Errorf("adjustment response has empty easyGoals: %w", internal.ErrValidationFailed)
	}
	return nil
}

// FallbackContent synthesizes a small deterministic plan used when the
// generation collaborator is unavailable or returns a malformed response.
func FallbackContent(vision string) *GeneratedContent {
	deadline := func(months int) *time.Time {
		d := startOfDay(time.Now()).AddDate(0, months, 0)
		return &d
	}
	return &GeneratedContent{
		ExtremeGoals: []internal.ExtremeGoal{
			{ID: "fallback-extreme-1", Title: "Achieve: " + vision, Description: "Year-long outcome for your vision", Category: "general", Deadline: deadline(12)},
		},
		HardGoals: []internal.HardGoal{
			{ID: "fallback-hard-1", Title: "Build a consistent routine toward " + vision, Category: "general", Deadline: deadline(6), ExtremeGoalID: "fallback-extreme-1"},
		},
		MediumGoals: []internal.MediumGoal{
			{ID: "fallback-medium-1", Title: "Complete a first milestone for " + vision, Deadline: deadline(3), HardGoalID: "fallback-hard-1"},
		},
		EasyGoals: []internal.EasyGoal{
			{
				ID: "fallback-easy-1", Title: "Weekly progress on " + vision, Deadline: deadline(1), MediumGoalID: "fallback-medium-1",
				DailyTasks: []internal.DailyTaskTemplate{
					{Title: "Spend 25 minutes on " + vision, EstimatedMinutes: 25, Priority: "medium"},
					{Title: "Write down one insight about " + vision, EstimatedMinutes: 10, Priority: "low"},
				},
			},
		},
	}
}
