package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/storage"
)

type suggestionTemplate struct {
	Title            string
	Description      string
	XP               int
	EstimatedMinutes int
	Priority         string
}

var suggestionPool = []suggestionTemplate{
	{"Take a 15 minute walk", "Step away from the screen and move", 30, 15, "medium"},
	{"Drink a glass of water", "Hydration before the next task", 10, 2, "low"},
	{"Write down tomorrow's top priority", "One sentence, tonight", 20, 5, "medium"},
	{"Tidy your workspace", "Five minutes of desk reset", 20, 5, "low"},
	{"Do a 10 minute stretch", "Neck, shoulders, back", 30, 10, "medium"},
	{"Review your week's goals", "Skim the plan, adjust nothing", 25, 10, "medium"},
	{"Message someone you're learning with", "Accountability ping", 20, 5, "low"},
	{"Read 10 pages of anything", "Fiction counts", 30, 20, "medium"},
	{"Take three deep breaths before your next task", "Reset focus", 10, 1, "low"},
	{"Note one thing that went well today", "Gratitude entry", 15, 3, "low"},
}

func suggestionHash(title string) string {
	sum := sha256.Sum256([]byte(title))
	return hex.EncodeToString(sum[:8])
}

// SuggestTask creates an ai_suggestion task for today, rotating through
// the pool via per-user persisted state so rotation survives restarts and
// works across instances. Once every suggestion has been used the used
// set resets and the rotation starts over.
func SuggestTask(ctx context.Context, taskRepo storage.TaskRepository, rotRepo storage.RotationRepository,
	userID string, now time.Time) (*internal.Task, error) {

	state, err := rotRepo.GetRotationState(ctx, userID)
	if err != nil {
		if !errors.Is(err, internal.ErrNotFound) {
			return nil, err
		}
		state = &internal.RotationState{UserID: userID}
	}

	used := make(map[string]bool, len(state.UsedSuggestionHashes))
	for _, h := range state.UsedSuggestionHashes {
		used[h] = true
	}

	n := len(suggestionPool)
	pick := -1
	for i := 0; i < n; i++ {
		idx := (state.RotationIndex + i) % n
		if !used[suggestionHash(suggestionPool[idx].Title)] {
			pick = idx
			break
		}
	}
	if pick == -1 {
		// Pool exhausted; start a fresh cycle.
		state.UsedSuggestionHashes = nil
		pick = state.RotationIndex % n
	}
	tpl := suggestionPool[pick]

	task := &internal.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Text:        tpl.Title,
		Description: tpl.Description,
		XP:          tpl.XP,
		Type:        internal.TaskAISuggestion,
		Date:        startOfDay(now),
		Goal: &internal.GoalRef{
			Priority:         tpl.Priority,
			EstimatedMinutes: tpl.EstimatedMinutes,
		},
		CreatedAt: now,
	}
	if err := taskRepo.SaveTask(ctx, task); err != nil {
		return nil, err
	}

	state.UsedSuggestionHashes = append(state.UsedSuggestionHashes, suggestionHash(tpl.Title))
	state.RotationIndex = (pick + 1) % n
	state.UpdatedAt = now
	if err := rotRepo.SaveRotationState(ctx, state); err != nil {
		return nil, err
	}
	return task, nil
}
