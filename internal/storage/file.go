package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/yourname/taskquest/internal"
)

type FileStorage struct {
	plans         map[string]*internal.GoalPlan   // id -> plan
	userPlanIndex map[string][]*internal.GoalPlan // userID -> plans (newest first)
	tasks         map[string]*internal.Task       // id -> task
	userTaskIndex map[string][]*internal.Task     // userID -> tasks (date ascending)
	ledgers       map[string]*internal.ProgressionLedger
	rotations     map[string]*internal.RotationState
	mu            sync.RWMutex

	plansFile     string
	tasksFile     string
	ledgersFile   string
	rotationsFile string

	savePlansChan     chan struct{}
	saveTasksChan     chan struct{}
	saveLedgersChan   chan struct{}
	saveRotationsChan chan struct{}
	shutdownChan      chan struct{}
	saveDelay         time.Duration
	logger            internal.Logger
}

func NewFileStorage(plansFile, tasksFile, ledgersFile, rotationsFile string, logger internal.Logger) (*FileStorage, error) {
	s := &FileStorage{
		plans:             make(map[string]*internal.GoalPlan),
		userPlanIndex:     make(map[string][]*internal.GoalPlan),
		tasks:             make(map[string]*internal.Task),
		userTaskIndex:     make(map[string][]*internal.Task),
		ledgers:           make(map[string]*internal.ProgressionLedger),
		rotations:         make(map[string]*internal.RotationState),
		plansFile:         plansFile,
		tasksFile:         tasksFile,
		ledgersFile:       ledgersFile,
		rotationsFile:     rotationsFile,
		savePlansChan:     make(chan struct{}, 1),
		saveTasksChan:     make(chan struct{}, 1),
		saveLedgersChan:   make(chan struct{}, 1),
		saveRotationsChan: make(chan struct{}, 1),
		shutdownChan:      make(chan struct{}),
		saveDelay:         500 * time.Millisecond,
		logger:            logger,
	}

	if err := s.loadPlans(); err != nil {
		logger.Errorf("storage: failed to load plans: %v", err)
		return nil, err
	}
	if err := s.loadTasks(); err != nil {
		logger.Errorf("storage: failed to load tasks: %v", err)
		return nil, err
	}
	if err := loadFileJSON(s.ledgersFile, func(ledgers []*internal.ProgressionLedger) {
		for _, l := range ledgers {
			s.ledgers[l.UserID] = l
		}
	}); err != nil {
		logger.Errorf("storage: failed to load ledgers: %v", err)
		return nil, err
	}
	if err := loadFileJSON(s.rotationsFile, func(states []*internal.RotationState) {
		for _, r := range states {
			s.rotations[r.UserID] = r
		}
	}); err != nil {
		logger.Errorf("storage: failed to load rotation states: %v", err)
		return nil, err
	}

	go s.saveWorker(s.savePlansChan, "plans", s.savePlans)
	go s.saveWorker(s.saveTasksChan, "tasks", s.saveTasks)
	go s.saveWorker(s.saveLedgersChan, "ledgers", s.saveLedgers)
	go s.saveWorker(s.saveRotationsChan, "rotation states", s.saveRotations)

	return s, nil
}

func loadFileJSON[T any](path string, apply func([]T)) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var items []T
	if err := json.NewDecoder(file).Decode(&items); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	apply(items)
	return nil
}

func (s *FileStorage) loadPlans() error {
	return loadFileJSON(s.plansFile, func(plans []*internal.GoalPlan) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, p := range plans {
			s.plans[p.ID] = p
			s.userPlanIndex[p.UserID] = append(s.userPlanIndex[p.UserID], p)
		}
		for userID := range s.userPlanIndex {
			sort.Slice(s.userPlanIndex[userID], func(i, j int) bool {
				return s.userPlanIndex[userID][i].CreatedAt.After(s.userPlanIndex[userID][j].CreatedAt)
			})
		}
	})
}

func (s *FileStorage) loadTasks() error {
	return loadFileJSON(s.tasksFile, func(tasks []*internal.Task) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, t := range tasks {
			s.tasks[t.ID] = t
			s.userTaskIndex[t.UserID] = append(s.userTaskIndex[t.UserID], t)
		}
		for userID := range s.userTaskIndex {
			sortTasksByDate(s.userTaskIndex[userID])
		}
	})
}

func sortTasksByDate(tasks []*internal.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].Date.Equal(tasks[j].Date) {
			return tasks[i].Date.Before(tasks[j].Date)
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

func (s *FileStorage) savePlans() error {
	s.mu.RLock()
	plans := make([]*internal.GoalPlan, 0, len(s.plans))
	for _, p := range s.plans {
		plans = append(plans, p)
	}
	s.mu.RUnlock()
	return atomicWriteFileJSON(s.plansFile, plans)
}

func (s *FileStorage) saveTasks() error {
	s.mu.RLock()
	tasks := make([]*internal.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.RUnlock()
	return atomicWriteFileJSON(s.tasksFile, tasks)
}

func (s *FileStorage) saveLedgers() error {
	s.mu.RLock()
	ledgers := make([]*internal.ProgressionLedger, 0, len(s.ledgers))
	for _, l := range s.ledgers {
		ledgers = append(ledgers, l)
	}
	s.mu.RUnlock()
	return atomicWriteFileJSON(s.ledgersFile, ledgers)
}

func (s *FileStorage) saveRotations() error {
	s.mu.RLock()
	states := make([]*internal.RotationState, 0, len(s.rotations))
	for _, r := range s.rotations {
		states = append(states, r)
	}
	s.mu.RUnlock()
	return atomicWriteFileJSON(s.rotationsFile, states)
}

func (s *FileStorage) saveWorker(ch chan struct{}, name string, save func() error) {
	timer := time.NewTimer(s.saveDelay)
	defer timer.Stop()

	for {
		select {
		case <-ch:
			timer.Reset(s.saveDelay)
		case <-timer.C:
			if err := save(); err != nil {
				s.logger.Errorf("storage: error saving %s: %v", name, err)
			}
		case <-s.shutdownChan:
			return
		}
	}
}

func (s *FileStorage) scheduleSave(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *FileStorage) Close() error {
	close(s.shutdownChan)

	// Save pending data synchronously on shutdown
	if err := s.savePlans(); err != nil {
		return err
	}
	if err := s.saveTasks(); err != nil {
		return err
	}
	if err := s.saveLedgers(); err != nil {
		return err
	}
	return s.saveRotations()
}

// --- PlanRepository ---

func (s *FileStorage) SavePlan(ctx context.Context, plan *internal.GoalPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[plan.ID]; !exists {
		s.userPlanIndex[plan.UserID] = append([]*internal.GoalPlan{plan}, s.userPlanIndex[plan.UserID]...)
	} else {
		for i, p := range s.userPlanIndex[plan.UserID] {
			if p.ID == plan.ID {
				s.userPlanIndex[plan.UserID][i] = plan
				break
			}
		}
	}
	s.plans[plan.ID] = plan
	s.scheduleSave(s.savePlansChan)
	return nil
}

func (s *FileStorage) GetActivePlan(ctx context.Context, userID string) (*internal.GoalPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.userPlanIndex[userID] {
		if p.IsActive {
			copied := *p
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("storage: active plan for user %s: %w", userID, internal.ErrNotFound)
}

func (s *FileStorage) DeactivatePlans(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.userPlanIndex[userID] {
		p.IsActive = false
	}
	s.scheduleSave(s.savePlansChan)
	return nil
}

// --- TaskRepository ---

func (s *FileStorage) SaveTask(ctx context.Context, task *internal.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertTaskLocked(task)
	s.scheduleSave(s.saveTasksChan)
	return nil
}

func (s *FileStorage) insertTaskLocked(task *internal.Task) {
	s.tasks[task.ID] = task
	s.userTaskIndex[task.UserID] = append(s.userTaskIndex[task.UserID], task)
	sortTasksByDate(s.userTaskIndex[task.UserID])
}

func (s *FileStorage) UpdateTask(ctx context.Context, task *internal.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return fmt.Errorf("storage: task %s: %w", task.ID, internal.ErrNotFound)
	}
	*existing = *task
	s.scheduleSave(s.saveTasksChan)
	return nil
}

func (s *FileStorage) GetTask(ctx context.Context, userID, taskID string) (*internal.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, fmt.Errorf("storage: task %s: %w", taskID, internal.ErrNotFound)
	}
	copied := *t
	return &copied, nil
}

func (s *FileStorage) ListTasks(ctx context.Context, userID string) ([]internal.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasksPtr := s.userTaskIndex[userID]
	tasks := make([]internal.Task, len(tasksPtr))
	for i, t := range tasksPtr {
		tasks[i] = *t
	}
	return tasks, nil
}

func (s *FileStorage) ListTasksByType(ctx context.Context, userID string, types []internal.TaskType) ([]internal.Task, error) {
	wanted := make(map[internal.TaskType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := []internal.Task{}
	for _, t := range s.userTaskIndex[userID] {
		if wanted[t.Type] {
			tasks = append(tasks, *t)
		}
	}
	return tasks, nil
}

func (s *FileStorage) ReplaceTasks(ctx context.Context, userID string, types []internal.TaskType, tasks []*internal.Task) error {
	replaced := make(map[internal.TaskType]bool, len(types))
	for _, t := range types {
		replaced[t] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.userTaskIndex[userID][:0]
	for _, t := range s.userTaskIndex[userID] {
		if replaced[t.Type] {
			delete(s.tasks, t.ID)
		} else {
			kept = append(kept, t)
		}
	}
	s.userTaskIndex[userID] = kept
	for _, t := range tasks {
		s.insertTaskLocked(t)
	}
	s.scheduleSave(s.saveTasksChan)
	return nil
}

func (s *FileStorage) DeleteTask(ctx context.Context, userID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok || t.UserID != userID {
		return fmt.Errorf("storage: task %s: %w", taskID, internal.ErrNotFound)
	}
	delete(s.tasks, taskID)
	s.removeFromIndexLocked(userID, func(task *internal.Task) bool { return task.ID == taskID })
	s.scheduleSave(s.saveTasksChan)
	return nil
}

func (s *FileStorage) DeleteTasksByGoalIDs(ctx context.Context, userID string, goalIDs []string) (int, error) {
	removed := make(map[string]bool, len(goalIDs))
	for _, id := range goalIDs {
		removed[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	s.removeFromIndexLocked(userID, func(task *internal.Task) bool {
		if task.Goal != nil && removed[task.Goal.GoalID] {
			delete(s.tasks, task.ID)
			count++
			return true
		}
		return false
	})
	if count > 0 {
		s.scheduleSave(s.saveTasksChan)
	}
	return count, nil
}

func (s *FileStorage) removeFromIndexLocked(userID string, match func(*internal.Task) bool) {
	kept := s.userTaskIndex[userID][:0]
	for _, t := range s.userTaskIndex[userID] {
		if !match(t) {
			kept = append(kept, t)
		}
	}
	s.userTaskIndex[userID] = kept
}

// --- LedgerRepository ---

func (s *FileStorage) GetLedger(ctx context.Context, userID string) (*internal.ProgressionLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[userID]
	if !ok {
		return defaultLedger(userID), nil
	}
	copied := *l
	return &copied, nil
}

func (s *FileStorage) UpdateLedger(ctx context.Context, userID string, fn func(*internal.ProgressionLedger) error) (*internal.ProgressionLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.ledgers[userID]
	if !ok {
		l = defaultLedger(userID)
	}
	working := *l
	if err := fn(&working); err != nil {
		return nil, err
	}
	s.ledgers[userID] = &working
	s.scheduleSave(s.saveLedgersChan)
	copied := working
	return &copied, nil
}

func defaultLedger(userID string) *internal.ProgressionLedger {
	return &internal.ProgressionLedger{UserID: userID, Level: 1}
}

// --- RotationRepository ---

func (s *FileStorage) GetRotationState(ctx context.Context, userID string) (*internal.RotationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rotations[userID]
	if !ok {
		return nil, fmt.Errorf("storage: rotation state for user %s: %w", userID, internal.ErrNotFound)
	}
	copied := *r
	copied.UsedSuggestionHashes = append([]string(nil), r.UsedSuggestionHashes...)
	return &copied, nil
}

func (s *FileStorage) SaveRotationState(ctx context.Context, state *internal.RotationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotations[state.UserID] = state
	s.scheduleSave(s.saveRotationsChan)
	return nil
}

// --- Compile-time assertions ---
var _ PlanRepository = (*FileStorage)(nil)
var _ TaskRepository = (*FileStorage)(nil)
var _ LedgerRepository = (*FileStorage)(nil)
var _ RotationRepository = (*FileStorage)(nil)
