package storage

import (
	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/config"
)

// Repositories groups the per-concern views of one storage backend.
type Repositories struct {
	Plans     PlanRepository
	Tasks     TaskRepository
	Ledgers   LedgerRepository
	Rotations RotationRepository
}

func NewFileRepositories(cfg *config.Config, logger internal.Logger) (*Repositories, error) {
	s, err := NewFileStorage(cfg.FilePlans, cfg.FileTasks, cfg.FileLedgers, cfg.FileRotations, logger)
	if err != nil {
		return nil, err
	}
	return &Repositories{Plans: s, Tasks: s, Ledgers: s, Rotations: s}, nil
}

func NewPostgresRepositories(dsn string, logger internal.Logger) (*Repositories, error) {
	s, err := NewPostgresStorage(dsn, logger)
	if err != nil {
		return nil, err
	}
	return &Repositories{Plans: s, Tasks: s, Ledgers: s, Rotations: s}, nil
}
