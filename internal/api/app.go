package api

import (
	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/config"
	"github.com/yourname/taskquest/internal/service"
	"github.com/yourname/taskquest/internal/storage"
)

type App interface {
	Logger() internal.Logger
	Config() *config.Config
	PlanRepo() storage.PlanRepository
	TaskRepo() storage.TaskRepository
	LedgerRepo() storage.LedgerRepository
	RotationRepo() storage.RotationRepository
	Generator() service.Generator
}

type app struct {
	logger internal.Logger
	cfg    *config.Config
	repos  *storage.Repositories
	gen    service.Generator
}

func NewApp(logger internal.Logger, cfg *config.Config, repos *storage.Repositories, gen service.Generator) App {
	return &app{logger: logger, cfg: cfg, repos: repos, gen: gen}
}

func (a *app) Logger() internal.Logger                  { return a.logger }
func (a *app) Config() *config.Config                   { return a.cfg }
func (a *app) PlanRepo() storage.PlanRepository         { return a.repos.Plans }
func (a *app) TaskRepo() storage.TaskRepository         { return a.repos.Tasks }
func (a *app) LedgerRepo() storage.LedgerRepository     { return a.repos.Ledgers }
func (a *app) RotationRepo() storage.RotationRepository { return a.repos.Rotations }
func (a *app) Generator() service.Generator             { return a.gen }

// xpPolicy and levelPolicy translate config into the service policies.
func xpPolicy(cfg *config.Config) service.XPPolicy {
	return service.XPPolicy{
		Extreme: cfg.XPExtreme,
		Hard:    cfg.XPHard,
		Medium:  cfg.XPMedium,
		Easy:    cfg.XPEasy,
		Daily:   cfg.XPDaily,
	}
}

func levelPolicy(cfg *config.Config) service.LevelPolicy {
	return service.LevelPolicy{
		BaseXP:     cfg.BaseXP,
		Increment:  cfg.XPIncrement,
		DailyXPCap: cfg.DailyXPCap,
	}
}
