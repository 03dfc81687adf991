package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/api"
	"github.com/yourname/taskquest/internal/auth"
	"github.com/yourname/taskquest/internal/config"
	"github.com/yourname/taskquest/internal/service"
	"github.com/yourname/taskquest/internal/storage"
)

func main() {
	cfg := config.Load()

	logger, err := internal.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	var repos *storage.Repositories
	switch cfg.DBType {
	case "postgres":
		repos, err = storage.NewPostgresRepositories(cfg.DBDSN, logger)
	default:
		if dir := filepath.Dir(cfg.FilePlans); dir != "." {
			if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
				log.Fatalf("failed to create data dir: %v", mkErr)
			}
		}
		repos, err = storage.NewFileRepositories(cfg, logger)
	}
	if err != nil {
		logger.Fatalf("failed to init storage: %v", err)
	}

	generator := service.NewHTTPGenerator(cfg.GeneratorURL, cfg.GeneratorTimeout, logger)
	app := api.NewApp(logger, cfg, repos, generator)

	var provider auth.Provider
	if cfg.Env == "development" {
		provider = auth.NewLocalAuthProvider(cfg.AuthToken, logger)
	} else {
		provider = auth.NewRemoteAuthProvider(cfg.AuthServiceURL, logger)
	}

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(api.RequestIDMiddleware())
	r.Use(auth.AuthMiddleware(provider, cfg))

	r.POST("/api/plans", api.PostPlan(app))
	r.GET("/api/plans/active", api.GetActivePlan(app))
	r.POST("/api/plans/confirm", api.PostPlanConfirm(app))
	r.POST("/api/plans/adjust", api.PostPlanAdjust(app))
	r.GET("/api/plans/progress", api.GetPlanProgress(app))

	r.POST("/api/tasks", api.PostTask(app))
	r.GET("/api/tasks", api.GetTasks(app))
	r.GET("/api/tasks/today", api.GetTodayTasks(app))
	r.GET("/api/tasks/suggestion", api.GetTaskSuggestion(app))
	r.POST("/api/tasks/:id/complete", api.PostTaskComplete(app))
	r.DELETE("/api/tasks/:id", api.DeleteTask(app))

	r.GET("/api/progression", api.GetProgression(app))
	r.POST("/api/progression/repair", api.PostProgressionRepair(app))

	// Hit by the external scheduler on a fixed cadence.
	r.POST("/internal/rollover", api.PostRollover(app))

	logger.Infof("server running on %s (storage=%s)", cfg.Addr, cfg.DBType)
	if err := r.Run(cfg.Addr); err != nil {
		logger.Fatalf("failed to start server: %v", err)
	}
}
