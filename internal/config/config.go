package config

import (
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string
	Addr     string

	DBType        string
	DBDSN         string
	FilePlans     string
	FileTasks     string
	FileLedgers   string
	FileRotations string

	AuthToken      string
	AuthServiceURL string

	GeneratorURL     string
	GeneratorTimeout time.Duration

	// XP policy. Values per hierarchy level plus the leveling curve and
	// the single authoritative daily cap.
	XPExtreme   int
	XPHard      int
	XPMedium    int
	XPEasy      int
	XPDaily     int
	DailyXPCap  int
	BaseXP      int
	XPIncrement int

	DailyWindowDays   int
	PriorityTaskCount int
}

var (
	cfg  *Config
	once sync.Once
)

func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		cfg = &Config{
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
			Addr:     getEnv("SERVER_ADDR", ":8088"),

			DBType:        getEnv("STORAGE_BACKEND", "file"),
			DBDSN:         getEnv("POSTGRES_DSN", ""),
			FilePlans:     getEnv("PLANS_FILE", "data/plans.json"),
			FileTasks:     getEnv("TASKS_FILE", "data/tasks.json"),
			FileLedgers:   getEnv("LEDGERS_FILE", "data/ledgers.json"),
			FileRotations: getEnv("ROTATIONS_FILE", "data/rotations.json"),

			AuthToken:      getEnv("AUTH_TOKEN", "MOCK-TOKEN"),
			AuthServiceURL: getEnv("AUTH_SERVICE_URL", ""),

			GeneratorURL:     getEnv("GENERATOR_URL", ""),
			GeneratorTimeout: time.Duration(getEnvInt("GENERATOR_TIMEOUT_SECONDS", 30)) * time.Second,

			XPExtreme:   getEnvInt("XP_EXTREME", 2000),
			XPHard:      getEnvInt("XP_HARD", 1000),
			XPMedium:    getEnvInt("XP_MEDIUM", 300),
			XPEasy:      getEnvInt("XP_EASY", 100),
			XPDaily:     getEnvInt("XP_DAILY", 50),
			DailyXPCap:  getEnvInt("DAILY_XP_CAP", 400),
			BaseXP:      getEnvInt("BASE_XP", 1000),
			XPIncrement: getEnvInt("XP_INCREMENT", 100),

			DailyWindowDays:   getEnvInt("DAILY_WINDOW_DAYS", 7),
			PriorityTaskCount: getEnvInt("PRIORITY_TASK_COUNT", 3),
		}
		if err := cfg.Validate(); err != nil {
			panic("Invalid config: " + err.Error())
		}
	})
	return cfg
}

func (c *Config) Validate() error {
	if c.DBType == "postgres" && c.DBDSN == "" {
		return errors.New("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
	}
	if c.DBType == "file" && (c.FilePlans == "" || c.FileTasks == "" || c.FileLedgers == "" || c.FileRotations == "") {
		return errors.New("file storage requires PLANS_FILE, TASKS_FILE, LEDGERS_FILE and ROTATIONS_FILE to be set")
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	if c.Env != "development" && c.AuthServiceURL == "" {
		return errors.New("AUTH_SERVICE_URL is required outside development")
	}
	if c.DailyXPCap <= 0 || c.BaseXP <= 0 || c.XPIncrement <= 0 {
		return errors.New("DAILY_XP_CAP, BASE_XP and XP_INCREMENT must be positive")
	}
	if c.DailyWindowDays <= 0 || c.PriorityTaskCount <= 0 {
		return errors.New("DAILY_WINDOW_DAYS and PRIORITY_TASK_COUNT must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
