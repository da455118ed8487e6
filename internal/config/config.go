package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreSQLite   StoreKind = "sqlite"
	StoreMemory   StoreKind = "memory"
)

type StoreConfig struct {
	Kind        StoreKind
	DatabaseURL string
	SQLitePath  string
	Timeout     time.Duration
}

type APIConfig struct {
	Addr                   string
	Store                  StoreConfig
	ServiceKey             string
	BalanceFile            string
	RateLimit              float64
	RateBurst              int
	PerformanceReloadEvery time.Duration
	DiscordBotToken        string
}

type WorkerConfig struct {
	Store                   StoreConfig
	BalanceFile             string
	PerformanceSchedule     string
	DailyChallengeSchedule  string
	WeeklyChallengeSchedule string
	RunOnce                 bool
	DiscordBotToken         string
}

type CLIConfig struct {
	APIBaseURL string
	ServiceKey string
	PlayerID   string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("PIZZAWARS_API_ADDR", ":8080")
	}

	store, err := loadStoreFromEnv()
	cfg := APIConfig{
		Addr:                   addr,
		Store:                  store,
		ServiceKey:             strings.TrimSpace(os.Getenv("PIZZAWARS_SERVICE_KEY")),
		BalanceFile:            strings.TrimSpace(os.Getenv("PIZZAWARS_BALANCE_FILE")),
		RateLimit:              envFloatDefault("PIZZAWARS_RATE_LIMIT", 5),
		RateBurst:              envIntDefault("PIZZAWARS_RATE_BURST", 10),
		PerformanceReloadEvery: envDurationDefault("PIZZAWARS_PERFORMANCE_RELOAD_EVERY", 5*time.Minute),
		DiscordBotToken:        strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN")),
	}
	if err != nil {
		return cfg, err
	}
	if cfg.ServiceKey == "" {
		return cfg, fmt.Errorf("PIZZAWARS_SERVICE_KEY is required")
	}
	if cfg.RateLimit <= 0 || cfg.RateBurst <= 0 {
		return cfg, fmt.Errorf("PIZZAWARS_RATE_LIMIT and PIZZAWARS_RATE_BURST must be > 0")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	store, err := loadStoreFromEnv()
	cfg := WorkerConfig{
		Store:                   store,
		BalanceFile:             strings.TrimSpace(os.Getenv("PIZZAWARS_BALANCE_FILE")),
		PerformanceSchedule:     envDefault("PIZZAWARS_PERFORMANCE_SCHEDULE", "@daily"),
		DailyChallengeSchedule:  envDefault("PIZZAWARS_DAILY_CHALLENGE_SCHEDULE", "@daily"),
		WeeklyChallengeSchedule: envDefault("PIZZAWARS_WEEKLY_CHALLENGE_SCHEDULE", "@weekly"),
		RunOnce:                 envBoolDefault("PIZZAWARS_WORKER_RUN_ONCE", false),
		DiscordBotToken:         strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN")),
	}
	if err != nil {
		return cfg, err
	}
	if cfg.Store.Kind == StoreMemory {
		return cfg, fmt.Errorf("the worker needs a shared store, PIZZAWARS_STORE=memory is not supported")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("PW_API_BASE_URL", "http://localhost:8080"), "/"),
		ServiceKey: strings.TrimSpace(os.Getenv("PW_SERVICE_KEY")),
		PlayerID:   strings.TrimSpace(os.Getenv("PW_PLAYER_ID")),
	}
}

func loadStoreFromEnv() (StoreConfig, error) {
	cfg := StoreConfig{
		Kind:        StoreKind(strings.ToLower(envDefault("PIZZAWARS_STORE", string(StorePostgres)))),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:  envDefault("PIZZAWARS_SQLITE_PATH", "pizzawars.db"),
		Timeout:     envDurationDefault("PIZZAWARS_STORE_TIMEOUT", 5*time.Second),
	}
	switch cfg.Kind {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return cfg, fmt.Errorf("DATABASE_URL is required")
		}
	case StoreSQLite, StoreMemory:
	default:
		return cfg, fmt.Errorf("PIZZAWARS_STORE must be postgres, sqlite or memory, got %q", cfg.Kind)
	}
	if cfg.Timeout <= 0 {
		return cfg, fmt.Errorf("PIZZAWARS_STORE_TIMEOUT must be > 0")
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
