package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Catalog
		Broadcast
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path string
	}

	Catalog struct {
		BaseURL   string
		UserAgent string
		// RateInterval throttles outbound catalog requests.
		RateInterval time.Duration
	}

	Broadcast struct {
		// Endpoint receives created reviews/ratings. Empty disables
		// outbound broadcasting.
		Endpoint string
	}

	Tasks struct {
		Workers           int
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8177)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Catalog connector defaults
	v.SetDefault("catalog_base_url", "http://localhost:8178")
	v.SetDefault("catalog_user_agent", "openshelf/1.0 (+https://github.com/openshelf/openshelf)")
	v.SetDefault("catalog_rate_interval", "1s")

	// Broadcast defaults
	v.SetDefault("broadcast_endpoint", "")

	// Task queue defaults
	v.SetDefault("task_workers", 4)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Catalog: Catalog{
			BaseURL:      v.GetString("CATALOG_BASE_URL"),
			UserAgent:    v.GetString("CATALOG_USER_AGENT"),
			RateInterval: v.GetDuration("CATALOG_RATE_INTERVAL"),
		},
		Broadcast: Broadcast{
			Endpoint: v.GetString("BROADCAST_ENDPOINT"),
		},
		Tasks: Tasks{
			Workers:           v.GetInt("TASK_WORKERS"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
	}
}
