package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
)

type Config struct {
	Name            string
	Addr            string
	DBPath          string
	Debug           bool
	ShutdownTimeout time.Duration
}

// Load reads MINES_NAME, MINES_ADDR, DB_PATH, MINES_DEBUG and
// MINES_SHUTDOWN_TIMEOUT. An empty DB_PATH keeps games in memory only.
func Load() (*Config, error) {
	cfg := &Config{
		Name:            getenv("MINES_NAME", "Minesweeper"),
		Addr:            getenv("MINES_ADDR", DefaultAddr),
		DBPath:          os.Getenv("DB_PATH"),
		ShutdownTimeout: DefaultShutdownTimeout,
	}
	if v := os.Getenv("MINES_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("MINES_DEBUG: %w", err)
		}
		cfg.Debug = debug
	}
	if v := os.Getenv("MINES_SHUTDOWN_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("MINES_SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = timeout
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
