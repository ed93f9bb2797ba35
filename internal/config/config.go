// Package config содержит логику чтения конфигурации сервиса загрузки заказов.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса загрузки заказов.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	StateFile   string `env:"STATE_FILE"`
	UploadDir   string `env:"UPLOAD_DIR"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envStateFile := cfg.StateFile
	envUploadDir := cfg.UploadDir

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for the checkpoint store")
	flag.StringVar(&cfg.StateFile, "s", "orderload_state.json", "checkpoint file when no database is configured")
	flag.StringVar(&cfg.UploadDir, "u", "uploads", "directory for uploaded source files")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envStateFile != "" {
		cfg.StateFile = envStateFile
	}
	if envUploadDir != "" {
		cfg.UploadDir = envUploadDir
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.StateFile == "" {
		cfg.StateFile = "orderload_state.json"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}

	return cfg, nil
}
