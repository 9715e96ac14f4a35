// Package config handles PharmaPet configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all configuration
type Config struct {
	// Paths
	DataDir string `json:"data_dir"`

	// Server
	Server ServerConfig `json:"server"`

	// Services
	OpenRouter OpenRouterConfig `json:"openrouter"`
	SMTP       SMTPConfig       `json:"smtp"`

	// Pipeline tuning
	Pipeline PipelineConfig `json:"pipeline"`
}

// ServerConfig for HTTP server
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// OpenRouterConfig for the reasoning service
type OpenRouterConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// SMTPConfig for direct alert delivery
type SMTPConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	FromEmail   string `json:"from_email"`
	FromName    string `json:"from_name"`
	UseStartTLS bool   `json:"use_starttls"`
}

// PipelineConfig tunes the evaluation pipeline
type PipelineConfig struct {
	ReminderInterval   time.Duration `json:"reminder_interval"`   // How often the reminder trigger runs
	StalenessThreshold time.Duration `json:"staleness_threshold"` // Age beyond which logged data counts as stale
}

// Default returns default configuration
func Default() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		DataDir: filepath.Join(home, ".pharmapet"),
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		OpenRouter: OpenRouterConfig{
			APIKey:  os.Getenv("OPENROUTER_API_KEY"),
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "anthropic/claude-3.5-sonnet",
		},
		SMTP: SMTPConfig{
			Host:        os.Getenv("SMTP_HOST"),
			Port:        587,
			Username:    os.Getenv("SMTP_USERNAME"),
			Password:    os.Getenv("SMTP_PASSWORD"),
			FromEmail:   os.Getenv("SMTP_FROM_EMAIL"),
			FromName:    "PharmaPet",
			UseStartTLS: true,
		},
		Pipeline: PipelineConfig{
			ReminderInterval:   time.Hour,
			StalenessThreshold: 48 * time.Hour,
		},
	}
}

// Load loads config from file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Env always wins for secrets
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		cfg.OpenRouter.APIKey = key
	}
	if pw := os.Getenv("SMTP_PASSWORD"); pw != "" {
		cfg.SMTP.Password = pw
	}

	if cfg.Pipeline.ReminderInterval <= 0 {
		cfg.Pipeline.ReminderInterval = time.Hour
	}
	if cfg.Pipeline.StalenessThreshold <= 0 {
		cfg.Pipeline.StalenessThreshold = 48 * time.Hour
	}

	return cfg, nil
}

// Save saves config to file
func (c *Config) Save(path string) error {
	if path == "" {
		path = filepath.Join(c.DataDir, "config.json")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	// Don't save secrets to file
	safeCfg := *c
	safeCfg.OpenRouter.APIKey = ""
	safeCfg.SMTP.Password = ""

	data, err := json.MarshalIndent(safeCfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
