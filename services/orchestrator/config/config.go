// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

// Package config loads process-wide configuration once at startup. The
// result is an explicit value passed into the core; nothing in the core
// reads the environment after this.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileSize bounds the optional YAML overlay file.
const MaxConfigFileSize = 1024 * 1024

// Defaults mirrored from the original deployment.
const (
	DefaultBaseURL       = "https://api.deepseek.com"
	DefaultModel         = "deepseek-chat"
	DefaultSystemPrompt  = "你是一个友善的AI助手，名叫杏铃酱。"
	DefaultDataDir       = "memory_sessions"
	DefaultPort          = "8000"
	DefaultAllowedOrigin = "http://localhost:3000"
)

// Config is the process-wide configuration for the chat backend.
type Config struct {
	// Completion service defaults; each is overridable per request.
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`

	// DataDir is the session-data directory, fixed at process start.
	DataDir string `yaml:"data_dir"`

	Port          string `yaml:"port"`
	AllowedOrigin string `yaml:"allowed_origin"`
}

// Load builds the configuration: compiled defaults, then the YAML file
// named by XINGLING_CONFIG_FILE (when set), then environment variables.
// Later sources win.
func Load() (Config, error) {
	cfg := Config{
		BaseURL:       DefaultBaseURL,
		Model:         DefaultModel,
		SystemPrompt:  DefaultSystemPrompt,
		DataDir:       DefaultDataDir,
		Port:          DefaultPort,
		AllowedOrigin: DefaultAllowedOrigin,
	}

	if path := os.Getenv("XINGLING_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg.APIKey, "DEEPSEEK_API_KEY")
	applyEnv(&cfg.BaseURL, "DEEPSEEK_BASE_URL")
	applyEnv(&cfg.Model, "DEEPSEEK_MODEL")
	applyEnv(&cfg.SystemPrompt, "XINGLING_SYSTEM_PROMPT")
	applyEnv(&cfg.DataDir, "XINGLING_DATA_DIR")
	applyEnv(&cfg.Port, "XINGLING_PORT")
	applyEnv(&cfg.AllowedOrigin, "XINGLING_ALLOWED_ORIGIN")

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileSize {
		return fmt.Errorf("config file %s exceeds %d bytes", path, MaxConfigFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
