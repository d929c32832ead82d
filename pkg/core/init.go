package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const WorkspaceFolderName = ".postbox"

// Config represents the postbox configuration. Values come from
// .postbox/config.json, overridden by environment variables.
type Config struct {
	CollectionsDir        string       `json:"collections_dir" mapstructure:"collections_dir"`
	EnvironmentsDir       string       `json:"environments_dir" mapstructure:"environments_dir"`
	HistoryPath           string       `json:"history_path" mapstructure:"history_path"`
	SkipDisabledVariables bool         `json:"skip_disabled_variables" mapstructure:"skip_disabled_variables"`
	Server                ServerConfig `json:"server" mapstructure:"server"`
	HTTP                  HTTPConfig   `json:"http" mapstructure:"http"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// HTTPConfig controls the execution adapter.
type HTTPConfig struct {
	TimeoutSeconds    int     `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second" mapstructure:"requests_per_second"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	return Config{
		CollectionsDir:  filepath.Join("data", "collections"),
		EnvironmentsDir: filepath.Join("data", "environments"),
		HistoryPath:     filepath.Join(WorkspaceFolderName, "history.db"),
		Server: ServerConfig{
			Host: "localhost",
			Port: 5000,
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: 30,
		},
	}
}

// Validate checks that the configuration can be used.
func (c Config) Validate() error {
	if c.CollectionsDir == "" {
		return fmt.Errorf("collections_dir must be set")
	}
	if c.EnvironmentsDir == "" {
		return fmt.Errorf("environments_dir must be set")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.HTTP.TimeoutSeconds < 0 {
		return fmt.Errorf("http timeout_seconds cannot be negative")
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("http requests_per_second cannot be negative")
	}
	return nil
}

// InitializeWorkspace creates the .postbox folder with a default config on
// first run, then makes sure the collection and environment directories in
// cfg exist.
func InitializeWorkspace(cfg Config) error {
	if _, err := os.Stat(WorkspaceFolderName); os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "Initializing .postbox folder for the first time...")

		if err := os.Mkdir(WorkspaceFolderName, 0755); err != nil {
			return fmt.Errorf("failed to create .postbox folder: %w", err)
		}

		if err := createDefaultConfig(); err != nil {
			return err
		}
	}

	if err := ensureDir(cfg.CollectionsDir); err != nil {
		return err
	}
	if err := ensureDir(cfg.EnvironmentsDir); err != nil {
		// The runner works without environments, so only warn.
		fmt.Fprintf(os.Stderr, "Warning: could not create environments dir %s: %v\n", cfg.EnvironmentsDir, err)
	}
	return nil
}

// ensureDir creates a directory if it doesn't exist
func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "Created directory %s\n", path)
	}
	return nil
}

// createDefaultConfig creates a default configuration file
func createDefaultConfig() error {
	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(WorkspaceFolderName, "config.json")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
