// config.go - Configuration management for the derivation daemon
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the daemon configuration
type Config struct {
	// Identity of the factory deployer (0x-prefixed hex)
	DeployerAddress string `json:"deployer_address"`

	// Proof gating
	RequireProof bool `json:"require_proof"`

	// Proving artifacts
	KeyDir string `json:"key_dir"`

	// Budgets
	ProveTimeoutSeconds int `json:"prove_timeout_seconds"`
	RentalWindowHours   int `json:"rental_window_hours"`

	// Input batch of recognized plates
	PlatesPath string `json:"plates_path"`

	// Logging
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DeployerAddress:     "0x00000000000000000000000000000000000000d1",
		RequireProof:        true,
		KeyDir:              "keys",
		ProveTimeoutSeconds: 5,
		RentalWindowHours:   12,
		PlatesPath:          "plates.json",
		LogLevel:            "info",
	}
}

// LoadConfig loads configuration from file or creates default
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		var config Config
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		return &config, nil
	}

	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DeployerAddress == "" {
		return fmt.Errorf("deployer_address must be set")
	}
	if c.KeyDir == "" {
		return fmt.Errorf("key_dir must be set")
	}
	if c.ProveTimeoutSeconds <= 0 {
		return fmt.Errorf("prove_timeout_seconds must be positive")
	}
	if c.RentalWindowHours <= 0 {
		return fmt.Errorf("rental_window_hours must be positive")
	}
	return nil
}
