// Shopsight - E-Commerce Behavioral Analytics and Model Retraining
// Copyright 2026 Shopsight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shopsight/shopsight

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/shopsight/config.yaml",
	"/etc/shopsight/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return ""
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - RETRAIN_MIN_NEW_SAMPLES -> retrain.min_new_samples
//   - DATABASE_PATH           -> database.path
//   - LOG_LEVEL               -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	// Legacy and shorthand names
	envMappings := map[string]string{
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		"listen_addr":   "server.listen_addr",
		"database_path": "database.path",
		"model_dir":     "artifacts.dir",
		"history_path":  "history.path",
		"history_limit": "history.limit",
	}
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Section-prefixed names: SECTION_FIELD_NAME -> section.field_name
	for _, section := range []string{"server", "database", "retrain", "artifacts", "history", "logging"} {
		prefix := section + "_"
		if strings.HasPrefix(key, prefix) {
			return section + "." + strings.TrimPrefix(key, prefix)
		}
	}

	// Unknown variables are ignored by returning an empty path
	return ""
}
