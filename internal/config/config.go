/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

// StoreConfig selects the document store backend.
// Driver is one of "sqlite", "postgres" or "memory".
type StoreConfig struct {
	Driver    string `yaml:"driver"`
	Path      string `yaml:"path"` // sqlite database file
	DSN       string `yaml:"dsn"`  // postgres connection string, without password
	TimeoutMs int    `yaml:"timeout_ms"`
	// The postgres password is not stored on disk; it lives in the OS keychain.
}

// EditorConfig tunes the editing session.
type EditorConfig struct {
	HistoryDepth    int `yaml:"history_depth"`
	CoalesceMs      int `yaml:"coalesce_ms"`
	IndexDebounceMs int `yaml:"index_debounce_ms"`
}

// PaginationConfig overrides the page geometry used for page breaks.
type PaginationConfig struct {
	LinesPerPage int `yaml:"lines_per_page"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int              `yaml:"config_version"`
	Store         StoreConfig      `yaml:"store"`
	Editor        EditorConfig     `yaml:"editor"`
	Pagination    PaginationConfig `yaml:"pagination"`
	Logging       LoggingConfig    `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Store:         StoreConfig{Driver: "sqlite", Path: defaultStorePath(), TimeoutMs: 5000},
		Editor:        EditorConfig{HistoryDepth: 100, CoalesceMs: 1000, IndexDebounceMs: 1500},
		Pagination:    PaginationConfig{LinesPerPage: 55},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvStoreDriver     = "GSW_STORE_DRIVER"
	EnvStorePath       = "GSW_STORE_PATH"
	EnvStoreDSN        = "GSW_PG_DSN"
	EnvStoreTimeoutMs  = "GSW_STORE_TIMEOUT_MS"
	EnvHistoryDepth    = "GSW_HISTORY_DEPTH"
	EnvIndexDebounceMs = "GSW_INDEX_DEBOUNCE_MS"
	EnvLinesPerPage    = "GSW_LINES_PER_PAGE"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GSW_LOG_LEVEL"
	EnvLogFormat = "GSW_LOG_FORMAT"
	EnvLogSource = "GSW_LOG_SOURCE"
	EnvLogFile   = "GSW_LOG_FILE"
)

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoScreenwriter")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoScreenwriter")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "goscreenwriter")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "goscreenwriter")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func defaultStorePath() string {
	dir, err := ConfigDir()
	if err != nil {
		return "screenplays.sqlite"
	}
	return filepath.Join(dir, "screenplays.sqlite")
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// The postgres password is loaded from the keyring and returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if err := loadFile(path, &cfg); err != nil {
		return cfg, "", err
	}
	applyEnvOverrides(&cfg)
	secret, _ := tokenStore.Get(keyringService, keyringPassword)
	return cfg, secret, nil
}

func loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var fileCfg AppConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return err
	}
	mergeInto(cfg, &fileCfg)
	return nil
}

// Save writes the user config YAML and persists the postgres password into the OS keyring (if non-empty).
func Save(cfg AppConfig, secret string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if secret != "" {
		if err := tokenStore.Set(keyringService, keyringPassword, secret); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if s := strings.ToLower(strings.TrimSpace(src.Store.Driver)); s != "" {
		dst.Store.Driver = s
	}
	if s := strings.TrimSpace(src.Store.Path); s != "" {
		dst.Store.Path = s
	}
	if s := strings.TrimSpace(src.Store.DSN); s != "" {
		dst.Store.DSN = s
	}
	if src.Store.TimeoutMs > 0 {
		dst.Store.TimeoutMs = src.Store.TimeoutMs
	}
	if src.Editor.HistoryDepth > 0 {
		dst.Editor.HistoryDepth = src.Editor.HistoryDepth
	}
	// a negative value disables coalescing
	if src.Editor.CoalesceMs != 0 {
		dst.Editor.CoalesceMs = src.Editor.CoalesceMs
	}
	if src.Editor.IndexDebounceMs > 0 {
		dst.Editor.IndexDebounceMs = src.Editor.IndexDebounceMs
	}
	if src.Pagination.LinesPerPage > 0 {
		dst.Pagination.LinesPerPage = src.Pagination.LinesPerPage
	}
	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvStoreDriver)); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorePath)); v != "" {
		cfg.Store.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreDSN)); v != "" {
		cfg.Store.DSN = v
	}
	if n, ok := envInt(EnvStoreTimeoutMs); ok {
		cfg.Store.TimeoutMs = n
	}
	if n, ok := envInt(EnvHistoryDepth); ok && n > 0 {
		cfg.Editor.HistoryDepth = n
	}
	if n, ok := envInt(EnvIndexDebounceMs); ok && n >= 0 {
		cfg.Editor.IndexDebounceMs = n
	}
	if n, ok := envInt(EnvLinesPerPage); ok && n > 0 {
		cfg.Pagination.LinesPerPage = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Timeout returns the store operation timeout, falling back to the default.
func (s StoreConfig) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return time.Duration(Defaults().Store.TimeoutMs) * time.Millisecond
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// CoalesceWindow is the typing-burst window used by the history.
func (e EditorConfig) CoalesceWindow() time.Duration {
	if e.CoalesceMs <= 0 {
		return 0
	}
	return time.Duration(e.CoalesceMs) * time.Millisecond
}

// IndexDebounce is the quiet period before derived indexes are written.
func (e EditorConfig) IndexDebounce() time.Duration {
	return time.Duration(e.IndexDebounceMs) * time.Millisecond
}
