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
	"os"
	"path/filepath"
	"testing"
	"time"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) { return m[service+"/"+key], nil }
func (m memTokens) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}
func (m memTokens) Delete(service, key string) error {
	delete(m, service+"/"+key)
	return nil
}

// isolate points the config dir at a temp dir and stubs the keyring.
func isolate(t *testing.T) memTokens {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("AppData", dir)
	for _, k := range []string{EnvStoreDriver, EnvStorePath, EnvStoreDSN, EnvStoreTimeoutMs, EnvHistoryDepth,
		EnvIndexDebounceMs, EnvLinesPerPage, EnvLogLevel, EnvLogFormat, EnvLogSource, EnvLogFile} {
		t.Setenv(k, "")
	}
	toks := memTokens{}
	old := tokenStore
	tokenStore = toks
	t.Cleanup(func() { tokenStore = old })
	return toks
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, secret, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if secret != "" {
		t.Fatalf("expected empty secret, got %q", secret)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Editor.HistoryDepth != 100 || cfg.Pagination.LinesPerPage != 55 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestSaveThenLoadRoundTripsFileAndSecret(t *testing.T) {
	toks := isolate(t)
	cfg := Defaults()
	cfg.Store.Driver = "postgres"
	cfg.Store.DSN = "postgres://writer@localhost:5432/scripts"
	cfg.Editor.IndexDebounceMs = 250
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if toks[keyringService+"/"+keyringPassword] != "s3cret" {
		t.Fatalf("secret not stored in keyring stub")
	}
	path, _ := ConfigPath()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	got, secret, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Store.Driver != "postgres" || got.Store.DSN != cfg.Store.DSN || got.Editor.IndexDebounceMs != 250 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if secret != "s3cret" {
		t.Fatalf("secret = %q", secret)
	}
}

func TestEnvOverridesStoreAndPagination(t *testing.T) {
	isolate(t)
	t.Setenv(EnvStoreDriver, "MEMORY")
	t.Setenv(EnvLinesPerPage, "50")
	t.Setenv(EnvHistoryDepth, "not-a-number")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.Driver != "memory" || cfg.Pagination.LinesPerPage != 50 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Editor.HistoryDepth != 100 {
		t.Fatalf("invalid env value should be ignored, got %d", cfg.Editor.HistoryDepth)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Logging: LoggingConfig{Level: "DEBUG", Format: "json", Source: true, File: filepath.Join("tmp", "gsw.log")}}
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != filepath.Join("tmp", "gsw.log") {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
	if dst.Editor.CoalesceMs != 1000 {
		t.Fatalf("absent coalesce_ms should keep default, got %d", dst.Editor.CoalesceMs)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/gsw.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/gsw.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestDurations(t *testing.T) {
	e := EditorConfig{CoalesceMs: -1, IndexDebounceMs: 20}
	if e.CoalesceWindow() != 0 {
		t.Fatalf("negative coalesce should disable, got %v", e.CoalesceWindow())
	}
	if e.IndexDebounce() != 20*time.Millisecond {
		t.Fatalf("IndexDebounce = %v", e.IndexDebounce())
	}
	if (StoreConfig{}).Timeout() != 5*time.Second {
		t.Fatalf("default timeout mismatch")
	}
}
