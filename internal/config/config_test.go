/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("/nonexistent/.qjira.yaml")
	if err != nil { t.Fatalf("load: %v", err) }

	if cfg.PageSize != 50 { t.Fatalf("page_size = %d", cfg.PageSize) }
	if cfg.HTTPTimeout != 15*time.Second { t.Fatalf("http_timeout = %v", cfg.HTTPTimeout) }
	if cfg.EffortField != "story_points" { t.Fatalf("effort_field = %q", cfg.EffortField) }
	if cfg.HTTPAddr != ":8080" { t.Fatalf("http_addr = %q", cfg.HTTPAddr) }
	if len(cfg.CycleRules) != 3 { t.Fatalf("cycletime_rules = %#v", cfg.CycleRules) }
	if cfg.Report("velocity").Query != "issuetype = Story" {
		t.Fatalf("velocity query = %q", cfg.Report("velocity").Query)
	}
	if cfg.Headers["issue_key"].Label != "Issue" {
		t.Fatalf("issue_key label = %q", cfg.Headers["issue_key"].Label)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".qjira.yaml")
	data := "base_url: https://jira.example.com\npage_size: 10\nfields:\n  story_points: customfield_99999\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil { t.Fatalf("write: %v", err) }

	cfg, err := Load(path)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.BaseURL != "https://jira.example.com" { t.Fatalf("base_url = %q", cfg.BaseURL) }
	if cfg.PageSize != 10 { t.Fatalf("page_size = %d", cfg.PageSize) }
	if cfg.FieldID("story_points") != "customfield_99999" {
		t.Fatalf("story_points = %q", cfg.FieldID("story_points"))
	}
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".qjira.yaml")
	if err := os.WriteFile(path, []byte("page_size: [1, 2"), 0o600); err != nil { t.Fatalf("write: %v", err) }
	if _, err := Load(path); err == nil { t.Fatal("expected parse error") }
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JIRA_BASE_URL", "https://env.example.com")
	t.Setenv("JIRA_USERNAME", "envuser")

	cfg, err := Load("/nonexistent/.qjira.yaml")
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.BaseURL != "https://env.example.com" { t.Fatalf("base_url = %q", cfg.BaseURL) }
	if cfg.Username != "envuser" { t.Fatalf("username = %q", cfg.Username) }
}

func TestValidate_RequiresBaseURL(t *testing.T) {
	cfg, err := Load("/nonexistent/.qjira.yaml")
	if err != nil { t.Fatalf("load: %v", err) }
	if err := cfg.Validate(); err == nil { t.Fatal("expected error without base URL") }

	cfg.BaseURL = "https://jira.example.com"
	if err := cfg.Validate(); err != nil { t.Fatalf("validate: %v", err) }
}

func TestFieldID_FallsBackToName(t *testing.T) {
	cfg, err := Load("/nonexistent/.qjira.yaml")
	if err != nil { t.Fatalf("load: %v", err) }
	if got := cfg.FieldID("story_points"); got != "customfield_10109" { t.Fatalf("id = %q", got) }
	if got := cfg.FieldID("project"); got != "project" { t.Fatalf("id = %q", got) }
}

func TestFieldNames_InvertsMapping(t *testing.T) {
	cfg, err := Load("/nonexistent/.qjira.yaml")
	if err != nil { t.Fatalf("load: %v", err) }
	names := cfg.FieldNames()
	if names["customfield_10109"] != "story_points" { t.Fatalf("names = %#v", names) }
}
