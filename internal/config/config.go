/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// HeaderSpec maps an output column key to its display label and an
// optional named formatter. An entry present with an empty label is a
// configuration error, caught eagerly by report.BuildHeader.
type HeaderSpec struct {
	Label  string `mapstructure:"label"`
	Format string `mapstructure:"format"`
}

// TransitionRule drives the cycletime accumulator. Match is a regular
// expression anchored at the start of a transition name. Tie is "lt"
// (keep earliest) or "gt" (keep latest). Count adds an occurrence
// counter column named count_<column>.
type TransitionRule struct {
	Match  string `mapstructure:"match"`
	Column string `mapstructure:"column"`
	Tie    string `mapstructure:"tie"`
	Count  bool   `mapstructure:"count"`
}

// ReportConfig is the per-report section: ordered output columns, the
// report-specific JQL fragment and extra Jira fields to request.
type ReportConfig struct {
	Headers          []string `mapstructure:"headers"`
	Query            string   `mapstructure:"query"`
	QueryBug         string   `mapstructure:"query_bug"`
	SprintIssueTypes []string `mapstructure:"sprint_issue_types"`
	CountFields      []string `mapstructure:"count_fields"`
	AdditionalFields []string `mapstructure:"additional_fields"`
}

type Config struct {
	AppEnv string `mapstructure:"app_env"`

	BaseURL     string        `mapstructure:"base_url"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	PageSize    int           `mapstructure:"page_size"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	// FieldMap translates human field names to Jira custom field ids,
	// e.g. story_points -> customfield_10109.
	FieldMap map[string]string `mapstructure:"fields"`

	DefaultFields  []string `mapstructure:"default_fields"`
	StoryTypes     []string `mapstructure:"story_types"`
	CompleteStatus []string `mapstructure:"complete_status"`
	EffortField    string   `mapstructure:"effort_field"`

	Headers map[string]HeaderSpec   `mapstructure:"headers"`
	Reports map[string]ReportConfig `mapstructure:"reports"`

	CycleRules []TransitionRule `mapstructure:"cycletime_rules"`

	HTTPAddr    string   `mapstructure:"http_addr"`
	CronSpec    string   `mapstructure:"cron_spec"`
	CronReports []string `mapstructure:"cron_reports"`

	DBDSN string `mapstructure:"db_dsn"`

	TelegramToken   string  `mapstructure:"telegram_token"`
	TelegramChatIDs []int64 `mapstructure:"telegram_chat_ids"`
}

// DefaultPath returns the default config file path (~/.qjira.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil { return ".qjira.yaml" }
	return filepath.Join(home, ".qjira.yaml")
}

// Load reads the YAML config file (optional) and applies env var
// overrides on top of the built-in defaults. The returned value is
// threaded through constructors and never mutated afterwards.
func Load(configPath string) (Config, error) {
	v := viper.New()

	if configPath == "" { configPath = DefaultPath() }
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	v.BindEnv("base_url", "JIRA_BASE_URL")
	v.BindEnv("username", "JIRA_USERNAME")
	v.BindEnv("password", "JIRA_PASSWORD")
	v.BindEnv("app_env", "APP_ENV")
	v.BindEnv("http_addr", "HTTP_ADDR")
	v.BindEnv("cron_spec", "CRON_SPEC")
	v.BindEnv("db_dsn", "DB_DSN")
	v.BindEnv("telegram_token", "TELEGRAM_BOT_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		// only a missing file is tolerated; parse errors are real
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// Validate checks fields every command needs. Report-specific
// requirements (worklog authors etc.) are validated by the reports.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("jira base URL is required (set base_url in config or JIRA_BASE_URL)")
	}
	return nil
}

// FieldID resolves a human field name to the Jira field id, returning
// the name unchanged when no mapping exists.
func (c Config) FieldID(name string) string {
	if id, ok := c.FieldMap[name]; ok && id != "" { return id }
	return name
}

// FieldNames returns the reverse mapping, Jira field id -> human name,
// used when normalizing fetched issues.
func (c Config) FieldNames() map[string]string {
	out := make(map[string]string, len(c.FieldMap))
	for name, id := range c.FieldMap { out[id] = name }
	return out
}

func (c Config) Report(name string) ReportConfig { return c.Reports[name] }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "dev")
	v.SetDefault("page_size", 50)
	v.SetDefault("http_timeout", 15*time.Second)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("cron_spec", "0 6 * * MON")
	v.SetDefault("cron_reports", []string{"velocity"})

	v.SetDefault("fields", map[string]string{
		"story_points":      "customfield_10109",
		"sprint":            "customfield_10016",
		"epic_issue_key":    "customfield_10017",
		"design_doc_link":   "customfield_11101",
		"testplan_doc_link": "customfield_14300",
		"severity":          "customfield_10112",
		"customer":          "customfield_10400",
	})

	v.SetDefault("default_fields", []string{
		"-*navigable", "project", "issuetype", "status", "summary",
		"assignee", "fixVersions", "story_points", "sprint", "epic_issue_key",
	})
	v.SetDefault("story_types", []string{"Story"})
	v.SetDefault("complete_status", []string{"Done", "Closed"})
	v.SetDefault("effort_field", "story_points")

	v.SetDefault("headers", map[string]map[string]string{
		"story_points":          {"label": "Story Points"},
		"issue_key":             {"label": "Issue"},
		"project_key":           {"label": "Project"},
		"issuetype_name":        {"label": "Type"},
		"status_name":           {"label": "Status"},
		"summary":               {"label": "Summary"},
		"sprint_name":           {"label": "Sprint"},
		"sprint_startDate":      {"label": "Start Date"},
		"sprint_completeDate":   {"label": "Completion Date"},
		"planned_effort":        {"label": "Planned"},
		"carried_effort":        {"label": "Carried"},
		"completed_effort":      {"label": "Completed"},
		"timeoriginalestimate":  {"label": "Original Estimate (Days)", "format": "seconds_to_days"},
		"timespent":             {"label": "Time Spent (Days)", "format": "seconds_to_days"},
		"worklog_author_name":   {"label": "Author"},
		"worklog_started":       {"label": "Date"},
		"worklog_timeSpentDays": {"label": "Days"},
		"issue_keys":            {"label": "Issues"},
		"fixVersions_0_name":    {"label": "Fix Version"},
		"fixVersions_name":      {"label": "Fix Versions"},
		"priority_name":         {"label": "Priority"},
		"lead_begin":            {"label": "Lead Start"},
		"cycle_begin":           {"label": "Cycle Start"},
		"lead_end":              {"label": "Done"},
		"count_cycle_begin":     {"label": "In Progress Count"},
		"customer":              {"label": "Customers"},
		"severity_value":        {"label": "Severity"},
		"created":               {"label": "Created"},
		"updated":               {"label": "Updated"},
	})

	v.SetDefault("reports", map[string]map[string]any{
		"velocity": {
			"headers": []string{
				"project_key", "sprint_name", "sprint_startDate", "sprint_completeDate",
				"planned_effort", "carried_effort", "story_points", "completed_effort",
			},
			"query":              "issuetype = Story",
			"query_bug":          "issuetype in (Story, Bug)",
			"sprint_issue_types": []string{"Story"},
		},
		"cycletime": {
			"headers": []string{
				"project_key", "fixVersions_0_name", "issuetype_name", "issue_key",
				"story_points", "status_name", "lead_begin", "cycle_begin", "lead_end",
				"count_cycle_begin",
			},
			"query": "issuetype = Story AND status in (Done, Accepted)",
		},
		"worklog": {
			"headers": []string{
				"worklog_started", "worklog_author_name", "worklog_timeSpentDays", "issue_keys",
			},
		},
		"backlog": {
			"headers": []string{
				"issue_key", "priority_name", "summary", "fixVersions_name",
				"customer", "severity_value", "status_name", "created", "updated",
			},
			"query":             "issuetype = Bug AND resolution = Unresolved ORDER BY priority DESC",
			"count_fields":      []string{"customer"},
			"additional_fields": []string{"priority", "created", "updated", "severity", "customer"},
		},
		"jql": {
			"headers": []string{
				"issue_key", "project_key", "issuetype_name", "summary", "status_name",
				"created", "updated",
			},
		},
	})

	v.SetDefault("cycletime_rules", []map[string]any{
		{"match": "from_.*_to_Ready$", "column": "lead_begin", "tie": "lt"},
		{"match": "from_.*_to_WorkInProgress$", "column": "cycle_begin", "tie": "lt", "count": true},
		{"match": "from_.*_to_(Resolved|Done|Closed)$", "column": "lead_end", "tie": "gt"},
	})
}
