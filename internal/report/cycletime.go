/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package report

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
)

// cycleRule is one compiled transition rule: transitions whose name
// matches contribute their change date to the named column, keeping
// the earliest (lt) or latest (gt) date on repeats. Patterns are
// anchored at the start of the transition name.
type cycleRule struct {
	re     *regexp.Regexp
	column string
	latest bool
	count  bool
}

// CycleTime reports per-issue lead and cycle milestones derived from
// status transitions. An issue that reached done without ever being in
// progress gets a zero-length cycle.
type CycleTime struct {
	Base
	rules       []cycleRule
	effortField string
}

func NewCycleTime(cfg config.Config) (*CycleTime, error) {
	rules := make([]cycleRule, 0, len(cfg.CycleRules))
	for _, r := range cfg.CycleRules {
		re, err := regexp.Compile("^(?:" + r.Match + ")")
		if err != nil { return nil, fmt.Errorf("cycletime rule %s: %w", r.Column, err) }
		switch r.Tie {
		case "lt", "gt", "":
		default:
			return nil, fmt.Errorf("cycletime rule %s: unknown tie %q", r.Column, r.Tie)
		}
		rules = append(rules, cycleRule{re: re, column: r.Column, latest: r.Tie == "gt", count: r.Count})
	}
	return &CycleTime{
		Base:        newBase("cycletime", cfg.Report("cycletime"), ""),
		rules:       rules,
		effortField: cfg.EffortField,
	}, nil
}

func (*CycleTime) Expand() []string { return []string{"changelog"} }

func (c *CycleTime) Fields() []string { return []string{c.effortField} }

// PreProcess folds the issue's transitions through the rules. Issues
// carrying no effort estimate are dropped.
func (c *CycleTime) PreProcess(_ context.Context, rec map[string]any) ([]map[string]any, error) {
	if err := loadTransitions(rec); err != nil { return nil, err }
	transitions, _ := rec["transitions"].([]any)
	delete(rec, "transitions")

	if effortOf(rec, c.effortField) == 0 { return nil, nil }

	for _, rule := range c.rules {
		if rule.count { rec["count_"+rule.column] = 0 }
	}
	for _, t0 := range transitions {
		t, _ := t0.(map[string]any)
		if t == nil { continue }
		name, _ := t["name"].(string)
		when, ok := t["change_date"].(time.Time)
		if !ok { continue }
		for _, rule := range c.rules {
			if !rule.re.MatchString(name) { continue }
			if rule.count { rec["count_"+rule.column] = rec["count_"+rule.column].(int) + 1 }
			cur, has := rec[rule.column].(time.Time)
			if !has || (rule.latest && when.After(cur)) || (!rule.latest && when.Before(cur)) {
				rec[rule.column] = when
			}
		}
	}

	// done without ever entering progress counts as a zero cycle
	if _, ok := rec["cycle_begin"]; !ok {
		if end, ok := rec["lead_end"]; ok { rec["cycle_begin"] = end }
	}
	return []map[string]any{rec}, nil
}

// PostProcess orders rows oldest to newest by cycle start, then lead
// end, then issue key.
func (c *CycleTime) PostProcess(rows []Row) ([]Row, error) {
	sort.SliceStable(rows, func(i, j int) bool {
		bi, bj := dateColumn(rows[i], "cycle_begin"), dateColumn(rows[j], "cycle_begin")
		if !bi.Equal(bj) { return bi.Before(bj) }
		ei, ej := dateColumn(rows[i], "lead_end"), dateColumn(rows[j], "lead_end")
		if !ei.Equal(ej) { return ei.Before(ej) }
		ki, _ := rows[i]["issue_key"].(string)
		kj, _ := rows[j]["issue_key"].(string)
		return ki < kj
	})
	return rows, nil
}

func dateColumn(row Row, name string) time.Time {
	if t, ok := row[name].(time.Time); ok { return t }
	return time.Time{}
}
