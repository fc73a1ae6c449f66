/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package report

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
	"github.com/aahamlin/jira-reporting-scripts/internal/dataproc"
)

// VelocityOptions are the velocity-specific switches.
type VelocityOptions struct {
	IncludeBugs bool
	Forecast    bool

	// FilterByDate, when set, restricts reporting to sprints starting
	// on or after this date regardless of issue type.
	FilterByDate time.Time
}

// Velocity summarizes effort per sprint: points planned (first sprint
// an issue appears in), carried (subsequent sprints), total and
// completed (status change lands inside the sprint window).
//
// Issues without a sprint do not count toward velocity. Sprints still
// in progress are skipped unless forecasting is enabled.
type Velocity struct {
	Base
	opts             VelocityOptions
	effortField      string
	storyTypes       []string
	completeStatus   []string
	sprintIssueTypes []string
	headerKeys       []string
}

func NewVelocity(cfg config.Config, opts VelocityOptions) *Velocity {
	rc := cfg.Report("velocity")
	query := rc.Query
	if opts.IncludeBugs { query = rc.QueryBug }
	return &Velocity{
		Base:             newBase("velocity", rc, query),
		opts:             opts,
		effortField:      cfg.EffortField,
		storyTypes:       cfg.StoryTypes,
		completeStatus:   cfg.CompleteStatus,
		sprintIssueTypes: rc.SprintIssueTypes,
		headerKeys:       rc.Headers,
	}
}

func (*Velocity) PivotField() string { return "sprint" }
func (*Velocity) Expand() []string   { return []string{"changelog"} }

func (v *Velocity) Fields() []string { return []string{v.effortField} }

// PreProcess extracts the status change dates from the changelog; the
// transition list itself is not part of this report.
func (v *Velocity) PreProcess(_ context.Context, rec map[string]any) ([]map[string]any, error) {
	if err := loadTransitions(rec); err != nil { return nil, err }
	delete(rec, "transitions")
	return []map[string]any{rec}, nil
}

// PostProcess reduces issue-per-sprint rows to one summary row per
// sprint, then orders sprints by start date, name and project.
func (v *Velocity) PostProcess(rows []Row) ([]Row, error) {
	acc := newVelocityAccumulator(v)
	for _, row := range rows { acc.add(row) }
	out := acc.rows()

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := sprintStartOf(out[i]), sprintStartOf(out[j])
		if !si.Equal(sj) { return si.Before(sj) }
		ni, _ := out[i]["sprint_name"].(string)
		nj, _ := out[j]["sprint_name"].(string)
		if ni != nj { return ni < nj }
		pi, _ := out[i]["project_key"].(string)
		pj, _ := out[j]["project_key"].(string)
		return pi < pj
	})
	return out, nil
}

type velocityAccumulator struct {
	v             *Velocity
	targetSprints map[any]struct{}
	results       map[any]Row
	order         []any

	lastIssue string
	counter   int
}

func newVelocityAccumulator(v *Velocity) *velocityAccumulator {
	return &velocityAccumulator{
		v:             v,
		targetSprints: map[any]struct{}{},
		results:       map[any]Row{},
	}
}

// add consumes one issue-per-sprint row. Rows arrive grouped by issue
// with sprints in start date order, so a simple counter distinguishes
// the planning sprint from carry-over sprints. The target sprint set
// grows during the same pass, matching the incremental filter of the
// reduce step.
func (a *velocityAccumulator) add(row Row) {
	sprintID, ok := row["sprint_id"]
	if !ok { return }

	if _, done := row["sprint_completeDate"]; !done && !a.v.opts.Forecast { return }

	// a date filter qualifies any sprint in range regardless of issue
	// type; sprints holding the configured issue types qualify always
	if !a.v.opts.FilterByDate.IsZero() && !sprintStartOf(row).Before(a.v.opts.FilterByDate) {
		a.targetSprints[sprintID] = struct{}{}
	} else if issueType, _ := row["issuetype_name"].(string); containsString(a.v.sprintIssueTypes, issueType) {
		a.targetSprints[sprintID] = struct{}{}
	}

	issueKey, _ := row["issue_key"].(string)
	if issueKey != a.lastIssue {
		a.lastIssue = issueKey
		a.counter = 0
	} else {
		a.counter++
	}

	if _, target := a.targetSprints[sprintID]; !target { return }

	effort := effortOf(row, a.v.effortField)
	var planned, carried float64
	if a.counter == 0 { planned = effort } else { carried = effort }
	var completed float64
	if a.isComplete(row) { completed = effort }

	out, seeded := a.results[sprintID]
	if !seeded {
		out = Row{}
		for _, k := range a.v.headerKeys {
			if val, ok := row[k]; ok { out[k] = val }
		}
		out["planned_effort"] = 0.0
		out["carried_effort"] = 0.0
		out[a.v.effortField] = 0.0
		out["completed_effort"] = 0.0
		a.results[sprintID] = out
		a.order = append(a.order, sprintID)
	}
	out["planned_effort"] = out["planned_effort"].(float64) + planned
	out["carried_effort"] = out["carried_effort"].(float64) + carried
	out[a.v.effortField] = out[a.v.effortField].(float64) + effort
	out["completed_effort"] = out["completed_effort"].(float64) + completed
}

// isComplete reports whether the issue's completion status change
// landed inside the sprint window.
func (a *velocityAccumulator) isComplete(row Row) bool {
	status := a.completeColumn(row)
	done, ok := row[status].(time.Time)
	if !ok { return false }
	start, ok := row["sprint_startDate"].(time.Time)
	if !ok { return false }
	end, ok := row["sprint_completeDate"].(time.Time)
	if !ok { return false }
	return !done.Before(start) && !done.After(end)
}

// completeColumn picks the status column that marks completion: the
// first configured complete status for story types, the second for
// everything else.
func (a *velocityAccumulator) completeColumn(row Row) string {
	issueType, _ := row["issuetype_name"].(string)
	idx := 1
	if containsString(a.v.storyTypes, issueType) || len(a.v.completeStatus) < 2 { idx = 0 }
	if len(a.v.completeStatus) == 0 { return "" }
	return "status_" + a.v.completeStatus[idx]
}

func (a *velocityAccumulator) rows() []Row {
	out := make([]Row, 0, len(a.order))
	for _, id := range a.order { out = append(out, a.results[id]) }
	return out
}

func sprintStartOf(row Row) time.Time {
	if t, ok := row["sprint_startDate"].(time.Time); ok { return t }
	return dataproc.MaxDate
}

func effortOf(row Row, field string) float64 {
	switch n := row[field].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) { return true }
	}
	return false
}
