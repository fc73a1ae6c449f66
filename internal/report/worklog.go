/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
	"github.com/aahamlin/jira-reporting-scripts/internal/dataproc"
)

// secondsPerDay is one 8-hour work day.
const secondsPerDay = 28800.0

// WorklogFetcher is the slice of the Jira client the worklog report
// needs beyond searching.
type WorklogFetcher interface {
	Worklog(ctx context.Context, key string) (map[string]any, error)
}

// WorklogOptions are the worklog-specific switches.
type WorklogOptions struct {
	Authors []string

	// StartDate and EndDate, when set, exclude entries logged outside
	// the inclusive range.
	StartDate time.Time
	EndDate   time.Time

	// AuthorsOnly drops entries logged by anyone not in Authors.
	AuthorsOnly bool

	// Total appends a grand-total row per author.
	Total bool

	// GroupBy adds an existing column to the grouping key.
	GroupBy string
}

// Worklog reports days logged per author per day across the issues
// the authors worked on.
type Worklog struct {
	Base
	opts    WorklogOptions
	fetcher WorklogFetcher
}

func NewWorklog(cfg config.Config, fetcher WorklogFetcher, opts WorklogOptions) (*Worklog, error) {
	if len(opts.Authors) == 0 { return nil, errors.New("worklog: at least one author is required") }
	if fetcher == nil { return nil, errors.New("worklog: fetcher is required") }
	query := fmt.Sprintf("worklogAuthor in (%s)", strings.Join(opts.Authors, ", "))
	return &Worklog{Base: newBase("worklog", cfg.Report("worklog"), query), opts: opts, fetcher: fetcher}, nil
}

func (w *Worklog) DatetimeFields() []string {
	return append(w.Base.DatetimeFields(), "worklog_started")
}

// PreProcess expands the issue into one record per worklog entry, each
// carrying the parent issue's fields.
func (w *Worklog) PreProcess(ctx context.Context, rec map[string]any) ([]map[string]any, error) {
	delete(rec, "changelog")
	key, _ := rec["issue_key"].(string)
	wl, err := w.fetcher.Worklog(ctx, key)
	if err != nil { return nil, err }

	entries, _ := wl["worklogs"].([]any)
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		entry, _ := e.(map[string]any)
		if entry == nil { continue }
		y := make(map[string]any, len(rec)+1)
		for k, v := range rec { y[k] = v }
		y["worklog"] = entry
		out = append(out, y)
	}
	return out, nil
}

// PostProcess filters entries to the requested window and authors,
// then sums seconds per author per day, carrying the set of issues
// worked on. With Total set, each author also gets a grand-total row
// dated past every real entry.
func (w *Worklog) PostProcess(rows []Row) ([]Row, error) {
	type groupKey struct {
		author string
		date   time.Time
		group  string
	}
	type group struct {
		row     Row
		seconds float64
		issues  map[string]struct{}
	}

	groups := map[groupKey]*group{}
	totals := map[string]*group{}

	for _, row := range rows {
		author, _ := row["worklog_author_name"].(string)
		started, ok := row["worklog_started"].(time.Time)
		if !ok { continue }
		if w.opts.AuthorsOnly && !containsString(w.opts.Authors, author) { continue }
		if !w.opts.StartDate.IsZero() && started.Before(w.opts.StartDate) { continue }
		if !w.opts.EndDate.IsZero() && started.After(w.opts.EndDate) { continue }

		key := groupKey{author: author, date: started}
		if w.opts.GroupBy != "" {
			gv, ok := row[w.opts.GroupBy]
			if !ok { return nil, fmt.Errorf("group by column %s does not exist", w.opts.GroupBy) }
			key.group = fmt.Sprintf("%v", gv)
		}

		g := groups[key]
		if g == nil {
			g = &group{issues: map[string]struct{}{}, row: Row{
				"worklog_author_name": author,
				"worklog_started":     started,
			}}
			if w.opts.GroupBy != "" { g.row[w.opts.GroupBy] = row[w.opts.GroupBy] }
			groups[key] = g
		}
		g.seconds += secondsOf(row["worklog_timeSpentSeconds"])
		if ik, ok := row["issue_key"].(string); ok { g.issues[ik] = struct{}{} }

		if w.opts.Total {
			t := totals[author]
			if t == nil {
				t = &group{issues: map[string]struct{}{}, row: Row{
					"worklog_author_name": author,
					"worklog_started":     dataproc.MaxDate,
				}}
				totals[author] = t
			}
			t.seconds += secondsOf(row["worklog_timeSpentSeconds"])
			if ik, ok := row["issue_key"].(string); ok { t.issues[ik] = struct{}{} }
		}
	}

	out := make([]Row, 0, len(groups)+len(totals))
	emit := func(g *group) {
		keys := make([]string, 0, len(g.issues))
		for k := range g.issues { keys = append(keys, k) }
		sort.Strings(keys)
		g.row["issue_keys"] = strings.Join(keys, " ")
		g.row["worklog_timeSpentDays"] = fmt.Sprintf("%.3f", g.seconds/secondsPerDay)
		out = append(out, g.row)
	}
	for _, g := range groups { emit(g) }
	for _, t := range totals { emit(t) }

	sort.SliceStable(out, func(i, j int) bool {
		di := out[i]["worklog_started"].(time.Time)
		dj := out[j]["worklog_started"].(time.Time)
		if !di.Equal(dj) { return di.Before(dj) }
		ai, _ := out[i]["worklog_author_name"].(string)
		aj, _ := out[j]["worklog_author_name"].(string)
		if ai != aj { return ai < aj }
		if w.opts.GroupBy == "" { return false }
		// groups sharing author and day differ only in the group
		// column; order on it so output does not depend on map
		// iteration
		return fmt.Sprintf("%v", out[i][w.opts.GroupBy]) < fmt.Sprintf("%v", out[j][w.opts.GroupBy])
	})
	return out, nil
}

func secondsOf(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
