/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package report

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aahamlin/jira-reporting-scripts/internal/dataproc"
)

type stubFetcher struct {
	logs map[string][]map[string]any
}

func (f *stubFetcher) Worklog(_ context.Context, key string) (map[string]any, error) {
	entries := make([]any, 0, len(f.logs[key]))
	for _, e := range f.logs[key] { entries = append(entries, e) }
	return map[string]any{"worklogs": entries}, nil
}

func worklogEntry(author, started string, seconds float64) map[string]any {
	return map[string]any{
		"author":           map[string]any{"name": author},
		"started":          started,
		"timeSpentSeconds": seconds,
	}
}

func worklogIssue(key string) map[string]any {
	return map[string]any{
		"issue_key": key,
		"project":   map[string]any{"key": "TEST"},
		"issuetype": map[string]any{"name": "Story"},
	}
}

func TestWorklog_SumsDaysPerAuthorPerDay(t *testing.T) {
	cfg := testConfig(t)
	src := &stubSearcher{build: func() []map[string]any {
		return []map[string]any{worklogIssue("TEST-1"), worklogIssue("TEST-2")}
	}}
	fetcher := &stubFetcher{logs: map[string][]map[string]any{
		"TEST-1": {
			worklogEntry("aahamlin", "2018-04-05T10:00:00.000-0500", 86400),
			worklogEntry("other", "2018-04-05T10:00:00.000-0500", 28800),
		},
		"TEST-2": {
			worklogEntry("aahamlin", "2018-04-05T14:00:00.000-0500", 14400),
		},
	}}

	spec, err := NewWorklog(cfg, fetcher, WorklogOptions{Authors: []string{"aahamlin"}, AuthorsOnly: true})
	if err != nil { t.Fatalf("spec: %v", err) }
	rows := execute(t, cfg, spec, src, Options{})
	if len(rows) != 1 { t.Fatalf("rows = %#v", rows) }

	row := rows[0]
	if row["worklog_author_name"] != "aahamlin" { t.Fatalf("author = %v", row["worklog_author_name"]) }
	if got := row["worklog_started"].(time.Time); !got.Equal(date(2018, time.April, 5)) {
		t.Fatalf("started = %v", got)
	}
	if row["worklog_timeSpentDays"] != "3.500" { t.Fatalf("days = %v", row["worklog_timeSpentDays"]) }
	if row["issue_keys"] != "TEST-1 TEST-2" { t.Fatalf("issue_keys = %v", row["issue_keys"]) }
}

func TestWorklog_KeepsOtherAuthorsWithoutAuthorsOnly(t *testing.T) {
	cfg := testConfig(t)
	src := &stubSearcher{build: func() []map[string]any {
		return []map[string]any{worklogIssue("TEST-1")}
	}}
	fetcher := &stubFetcher{logs: map[string][]map[string]any{
		"TEST-1": {
			worklogEntry("aahamlin", "2018-04-05T10:00:00.000-0500", 28800),
			worklogEntry("other", "2018-04-05T10:00:00.000-0500", 14400),
		},
	}}

	spec, err := NewWorklog(cfg, fetcher, WorklogOptions{Authors: []string{"aahamlin"}})
	if err != nil { t.Fatalf("spec: %v", err) }
	rows := execute(t, cfg, spec, src, Options{})
	if len(rows) != 2 { t.Fatalf("rows = %#v", rows) }
	// same day sorts by author
	if rows[0]["worklog_author_name"] != "aahamlin" || rows[1]["worklog_author_name"] != "other" {
		t.Fatalf("order = %v, %v", rows[0]["worklog_author_name"], rows[1]["worklog_author_name"])
	}
}

func TestWorklog_DateRangeIsInclusive(t *testing.T) {
	cfg := testConfig(t)
	src := &stubSearcher{build: func() []map[string]any {
		return []map[string]any{worklogIssue("TEST-1")}
	}}
	fetcher := &stubFetcher{logs: map[string][]map[string]any{
		"TEST-1": {
			worklogEntry("aahamlin", "2018-04-04T10:00:00.000-0500", 28800),
			worklogEntry("aahamlin", "2018-04-05T10:00:00.000-0500", 28800),
			worklogEntry("aahamlin", "2018-04-06T10:00:00.000-0500", 28800),
		},
	}}

	spec, err := NewWorklog(cfg, fetcher, WorklogOptions{
		Authors:   []string{"aahamlin"},
		StartDate: date(2018, time.April, 5),
		EndDate:   date(2018, time.April, 5),
	})
	if err != nil { t.Fatalf("spec: %v", err) }
	rows := execute(t, cfg, spec, src, Options{})
	if len(rows) != 1 { t.Fatalf("rows = %#v", rows) }
	if got := rows[0]["worklog_started"].(time.Time); !got.Equal(date(2018, time.April, 5)) {
		t.Fatalf("started = %v", got)
	}
}

func TestWorklog_TotalRowPerAuthor(t *testing.T) {
	cfg := testConfig(t)
	src := &stubSearcher{build: func() []map[string]any {
		return []map[string]any{worklogIssue("TEST-1")}
	}}
	fetcher := &stubFetcher{logs: map[string][]map[string]any{
		"TEST-1": {
			worklogEntry("aahamlin", "2018-04-05T10:00:00.000-0500", 28800),
			worklogEntry("aahamlin", "2018-04-06T10:00:00.000-0500", 14400),
		},
	}}

	spec, err := NewWorklog(cfg, fetcher, WorklogOptions{Authors: []string{"aahamlin"}, Total: true})
	if err != nil { t.Fatalf("spec: %v", err) }
	rows := execute(t, cfg, spec, src, Options{})
	if len(rows) != 3 { t.Fatalf("rows = %#v", rows) }

	total := rows[len(rows)-1]
	if got := total["worklog_started"].(time.Time); !got.Equal(dataproc.MaxDate) {
		t.Fatalf("total date = %v", got)
	}
	if total["worklog_timeSpentDays"] != "1.500" { t.Fatalf("total days = %v", total["worklog_timeSpentDays"]) }
}

func TestWorklog_GroupByUnknownColumnFails(t *testing.T) {
	cfg := testConfig(t)
	src := &stubSearcher{build: func() []map[string]any {
		return []map[string]any{worklogIssue("TEST-1")}
	}}
	fetcher := &stubFetcher{logs: map[string][]map[string]any{
		"TEST-1": {worklogEntry("aahamlin", "2018-04-05T10:00:00.000-0500", 28800)},
	}}

	spec, err := NewWorklog(cfg, fetcher, WorklogOptions{Authors: []string{"aahamlin"}, GroupBy: "nope"})
	if err != nil { t.Fatalf("spec: %v", err) }
	eng, err := NewEngine(cfg, spec, src, zerolog.Nop())
	if err != nil { t.Fatalf("engine: %v", err) }
	if _, err := eng.Execute(context.Background(), Options{}); err == nil {
		t.Fatal("expected group by error")
	}
}

func TestWorklog_GroupBySplitsRows(t *testing.T) {
	cfg := testConfig(t)
	src := &stubSearcher{build: func() []map[string]any {
		a := worklogIssue("TEST-1")
		a["issuetype"] = map[string]any{"name": "Story"}
		b := worklogIssue("TEST-2")
		b["issuetype"] = map[string]any{"name": "Bug"}
		return []map[string]any{a, b}
	}}
	fetcher := &stubFetcher{logs: map[string][]map[string]any{
		"TEST-1": {worklogEntry("aahamlin", "2018-04-05T10:00:00.000-0500", 28800)},
		"TEST-2": {worklogEntry("aahamlin", "2018-04-05T14:00:00.000-0500", 14400)},
	}}

	spec, err := NewWorklog(cfg, fetcher, WorklogOptions{Authors: []string{"aahamlin"}, GroupBy: "issuetype_name"})
	if err != nil { t.Fatalf("spec: %v", err) }
	rows := execute(t, cfg, spec, src, Options{})
	if len(rows) != 2 { t.Fatalf("rows = %#v", rows) }
	for _, row := range rows {
		if _, ok := row["issuetype_name"].(string); !ok { t.Fatalf("missing group column: %#v", row) }
	}
}

func TestWorklog_GroupOrderIsStable(t *testing.T) {
	cfg := testConfig(t)
	src := &stubSearcher{build: func() []map[string]any {
		a := worklogIssue("TEST-1")
		a["issuetype"] = map[string]any{"name": "Story"}
		b := worklogIssue("TEST-2")
		b["issuetype"] = map[string]any{"name": "Bug"}
		return []map[string]any{a, b}
	}}
	fetcher := &stubFetcher{logs: map[string][]map[string]any{
		"TEST-1": {worklogEntry("aahamlin", "2018-04-05T10:00:00.000-0500", 28800)},
		"TEST-2": {worklogEntry("aahamlin", "2018-04-05T14:00:00.000-0500", 14400)},
	}}

	// both groups share author and day; order must not depend on map
	// iteration
	for i := 0; i < 50; i++ {
		spec, err := NewWorklog(cfg, fetcher, WorklogOptions{Authors: []string{"aahamlin"}, GroupBy: "issuetype_name"})
		if err != nil { t.Fatalf("spec: %v", err) }
		rows := execute(t, cfg, spec, src, Options{})
		if len(rows) != 2 { t.Fatalf("rows = %#v", rows) }
		if rows[0]["issuetype_name"] != "Bug" || rows[1]["issuetype_name"] != "Story" {
			t.Fatalf("run %d: order = %v, %v", i, rows[0]["issuetype_name"], rows[1]["issuetype_name"])
		}
	}
}

func TestWorklog_RequiresAuthors(t *testing.T) {
	cfg := testConfig(t)
	if _, err := NewWorklog(cfg, &stubFetcher{}, WorklogOptions{}); err == nil {
		t.Fatal("expected error for missing authors")
	}
}
