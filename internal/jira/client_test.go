/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		BaseURL:     baseURL,
		Username:    "tester",
		Password:    "secret",
		PageSize:    2,
		HTTPTimeout: 5 * time.Second,
		FieldMap:    map[string]string{"story_points": "customfield_10109"},
	}
}

func issueJSON(key string) map[string]any {
	return map[string]any{
		"key":    key,
		"fields": map[string]any{"summary": "summary of " + key},
	}
}

func searchHandler(t *testing.T, keys []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Helper()
		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		maxResults, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))
		end := startAt + maxResults
		if end > len(keys) { end = len(keys) }
		issues := []any{}
		for _, k := range keys[startAt:end] { issues = append(issues, issueJSON(k)) }
		_ = json.NewEncoder(w).Encode(map[string]any{"total": len(keys), "issues": issues})
	}
}

func collect(it RecordIter) ([]map[string]any, error) {
	var out []map[string]any
	for it.Next() { out = append(out, it.Record()) }
	return out, it.Err()
}

func TestSearchAll_PaginatesToServerTotal(t *testing.T) {
	keys := []string{"TEST-1", "TEST-2", "TEST-3", "TEST-4", "TEST-5"}
	srv := httptest.NewServer(searchHandler(t, keys))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zerolog.Nop())
	recs, err := collect(c.SearchAll(context.Background(), SearchQuery{JQL: "project = TEST"}))
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if len(recs) != len(keys) { t.Fatalf("got %d records, want %d", len(recs), len(keys)) }
	for i, rec := range recs {
		if rec["issue_key"] != keys[i] { t.Fatalf("record %d = %v", i, rec["issue_key"]) }
	}
}

func TestSearchAll_ReportsProgressBeforeEachPageAndAtEnd(t *testing.T) {
	keys := []string{"TEST-1", "TEST-2", "TEST-3"}
	srv := httptest.NewServer(searchHandler(t, keys))
	defer srv.Close()

	var calls [][2]int
	q := SearchQuery{
		JQL:      "project = TEST",
		Progress: func(offset, total int) { calls = append(calls, [2]int{offset, total}) },
	}
	c := NewClient(testConfig(srv.URL), zerolog.Nop())
	if _, err := collect(c.SearchAll(context.Background(), q)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// two page fetches plus the closing call
	want := [][2]int{{0, 2}, {2, 3}, {3, 3}}
	if len(calls) != len(want) { t.Fatalf("calls = %v", calls) }
	for i := range want {
		if calls[i] != want[i] { t.Fatalf("call %d = %v, want %v", i, calls[i], want[i]) }
	}
}

func TestSearchAll_OneShotStopsAfterFirstPage(t *testing.T) {
	keys := []string{"TEST-1", "TEST-2", "TEST-3", "TEST-4"}
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		searchHandler(t, keys)(w, r)
	}))
	defer srv.Close()

	q := SearchQuery{JQL: "project = TEST", Continue: func() bool { return false }}
	c := NewClient(testConfig(srv.URL), zerolog.Nop())
	recs, err := collect(c.SearchAll(context.Background(), q))
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if len(recs) != 1 { t.Fatalf("got %d records, want 1", len(recs)) }
	if requests != 1 { t.Fatalf("server saw %d requests, want 1", requests) }
}

func TestSearchAll_UnauthorizedSurfacesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "authentication required", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zerolog.Nop())
	_, err := collect(c.SearchAll(context.Background(), SearchQuery{JQL: "project = TEST"}))
	if err == nil { t.Fatalf("expected error") }
	if !IsUnauthorized(err) { t.Fatalf("expected 401 status error, got %v", err) }
}

func TestSearchAll_SendsBasicAuthAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "tester" || pass != "secret" {
			t.Errorf("missing basic auth: %v %v %v", user, pass, ok)
		}
		if got := r.URL.Query().Get("jql"); got != "project = TEST" { t.Errorf("jql = %q", got) }
		if got := r.URL.Query().Get("fields"); got != "summary,status" { t.Errorf("fields = %q", got) }
		if got := r.URL.Query().Get("expand"); got != "changelog" { t.Errorf("expand = %q", got) }
		searchHandler(t, []string{"TEST-1"})(w, r)
	}))
	defer srv.Close()

	q := SearchQuery{JQL: "project = TEST", Fields: []string{"summary", "status"}, Expand: []string{"changelog"}}
	c := NewClient(testConfig(srv.URL), zerolog.Nop())
	if _, err := collect(c.SearchAll(context.Background(), q)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWorklog_FetchesSubResource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/issue/TEST-1/worklog" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"total": 1, "worklogs": [{"timeSpentSeconds": 3600}]}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zerolog.Nop())
	wl, err := c.Worklog(context.Background(), "TEST-1")
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if entries, _ := wl["worklogs"].([]any); len(entries) != 1 { t.Fatalf("worklogs = %#v", wl) }
}

func TestIssue_ExpandsChangelog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/issue/TEST-1" { t.Errorf("path = %s", r.URL.Path) }
		if got := r.URL.Query().Get("expand"); got != "changelog" { t.Errorf("expand = %q", got) }
		_ = json.NewEncoder(w).Encode(issueJSON("TEST-1"))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zerolog.Nop())
	rec, err := c.Issue(context.Background(), "TEST-1")
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if rec["issue_key"] != "TEST-1" { t.Fatalf("issue_key = %v", rec["issue_key"]) }
}
