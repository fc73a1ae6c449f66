/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */

// Package jira is the thin REST collaborator: paginated search turned
// into a single record stream, plus the per-issue worklog sub-resource.
package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
	"github.com/aahamlin/jira-reporting-scripts/internal/dataproc"
	"github.com/rs/zerolog"
)

// StatusError is any non-2xx API response. Callers inspect the status
// code, in particular to react to rejected credentials.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jira api status=%d body=%s", e.StatusCode, strings.TrimSpace(e.Body))
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}

// SearchQuery describes one logical search across all result pages.
type SearchQuery struct {
	JQL    string
	Fields []string
	Expand []string

	// Progress, when set, is invoked with (offset, total) before each
	// page fetch and once more after the stream ends.
	Progress func(offset, total int)

	// Continue, when set, is polled after each record; returning false
	// stops the stream early, even mid-page.
	Continue func() bool
}

// RecordIter is a pull iterator over normalized issue records. It is
// single-pass and not restartable.
type RecordIter interface {
	Next() bool
	Record() map[string]any
	Err() error
}

type Client struct {
	baseURL    string
	username   string
	password   string
	http       *http.Client
	log        zerolog.Logger
	fieldNames map[string]string
	pageSize   int
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	size := cfg.PageSize
	if size <= 0 { size = 50 }
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		http:       &http.Client{Timeout: cfg.HTTPTimeout},
		log:        log,
		fieldNames: cfg.FieldNames(),
		pageSize:   size,
	}
}

// SearchAll returns the lazy record stream for q. Errors, including
// mid-stream HTTP failures, surface through the iterator's Err.
func (c *Client) SearchAll(ctx context.Context, q SearchQuery) RecordIter {
	return &searchIter{ctx: ctx, c: c, q: q, total: c.pageSize}
}

type searchIter struct {
	ctx     context.Context
	c       *Client
	q       SearchQuery
	page    []map[string]any
	idx     int
	offset  int
	total   int // seeded to page size to force the first fetch
	yielded bool
	done    bool
	err     error
}

func (it *searchIter) Next() bool {
	if it.done || it.err != nil { return false }
	if it.yielded && it.q.Continue != nil && !it.q.Continue() {
		it.finish()
		return false
	}
	for it.idx >= len(it.page) {
		if it.offset >= it.total {
			it.finish()
			return false
		}
		if it.q.Progress != nil { it.q.Progress(it.offset, it.total) }
		page, total, err := it.c.searchPage(it.ctx, it.q, it.offset)
		if err != nil { it.err = err; return false }
		it.total = total
		if len(page) == 0 {
			// server reported more records than it returned
			it.finish()
			return false
		}
		it.page = page
		it.idx = 0
		it.offset += len(page)
	}
	it.idx++
	it.yielded = true
	return true
}

func (it *searchIter) finish() {
	it.done = true
	if it.q.Progress != nil { it.q.Progress(it.offset, it.total) }
}

func (it *searchIter) Record() map[string]any {
	if it.idx == 0 || it.idx > len(it.page) { return nil }
	return it.page[it.idx-1]
}

func (it *searchIter) Err() error { return it.err }

// searchPage fetches one page and normalizes each issue.
func (c *Client) searchPage(ctx context.Context, q SearchQuery, startAt int) ([]map[string]any, int, error) {
	v := url.Values{}
	v.Set("jql", q.JQL)
	if len(q.Fields) > 0 { v.Set("fields", strings.Join(q.Fields, ",")) }
	if len(q.Expand) > 0 { v.Set("expand", strings.Join(q.Expand, ",")) }
	v.Set("startAt", strconv.Itoa(startAt))
	v.Set("maxResults", strconv.Itoa(c.pageSize))

	res, err := c.getJSON(ctx, "/rest/api/2/search?"+v.Encode())
	if err != nil { return nil, 0, err }

	total := 0
	if t, ok := res["total"].(float64); ok { total = int(t) }
	issues, _ := res["issues"].([]any)
	page := make([]map[string]any, 0, len(issues))
	for _, i0 := range issues {
		im, _ := i0.(map[string]any)
		if im == nil { continue }
		rec, err := dataproc.IssueRecord(im, c.fieldNames)
		if err != nil { return nil, 0, err }
		page = append(page, rec)
	}
	c.log.Debug().Int("startAt", startAt).Int("count", len(page)).Int("total", total).Msg("jira search page")
	return page, total, nil
}

// Issue fetches a single issue with its changelog and normalizes it.
func (c *Client) Issue(ctx context.Context, key string) (map[string]any, error) {
	if key == "" { return nil, errors.New("jira: empty issue key") }
	res, err := c.getJSON(ctx, "/rest/api/2/issue/"+url.PathEscape(key)+"?expand=changelog")
	if err != nil { return nil, err }
	return dataproc.IssueRecord(res, c.fieldNames)
}

// Worklog fetches the raw worklog sub-resource for an issue.
func (c *Client) Worklog(ctx context.Context, key string) (map[string]any, error) {
	if key == "" { return nil, errors.New("jira: empty issue key") }
	return c.getJSON(ctx, "/rest/api/2/issue/"+url.PathEscape(key)+"/worklog")
}

func (c *Client) getJSON(ctx context.Context, path string) (map[string]any, error) {
	if c.baseURL == "" { return nil, errors.New("jira: empty baseURL") }
	u := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil { return nil, err }
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" { req.SetBasicAuth(c.username, c.password) }

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil { return nil, err }
	defer resp.Body.Close()
	c.log.Debug().Str("url", u).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("jira request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil { return nil, err }
	return out, nil
}
