/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package report

import (
	"context"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
	"github.com/aahamlin/jira-reporting-scripts/internal/dataproc"
)

// Base carries the shared spec defaults. Specializations embed it and
// override only the hooks they change.
type Base struct {
	name    string
	query   string
	headers []string
}

func newBase(name string, rc config.ReportConfig, query string) Base {
	if query == "" { query = rc.Query }
	return Base{name: name, query: query, headers: rc.Headers}
}

func (b Base) Name() string      { return b.name }
func (b Base) Query() string     { return b.query }
func (b Base) Headers() []string { return b.headers }

func (Base) PivotField() string { return "" }
func (Base) Fields() []string   { return nil }
func (Base) Expand() []string   { return nil }

func (Base) CountFields() []string { return nil }

// DatetimeFields lists the string fields parsed to calendar dates
// during flattening.
func (Base) DatetimeFields() []string {
	return []string{"lastViewed", "created", "updated"}
}

// PreProcess drops the raw changelog so it never reaches the flatten
// step. Specs that consume the changelog override this.
func (Base) PreProcess(_ context.Context, rec map[string]any) ([]map[string]any, error) {
	delete(rec, "changelog")
	return []map[string]any{rec}, nil
}

func (Base) PostProcess(rows []Row) ([]Row, error) { return rows, nil }

// loadTransitions runs the changelog extraction and removes the raw
// changelog from the record.
func loadTransitions(rec map[string]any) error {
	if err := dataproc.LoadTransitions(rec); err != nil { return err }
	delete(rec, "changelog")
	return nil
}
