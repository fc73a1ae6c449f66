/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */

// Package report builds the report engine and its specializations:
// velocity, cycletime, worklog, backlog and ad hoc JQL reports.
package report

import (
	"fmt"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
)

// Formatter renders one cell value for output.
type Formatter func(v any) any

// formatters is the static registry of named value formatters.
var formatters = map[string]Formatter{
	"seconds_to_days": secondsToDays,
}

// secondsToDays converts logged seconds into 8-hour work days.
func secondsToDays(v any) any {
	var secs float64
	switch n := v.(type) {
	case float64:
		secs = n
	case int:
		secs = float64(n)
	case int64:
		secs = float64(n)
	default:
		return v
	}
	return fmt.Sprintf("%.2f", secs/60/60/8)
}

// Column is one resolved output column.
type Column struct {
	Name   string
	Label  string
	Format Formatter
}

// Header is the ordered set of output columns for a report.
type Header struct {
	cols []Column
}

// BuildHeader resolves names against the configured header specs. The
// whole configured header map is validated eagerly, so a broken entry
// fails the run before any data is fetched even when the report does
// not use it. A name with no configured spec becomes a plain column
// labeled by its own key.
func BuildHeader(cfg config.Config, names []string) (*Header, error) {
	for key, spec := range cfg.Headers {
		if spec.Label == "" {
			return nil, fmt.Errorf("header %s is missing required value", key)
		}
		if spec.Format != "" {
			if _, ok := formatters[spec.Format]; !ok {
				return nil, fmt.Errorf("header %s defines non-existent formatter %s", key, spec.Format)
			}
		}
	}
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		col := Column{Name: name, Label: name}
		if spec, ok := cfg.Headers[name]; ok {
			col.Label = spec.Label
			if spec.Format != "" { col.Format = formatters[spec.Format] }
		}
		cols = append(cols, col)
	}
	return &Header{cols: cols}, nil
}

// Columns returns the ordered columns.
func (h *Header) Columns() []Column { return h.cols }

// Names returns the ordered column names.
func (h *Header) Names() []string {
	out := make([]string, len(h.cols))
	for i, c := range h.cols {
		out[i] = c.Name
	}
	return out
}

// Labels returns the ordered display labels.
func (h *Header) Labels() []string {
	out := make([]string, len(h.cols))
	for i, c := range h.cols {
		out[i] = c.Label
	}
	return out
}

// Contains reports whether name is one of the header columns.
func (h *Header) Contains(name string) bool {
	for _, c := range h.cols {
		if c.Name == name { return true }
	}
	return false
}
