/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
	"github.com/aahamlin/jira-reporting-scripts/internal/dataproc"
	"github.com/aahamlin/jira-reporting-scripts/internal/jira"
	"github.com/rs/zerolog"
)

// Row is one flat output row.
type Row = map[string]any

// Searcher is the slice of the Jira client the engine needs.
type Searcher interface {
	SearchAll(ctx context.Context, q jira.SearchQuery) jira.RecordIter
}

// Spec is one report specialization. Base supplies neutral defaults so
// a spec only overrides what it actually changes.
type Spec interface {
	Name() string
	Query() string
	Headers() []string
	PivotField() string
	Fields() []string
	Expand() []string
	CountFields() []string
	DatetimeFields() []string
	PreProcess(ctx context.Context, rec map[string]any) ([]map[string]any, error)
	PostProcess(rows []Row) ([]Row, error)
}

// Options are the per-run knobs shared by every report.
type Options struct {
	Projects    []string
	FixVersions []string
	AllFields   bool
	Progress    func(offset, total int)
	Continue    func() bool
}

// Engine drives one report: query assembly, the paginated fetch, the
// pivot/flatten step and the spec's aggregation.
type Engine struct {
	cfg      config.Config
	spec     Spec
	searcher Searcher
	header   *Header
	log      zerolog.Logger
}

// NewEngine validates the spec's header against the configuration and
// returns a ready engine. Header problems are reported here, before
// anything is fetched.
func NewEngine(cfg config.Config, spec Spec, searcher Searcher, log zerolog.Logger) (*Engine, error) {
	header, err := BuildHeader(cfg, spec.Headers())
	if err != nil { return nil, err }
	return &Engine{cfg: cfg, spec: spec, searcher: searcher, header: header, log: log}, nil
}

// Header returns the validated output header.
func (e *Engine) Header() *Header { return e.header }

// Spec returns the engine's report specialization.
func (e *Engine) Spec() Spec { return e.spec }

// BuildQuery assembles the JQL from the project and fix version
// filters plus the spec's own fragment. The spec fragment comes last
// so its ORDER BY clause, when present, stays terminal.
func (e *Engine) BuildQuery(opts Options) string {
	var parts []string
	if len(opts.Projects) > 0 {
		parts = append(parts, fmt.Sprintf("project in (%s)", strings.Join(opts.Projects, ", ")))
	}
	if len(opts.FixVersions) > 0 {
		parts = append(parts, fmt.Sprintf("fixVersion in (%s)", strings.Join(opts.FixVersions, ", ")))
	}
	if q := e.spec.Query(); q != "" { parts = append(parts, q) }
	return strings.Join(parts, " AND ")
}

// RequestFields resolves the requested field list: the configured
// defaults plus the spec's extras, human names translated to custom
// field ids. All-fields mode requests every navigable field instead.
func (e *Engine) RequestFields(opts Options) []string {
	if opts.AllFields { return []string{"*navigable"} }
	seen := map[string]struct{}{}
	var out []string
	add := func(name string) {
		id := e.cfg.FieldID(name)
		if _, ok := seen[id]; ok { return }
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, f := range e.cfg.DefaultFields { add(f) }
	for _, f := range e.spec.Fields() { add(f) }
	return out
}

// Execute runs the report end to end and returns the final rows.
func (e *Engine) Execute(ctx context.Context, opts Options) ([]Row, error) {
	q := jira.SearchQuery{
		JQL:      e.BuildQuery(opts),
		Fields:   e.RequestFields(opts),
		Expand:   e.spec.Expand(),
		Progress: opts.Progress,
		Continue: opts.Continue,
	}
	e.log.Debug().Str("report", e.spec.Name()).Str("jql", q.JQL).Msg("executing report")

	it := e.searcher.SearchAll(ctx, q)
	var rows []Row
	for it.Next() {
		recs, err := e.spec.PreProcess(ctx, it.Record())
		if err != nil { return nil, err }
		for _, rec := range recs {
			pivoted, err := PivotRecords(rec, e.spec.PivotField(), e.spec.CountFields(), e.spec.DatetimeFields())
			if err != nil { return nil, err }
			rows = append(rows, pivoted...)
		}
	}
	if err := it.Err(); err != nil { return nil, err }

	out, err := e.spec.PostProcess(rows)
	if err != nil { return nil, err }
	e.log.Info().Str("report", e.spec.Name()).Int("rows", len(out)).Msg("report complete")
	return out, nil
}

// PivotRecords flattens rec into one or more rows. With an empty pivot
// field the record becomes a single row. Otherwise each element of the
// pivot list produces a row that merges the flattened element, under
// the pivot field's name, over the flattened remainder of the record.
// A record whose pivot list is missing or empty still yields its base
// row.
func PivotRecords(rec map[string]any, pivotField string, countFields, datetimeFields []string) ([]Row, error) {
	if pivotField == "" {
		row, err := dataproc.FlattenMap(rec, countFields, datetimeFields)
		if err != nil { return nil, err }
		return []Row{row}, nil
	}

	base := make(map[string]any, len(rec))
	for k, v := range rec {
		if k == pivotField { continue }
		base[k] = v
	}
	baseRow, err := dataproc.FlattenMap(base, countFields, datetimeFields)
	if err != nil { return nil, err }

	values, _ := rec[pivotField].([]any)
	if len(values) == 0 { return []Row{baseRow}, nil }

	rows := make([]Row, 0, len(values))
	for _, v := range values {
		entry, err := dataproc.FlattenMap(map[string]any{pivotField: v}, countFields, datetimeFields)
		if err != nil { return nil, err }
		row := make(Row, len(baseRow)+len(entry))
		for k, bv := range baseRow { row[k] = bv }
		for k, ev := range entry { row[k] = ev }
		rows = append(rows, row)
	}
	return rows, nil
}
