/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */

// Package writer renders report rows to CSV or HTML.
package writer

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/aahamlin/jira-reporting-scripts/internal/report"
)

// Options control the output shape.
type Options struct {
	// Delimiter defaults to a comma.
	Delimiter rune

	// AllFields emits every column of the first row, sorted by name,
	// instead of the report's configured header.
	AllFields bool
}

// WriteCSV writes a label row followed by one line per report row.
// Cells missing from a row are left empty.
func WriteCSV(w io.Writer, header *report.Header, rows []report.Row, opts Options) error {
	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 { cw.Comma = opts.Delimiter }

	cols := header.Columns()
	if opts.AllFields && len(rows) > 0 { cols = allFieldColumns(rows[0]) }

	labels := make([]string, len(cols))
	for i, c := range cols { labels[i] = c.Label }
	if err := cw.Write(labels); err != nil { return err }

	record := make([]string, len(cols))
	for _, row := range rows {
		for i, c := range cols {
			v, ok := row[c.Name]
			if ok && c.Format != nil { v = c.Format(v) }
			record[i] = formatValue(v)
		}
		if err := cw.Write(record); err != nil { return err }
	}
	cw.Flush()
	return cw.Error()
}

// allFieldColumns derives plain columns from the keys of the first
// row. Later rows may carry keys the first row lacks; those are not
// reported.
func allFieldColumns(row report.Row) []report.Column {
	names := make([]string, 0, len(row))
	for k := range row { names = append(names, k) }
	sort.Strings(names)
	cols := make([]report.Column, len(names))
	for i, n := range names { cols[i] = report.Column{Name: n, Label: n} }
	return cols
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format("2006-01-02")
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return stringify(val)
	}
}
