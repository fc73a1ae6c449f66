/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package writer

import (
	"fmt"
	"html/template"
	"io"

	"github.com/aahamlin/jira-reporting-scripts/internal/report"
)

var htmlTmpl = template.Must(template.New("report").Parse(`<table>
<thead><tr>{{range .Labels}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
`))

// WriteHTML renders the rows as a plain HTML table fragment.
func WriteHTML(w io.Writer, header *report.Header, rows []report.Row, opts Options) error {
	cols := header.Columns()
	if opts.AllFields && len(rows) > 0 { cols = allFieldColumns(rows[0]) }

	labels := make([]string, len(cols))
	for i, c := range cols { labels[i] = c.Label }

	data := struct {
		Labels []string
		Rows   [][]string
	}{Labels: labels}

	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			v, ok := row[c.Name]
			if ok && c.Format != nil { v = c.Format(v) }
			cells[i] = formatValue(v)
		}
		data.Rows = append(data.Rows, cells)
	}
	return htmlTmpl.Execute(w, data)
}

func stringify(v any) string { return fmt.Sprintf("%v", v) }
