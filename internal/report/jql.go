/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package report

import (
	"errors"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
)

// JQLOptions are the ad hoc query switches.
type JQLOptions struct {
	JQL        string
	AddFields  []string
	AddColumns []string
	PivotField string
}

// JQL runs a user-supplied query through the standard pipeline. Extra
// request fields and output columns can be bolted on per run.
type JQL struct {
	Base
	opts JQLOptions
}

func NewJQL(cfg config.Config, opts JQLOptions) (*JQL, error) {
	if opts.JQL == "" { return nil, errors.New("jql: query is required") }
	rc := cfg.Report("jql")
	j := &JQL{Base: newBase("jql", rc, opts.JQL), opts: opts}
	j.Base.headers = append(append([]string{}, rc.Headers...), opts.AddColumns...)
	return j, nil
}

func (j *JQL) PivotField() string { return j.opts.PivotField }
func (j *JQL) Fields() []string   { return j.opts.AddFields }
