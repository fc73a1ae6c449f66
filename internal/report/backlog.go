/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package report

import (
	"github.com/aahamlin/jira-reporting-scripts/internal/config"
)

// Backlog lists unresolved bugs pivoted on fix version, so an issue
// slated for several versions appears once per version. Customer lists
// are reported as a count rather than expanded.
type Backlog struct {
	Base
	countFields      []string
	additionalFields []string
}

func NewBacklog(cfg config.Config) *Backlog {
	rc := cfg.Report("backlog")
	countFields := rc.CountFields
	if countFields == nil { countFields = []string{"customer"} }
	return &Backlog{
		Base:             newBase("backlog", rc, ""),
		countFields:      countFields,
		additionalFields: rc.AdditionalFields,
	}
}

func (*Backlog) PivotField() string { return "fixVersions" }

func (b *Backlog) Fields() []string      { return b.additionalFields }
func (b *Backlog) CountFields() []string { return b.countFields }
