/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */

// Package runner executes configured reports unattended, for the HTTP
// surface and the scheduler.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
	"github.com/aahamlin/jira-reporting-scripts/internal/jira"
	"github.com/aahamlin/jira-reporting-scripts/internal/report"
	"github.com/aahamlin/jira-reporting-scripts/internal/repo"
)

// Runner builds and executes report engines by name. The snapshot
// repository is optional; without it RunAndSnapshot degrades to a
// plain run.
type Runner struct {
	cfg    config.Config
	client *jira.Client
	repos  *repo.Repository
	log    zerolog.Logger
}

func New(cfg config.Config, client *jira.Client, repos *repo.Repository, log zerolog.Logger) *Runner {
	return &Runner{cfg: cfg, client: client, repos: repos, log: log}
}

// Engine builds the named report with its unattended defaults.
// Worklog is excluded: it requires an author list, which only the CLI
// supplies.
func (r *Runner) Engine(name string) (*report.Engine, error) {
	var spec report.Spec
	switch name {
	case "velocity":
		spec = report.NewVelocity(r.cfg, report.VelocityOptions{})
	case "cycletime":
		ct, err := report.NewCycleTime(r.cfg)
		if err != nil { return nil, err }
		spec = ct
	case "backlog":
		spec = report.NewBacklog(r.cfg)
	default:
		return nil, fmt.Errorf("report %s cannot run unattended", name)
	}
	return report.NewEngine(r.cfg, spec, r.client, r.log)
}

// Run executes the named report and returns its header and rows.
func (r *Runner) Run(ctx context.Context, name string) (*report.Header, []report.Row, error) {
	eng, err := r.Engine(name)
	if err != nil { return nil, nil, err }
	rows, err := eng.Execute(ctx, report.Options{})
	if err != nil { return nil, nil, err }
	return eng.Header(), rows, nil
}

// RunAndSnapshot executes the report and stores the result set when a
// repository is configured.
func (r *Runner) RunAndSnapshot(ctx context.Context, name string) (int, error) {
	started := time.Now().UTC()
	eng, err := r.Engine(name)
	if err != nil { return 0, err }
	rows, err := eng.Execute(ctx, report.Options{})
	if err != nil { return 0, err }
	if r.repos == nil { return len(rows), nil }

	run := repo.ReportRun{
		Report:     name,
		Query:      eng.BuildQuery(report.Options{}),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		RowCount:   len(rows),
	}
	id, err := r.repos.SaveRun(ctx, run)
	if err != nil { return len(rows), err }
	if err := r.repos.SaveRows(ctx, id, rows); err != nil { return len(rows), err }
	r.log.Info().Str("report", name).Int64("run_id", id).Int("rows", len(rows)).Msg("snapshot stored")
	return len(rows), nil
}

// LastRun returns the stored run header for a report, or nil.
func (r *Runner) LastRun(ctx context.Context, name string) (*repo.ReportRun, error) {
	if r.repos == nil { return nil, nil }
	return r.repos.LastRun(ctx, name)
}
