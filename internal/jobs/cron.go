/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */

// Package jobs schedules unattended report snapshots.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
	"github.com/aahamlin/jira-reporting-scripts/internal/notify"
	"github.com/aahamlin/jira-reporting-scripts/internal/repo"
	"github.com/aahamlin/jira-reporting-scripts/internal/runner"
)

const lockKey int64 = 771177

type Cron struct {
	cfg      config.Config
	log      zerolog.Logger
	run      *runner.Runner
	repo     *repo.Repository
	notifier *notify.Telegram
	c        *cron.Cron
}

func NewCron(cfg config.Config, log zerolog.Logger, run *runner.Runner, r *repo.Repository, n *notify.Telegram) (*Cron, error) {
	c := cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)))
	cr := &Cron{cfg: cfg, log: log, run: run, repo: r, notifier: n, c: c}
	if _, err := c.AddFunc(cfg.CronSpec, cr.scheduled); err != nil {
		return nil, fmt.Errorf("cron spec %q: %w", cfg.CronSpec, err)
	}
	return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { cr.c.Stop() }

// scheduled runs every configured report under an advisory lock so
// replicas sharing a database do not duplicate work.
func (cr *Cron) scheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if cr.repo != nil {
		ok, err := cr.repo.TryAdvisoryLock(ctx, lockKey)
		if err != nil { cr.log.Error().Err(err).Msg("cron: lock error"); return }
		if !ok { cr.log.Info().Msg("cron: already running elsewhere"); return }
		defer func() { _ = cr.repo.AdvisoryUnlock(context.Background(), lockKey) }()
	}

	for _, name := range cr.cfg.CronReports {
		cr.log.Info().Str("report", name).Msg("cron: running report")
		count, err := cr.run.RunAndSnapshot(ctx, name)
		if err != nil {
			cr.log.Error().Err(err).Str("report", name).Msg("cron: report failed")
			if cr.notifier != nil && cr.notifier.Enabled() {
				cr.notifier.Broadcast(ctx, fmt.Sprintf("report %s failed: %v", name, err))
			}
			continue
		}
		if cr.notifier != nil && cr.notifier.Enabled() {
			cr.notifier.Broadcast(ctx, fmt.Sprintf("report %s completed with %d rows", name, count))
		}
	}
}
