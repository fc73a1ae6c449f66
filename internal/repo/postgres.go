/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */

// Package repo persists report snapshots so scheduled runs leave an
// auditable trail.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
	"github.com/aahamlin/jira-reporting-scripts/internal/report"
)

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
	return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

// ReportRun is one stored execution of a report.
type ReportRun struct {
	ID         int64
	Report     string
	Query      string
	StartedAt  time.Time
	FinishedAt time.Time
	RowCount   int
}

type Repository struct {
	db  *DB
	log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

// Init creates the snapshot tables when they do not exist yet.
func (r *Repository) Init(ctx context.Context) error {
	const q = `
        CREATE TABLE IF NOT EXISTS report_runs(
            id BIGSERIAL PRIMARY KEY,
            report TEXT NOT NULL,
            query TEXT NOT NULL DEFAULT '',
            started_at TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ NOT NULL,
            row_count INT NOT NULL
        );
        CREATE INDEX IF NOT EXISTS report_runs_report_idx ON report_runs(report, finished_at DESC);
        CREATE TABLE IF NOT EXISTS report_rows(
            run_id BIGINT NOT NULL REFERENCES report_runs(id) ON DELETE CASCADE,
            position INT NOT NULL,
            row JSONB NOT NULL,
            PRIMARY KEY(run_id, position)
        )`
	_, err := r.db.Pool.Exec(ctx, q)
	return err
}

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
	return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
	if !ok && err == nil { return errors.New("advisory unlock returned false") }
	return err
}

// SaveRun stores a run header and returns its id.
func (r *Repository) SaveRun(ctx context.Context, run ReportRun) (int64, error) {
	const q = `INSERT INTO report_runs(report, query, started_at, finished_at, row_count)
        VALUES($1,$2,$3,$4,$5) RETURNING id`
	var id int64
	row := r.db.Pool.QueryRow(ctx, q, run.Report, run.Query, run.StartedAt, run.FinishedAt, run.RowCount)
	if err := row.Scan(&id); err != nil { return 0, err }
	return id, nil
}

// SaveRows stores the report rows for a run as JSONB, preserving row
// order.
func (r *Repository) SaveRows(ctx context.Context, runID int64, rows []report.Row) error {
	if len(rows) == 0 { return nil }
	batch := &pgx.Batch{}
	const q = `INSERT INTO report_rows(run_id, position, row) VALUES($1,$2,$3)`
	for i, row := range rows { batch.Queue(q, runID, i, row) }
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range rows { if _, err := br.Exec(); err != nil { return err } }
	return nil
}

// LastRun returns the most recent run of a report, or nil when the
// report never ran.
func (r *Repository) LastRun(ctx context.Context, reportName string) (*ReportRun, error) {
	const q = `SELECT id, report, query, started_at, finished_at, row_count
        FROM report_runs WHERE report=$1 ORDER BY finished_at DESC LIMIT 1`
	var run ReportRun
	row := r.db.Pool.QueryRow(ctx, q, reportName)
	err := row.Scan(&run.ID, &run.Report, &run.Query, &run.StartedAt, &run.FinishedAt, &run.RowCount)
	if errors.Is(err, pgx.ErrNoRows) { return nil, nil }
	if err != nil { return nil, err }
	return &run, nil
}
