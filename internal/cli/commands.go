/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
	"github.com/aahamlin/jira-reporting-scripts/internal/dataproc"
	"github.com/aahamlin/jira-reporting-scripts/internal/httpapi"
	"github.com/aahamlin/jira-reporting-scripts/internal/jira"
	"github.com/aahamlin/jira-reporting-scripts/internal/jobs"
	"github.com/aahamlin/jira-reporting-scripts/internal/logger"
	"github.com/aahamlin/jira-reporting-scripts/internal/notify"
	"github.com/aahamlin/jira-reporting-scripts/internal/repo"
	"github.com/aahamlin/jira-reporting-scripts/internal/runner"
)

// newDumpCmd prints every flattened field of a single issue, one per
// line, for debugging field mappings.
func newDumpCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump ISSUEKEY",
		Short: "Dump content of a single issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil { return err }
			rec, err := a.client.Issue(cmd.Context(), args[0])
			if err != nil {
				if jira.IsUnauthorized(err) {
					return fmt.Errorf("Jira credentials were rejected for %s", a.cfg.Username)
				}
				return err
			}
			if err := dataproc.LoadTransitions(rec); err != nil { return err }
			delete(rec, "changelog")
			row, err := dataproc.FlattenMap(rec, nil, []string{"lastViewed", "created", "updated"})
			if err != nil { return err }

			keys := make([]string, 0, len(row))
			for k := range row { keys = append(keys, k) }
			sort.Strings(keys)
			for _, k := range keys {
				label := a.cfg.Headers[k].Label
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s):\t%v\n", k, label, row[k])
			}
			return nil
		},
	}
	return cmd
}

// newServeCmd runs the long-lived mode: HTTP report endpoints plus
// scheduled snapshot runs. Credentials must come from the config file
// or environment; there is no prompt.
func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reports over HTTP and run them on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.opts.configPath)
			if err != nil { return err }
			if a.opts.baseURL != "" { cfg.BaseURL = a.opts.baseURL }
			if a.opts.user != "" { cfg.Username = a.opts.user }
			if a.opts.password != "" { cfg.Password = a.opts.password }
			if err := cfg.Validate(); err != nil { return err }

			log := logger.New(cfg, a.opts.debug)
			client := jira.NewClient(cfg, log)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var repository *repo.Repository
			if cfg.DBDSN != "" {
				db := repo.MustOpen(ctx, cfg, log)
				defer db.Close()
				repository = repo.NewRepository(db, log)
				if err := repository.Init(ctx); err != nil { return err }
			}

			run := runner.New(cfg, client, repository, log)

			var notifier *notify.Telegram
			if cfg.TelegramToken != "" { notifier = notify.NewTelegram(cfg, log) }

			if cfg.CronSpec != "" && len(cfg.CronReports) > 0 {
				cr, err := jobs.NewCron(cfg, log, run, repository, notifier)
				if err != nil { return err }
				cr.Start()
				defer cr.Stop()
			}

			router := httpapi.NewRouter(cfg, log, run)
			srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			log.Info().Str("addr", cfg.HTTPAddr).Msg("http server started")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case <-sigCh:
				log.Info().Msg("shutting down...")
			case err := <-errCh:
				if err != nil && err != http.ErrServerClosed { return err }
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.opts.configPath
			if path == "" { path = config.DefaultPath() }
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file %s already exists", path)
			}

			starter := map[string]any{
				"base_url": "your-company.atlassian.net",
				"username": "",
				"fields": map[string]string{
					"story_points": "customfield_10109",
					"sprint":       "customfield_10016",
				},
			}
			b, err := yaml.Marshal(starter)
			if err != nil { return err }
			if err := os.WriteFile(path, b, 0o600); err != nil { return err }
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.AddCommand(initCmd)
	return cmd
}
