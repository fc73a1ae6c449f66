/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */

// Package cli wires the command line surface: one subcommand per
// report plus dump, serve and config management.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
	"github.com/aahamlin/jira-reporting-scripts/internal/jira"
	"github.com/aahamlin/jira-reporting-scripts/internal/logger"
	"github.com/aahamlin/jira-reporting-scripts/internal/report"
	"github.com/aahamlin/jira-reporting-scripts/internal/writer"
)

type globalOpts struct {
	configPath string
	baseURL    string
	user       string
	password   string
	debug      bool
	oneShot    bool
	noProgress bool
	outfile    string
	delimiter  string
}

type app struct {
	opts   globalOpts
	cfg    config.Config
	log    zerolog.Logger
	client *jira.Client
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "qjira",
		Short:         "Export agile reports from Jira Cloud",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.opts.configPath, "config", "", "Config file (default ~/.qjira.yaml)")
	pf.StringVarP(&a.opts.baseURL, "base", "b", "", "Jira Cloud base URL")
	pf.StringVarP(&a.opts.user, "user", "u", "", "Username, if blank will use logged on user")
	pf.StringVarP(&a.opts.password, "password", "w", "", "Password (insecure), if blank will prompt")
	pf.BoolVarP(&a.opts.debug, "debug", "d", false, "Debug level logging")
	pf.BoolVarP(&a.opts.oneShot, "one-shot", "1", false, "Retrieve a single page of results")
	pf.BoolVar(&a.opts.noProgress, "no-progress", false, "Suppress progress indicator")
	pf.StringVarP(&a.opts.outfile, "outfile", "o", "", "Output file (.csv) [default: stdout]")
	pf.StringVar(&a.opts.delimiter, "delimiter", ",", "CSV delimiter")

	root.AddCommand(
		newVelocityCmd(a),
		newCycleTimeCmd(a),
		newWorklogCmd(a),
		newBacklogCmd(a),
		newJQLCmd(a),
		newDumpCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads configuration, resolves credentials and builds the Jira
// client. Called from each subcommand's RunE.
func (a *app) setup() error {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil { return err }

	if a.opts.baseURL != "" { cfg.BaseURL = a.opts.baseURL }
	if a.opts.user != "" { cfg.Username = a.opts.user }
	if a.opts.password != "" { cfg.Password = a.opts.password }

	if cfg.Username == "" {
		if u, err := user.Current(); err == nil { cfg.Username = u.Username }
	}
	if cfg.Password == "" {
		pw, err := promptPassword(cfg.Username)
		if err != nil { return err }
		cfg.Password = pw
	}

	if err := cfg.Validate(); err != nil { return err }

	a.cfg = cfg
	a.log = logger.New(cfg, a.opts.debug)
	a.client = jira.NewClient(cfg, a.log)
	return nil
}

func promptPassword(username string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", errors.New("no password provided and stdin is not a terminal")
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil { return "", err }
	return string(pw), nil
}

// reportOptions assembles the engine options shared by every report
// command: progress display and the one-shot page limiter.
func (a *app) reportOptions(projects, fixVersions []string, allFields bool) report.Options {
	opts := report.Options{Projects: projects, FixVersions: fixVersions, AllFields: allFields}
	if !a.opts.noProgress {
		opts.Progress = func(offset, total int) {
			fmt.Fprintf(os.Stderr, "\rRetrieving %d of %d...", offset, total)
		}
	}
	if a.opts.oneShot {
		opts.Continue = func() bool { return false }
	}
	return opts
}

// runReport executes the engine and writes the result to the selected
// output.
func (a *app) runReport(cmd *cobra.Command, spec report.Spec, opts report.Options) error {
	eng, err := report.NewEngine(a.cfg, spec, a.client, a.log)
	if err != nil { return err }

	rows, err := eng.Execute(cmd.Context(), opts)
	if !a.opts.noProgress { fmt.Fprintln(os.Stderr) }
	if err != nil {
		if jira.IsUnauthorized(err) {
			return fmt.Errorf("Jira credentials were rejected for %s", a.cfg.Username)
		}
		return err
	}
	return a.write(eng.Header(), rows, opts.AllFields)
}

func (a *app) write(header *report.Header, rows []report.Row, allFields bool) error {
	out, closeFn, err := a.openOutput()
	if err != nil { return err }
	defer closeFn()

	wopts := writer.Options{AllFields: allFields}
	if d := []rune(a.opts.delimiter); len(d) > 0 { wopts.Delimiter = d[0] }
	return writer.WriteCSV(out, header, rows, wopts)
}

func (a *app) openOutput() (io.Writer, func(), error) {
	if a.opts.outfile == "" { return os.Stdout, func() {}, nil }
	f, err := os.Create(a.opts.outfile)
	if err != nil { return nil, nil, err }
	return f, func() { _ = f.Close() }, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" { return time.Time{}, nil }
	for _, layout := range []string{"2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil { return t.UTC(), nil }
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected yyyy-mm-dd", s)
}

func splitCSV(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" { out = append(out, p) }
		}
	}
	return out
}
