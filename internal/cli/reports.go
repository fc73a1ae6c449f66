/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/aahamlin/jira-reporting-scripts/internal/report"
)

func newVelocityCmd(a *app) *cobra.Command {
	var (
		includeBugs bool
		forecast    bool
		filterDate  string
		fixVersions []string
		allFields   bool
	)
	cmd := &cobra.Command{
		Use:   "velocity PROJECT [PROJECT...]",
		Short: "Calculate effort planned, carried and completed per sprint",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil { return err }
			opts := report.VelocityOptions{IncludeBugs: includeBugs, Forecast: forecast}
			if filterDate != "" {
				d, err := parseDate(filterDate)
				if err != nil { return err }
				opts.FilterByDate = d
			}
			spec := report.NewVelocity(a.cfg, opts)
			return a.runReport(cmd, spec, a.reportOptions(args, splitCSV(fixVersions), allFields))
		},
	}
	cmd.Flags().BoolVarP(&includeBugs, "include-bugs", "B", false, "Include bugs in velocity calculation")
	cmd.Flags().BoolVarP(&forecast, "forecast", "F", false, "Include sprints without a completion date")
	cmd.Flags().StringVar(&filterDate, "filter-by-date", "", "Restrict to sprints starting on or after yyyy-mm-dd")
	cmd.Flags().StringSliceVarP(&fixVersions, "fix-version", "f", nil, "Restrict to fix version(s)")
	cmd.Flags().BoolVarP(&allFields, "all-fields", "A", false, "Output all fields of the first row")
	return cmd
}

func newCycleTimeCmd(a *app) *cobra.Command {
	var (
		fixVersions []string
		allFields   bool
	)
	cmd := &cobra.Command{
		Use:   "cycletime PROJECT [PROJECT...]",
		Short: "Calculate lead and cycle milestones per completed issue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil { return err }
			spec, err := report.NewCycleTime(a.cfg)
			if err != nil { return err }
			return a.runReport(cmd, spec, a.reportOptions(args, splitCSV(fixVersions), allFields))
		},
	}
	cmd.Flags().StringSliceVarP(&fixVersions, "fix-version", "f", nil, "Restrict to fix version(s)")
	cmd.Flags().BoolVarP(&allFields, "all-fields", "A", false, "Output all fields of the first row")
	return cmd
}

func newWorklogCmd(a *app) *cobra.Command {
	var (
		startDate   string
		endDate     string
		authorsOnly bool
		total       bool
		groupBy     string
	)
	cmd := &cobra.Command{
		Use:   "worklog AUTHOR [AUTHOR...]",
		Short: "Report days logged per author per day",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil { return err }
			opts := report.WorklogOptions{
				Authors:     args,
				AuthorsOnly: authorsOnly,
				Total:       total,
				GroupBy:     groupBy,
			}
			var err error
			if opts.StartDate, err = parseDate(startDate); err != nil { return err }
			if opts.EndDate, err = parseDate(endDate); err != nil { return err }
			spec, err := report.NewWorklog(a.cfg, a.client, opts)
			if err != nil { return err }
			return a.runReport(cmd, spec, a.reportOptions(nil, nil, false))
		},
	}
	cmd.Flags().StringVarP(&startDate, "start-date", "S", "", "Exclude entries before yyyy-mm-dd")
	cmd.Flags().StringVarP(&endDate, "end-date", "E", "", "Exclude entries after yyyy-mm-dd")
	cmd.Flags().BoolVar(&authorsOnly, "authors-only", false, "Restrict listings to the authors provided")
	cmd.Flags().BoolVar(&total, "total", false, "Include total days per author")
	cmd.Flags().StringVarP(&groupBy, "group-by", "G", "", "Group results by an existing column, e.g. project_key")
	return cmd
}

func newBacklogCmd(a *app) *cobra.Command {
	var (
		fixVersions []string
		allFields   bool
	)
	cmd := &cobra.Command{
		Use:   "backlog PROJECT [PROJECT...]",
		Short: "Query bug backlog by fix version",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil { return err }
			spec := report.NewBacklog(a.cfg)
			return a.runReport(cmd, spec, a.reportOptions(args, splitCSV(fixVersions), allFields))
		},
	}
	cmd.Flags().StringSliceVarP(&fixVersions, "fix-version", "f", nil, "Restrict to fix version(s)")
	cmd.Flags().BoolVarP(&allFields, "all-fields", "A", false, "Output all fields of the first row")
	return cmd
}

func newJQLCmd(a *app) *cobra.Command {
	var (
		addFields  []string
		addColumns []string
		pivotField string
		allFields  bool
	)
	cmd := &cobra.Command{
		Use:   "jql JQL",
		Short: "Run an arbitrary JQL query through the report pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" { return errors.New("jql statement must not be empty") }
			if err := a.setup(); err != nil { return err }
			spec, err := report.NewJQL(a.cfg, report.JQLOptions{
				JQL:        args[0],
				AddFields:  splitCSV(addFields),
				AddColumns: splitCSV(addColumns),
				PivotField: pivotField,
			})
			if err != nil { return err }
			return a.runReport(cmd, spec, a.reportOptions(nil, nil, allFields))
		},
	}
	cmd.Flags().StringSliceVar(&addFields, "add-field", nil, "Add field(s) to the Jira request")
	cmd.Flags().StringSliceVar(&addColumns, "add-column", nil, "Add column(s) to the CSV output")
	cmd.Flags().StringVarP(&pivotField, "pivot-field", "p", "", "Pivot on a field, e.g. fixVersions")
	cmd.Flags().BoolVarP(&allFields, "all-fields", "A", false, "Output all fields of the first row")
	return cmd
}
