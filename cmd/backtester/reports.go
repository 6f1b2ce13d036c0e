package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/backtester/internal/logger"
	"github.com/newthinker/backtester/internal/present"
	"github.com/newthinker/backtester/internal/storage/archive"
	"github.com/spf13/cobra"
)

const dayLayout = "2006-01-02"

var (
	reportsDay  string
	reportsJSON bool
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Browse archived backtest reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the reports archived on one day",
	Args:  cobra.NoArgs,
	RunE:  runReportsList,
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Print one archived report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsShow,
}

func init() {
	reportsListCmd.Flags().StringVar(&reportsDay, "day", "", "day to list, YYYY-MM-DD in UTC (default today)")
	reportsShowCmd.Flags().BoolVar(&reportsJSON, "json", false, "print the stored report as JSON")

	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd)
	rootCmd.AddCommand(reportsCmd)
}

func archivedReports() (*archive.Reports, error) {
	log, err := logger.New(true, logLevelOr("warn"))
	if err != nil {
		return nil, err
	}
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return nil, err
	}
	reports, err := openReports(cfg)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		return nil, errors.New("report archive is disabled (archive.type is none)")
	}
	return reports, nil
}

func runReportsList(cmd *cobra.Command, args []string) error {
	day := time.Now().UTC()
	if reportsDay != "" {
		var err error
		day, err = time.Parse(dayLayout, reportsDay)
		if err != nil {
			return fmt.Errorf("invalid --day (expected YYYY-MM-DD): %w", err)
		}
	}

	reports, err := archivedReports()
	if err != nil {
		return err
	}

	paths, err := reports.List(context.Background(), day)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(paths) == 0 {
		fmt.Fprintf(w, "No reports archived on %s.\n", day.Format(dayLayout))
		return nil
	}
	for _, p := range paths {
		fmt.Fprintln(w, p)
	}
	return nil
}

func runReportsShow(cmd *cobra.Command, args []string) error {
	reports, err := archivedReports()
	if err != nil {
		return err
	}

	report, err := reports.Load(context.Background(), args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if reportsJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	req := report.Request
	fmt.Fprintf(w, "%s%s\n", labelStyle.Render("Session:"), report.SessionID)
	fmt.Fprintf(w, "%s%s\n", labelStyle.Render("Submitted:"), report.SubmittedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "%s%s\n", labelStyle.Render("Symbols:"), strings.Join(req.Symbols, ","))
	fmt.Fprintf(w, "%s%s to %s\n", labelStyle.Render("Period:"),
		req.StartDate.Format(dayLayout), req.EndDate.Format(dayLayout))
	fmt.Fprintf(w, "%s%s\n\n", labelStyle.Render("Starting Cash:"), present.Currency(req.StartingCash))

	if report.Response != nil {
		fmt.Fprint(w, renderView(present.Present(report.Response)))
	}
	return nil
}
