package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/newthinker/backtester/internal/form"
	"github.com/newthinker/backtester/internal/logger"
	"github.com/newthinker/backtester/internal/session"
	"github.com/spf13/cobra"
)

var (
	runValues  = form.DefaultValues()
	runService string
	runJSON    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one backtest and print the result",
	Long: `Submit a backtest of the constant price threshold strategy to the
backtest service and print the performance summary and trade log.
Every flag defaults to the value the web form starts with.`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runValues.Symbols, "symbols", runValues.Symbols, "symbols to backtest on, separated by commas")
	f.StringVar(&runValues.StartDate, "start", runValues.StartDate, "start date, inclusive (year-month-day)")
	f.StringVar(&runValues.EndDate, "end", runValues.EndDate, "end date, inclusive (year-month-day)")
	f.StringVar(&runValues.StartingCash, "cash", runValues.StartingCash, "initial cash")
	f.StringVar(&runValues.Threshold, "threshold", runValues.Threshold, "price threshold that triggers a buy")
	f.StringVar(&runValues.DaysToClose, "days", runValues.DaysToClose, "days to hold before selling")
	f.StringVar(&runValues.Quantity, "quantity", runValues.Quantity, "shares to buy and sell at a time")
	f.StringVar(&runService, "service", "", "backtest service base URL (overrides config)")
	f.BoolVar(&runJSON, "json", false, "print the raw service response as JSON")

	rootCmd.AddCommand(runCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	// diagnostics go to stderr so stdout stays clean for --json
	log, err := logger.New(true, logLevelOr("warn"))
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	baseURL := cfg.Service.BaseURL
	if runService != "" {
		baseURL = runService
	}

	runner, err := newRunner(cfg, baseURL, nil, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := runner.Run(ctx, session.New(uuid.NewString()), runValues)
	runner.Wait()
	if err != nil {
		var fieldErrs form.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", fe.Field, fe.Reason)
			}
		}
		return err
	}

	w := cmd.OutOrStdout()
	if runJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out.Response)
	}

	if out.Snapshot.View != nil {
		fmt.Fprint(w, renderView(*out.Snapshot.View))
	}
	return nil
}

func logLevelOr(def string) string {
	if debug {
		return "debug"
	}
	if logLevel != "" {
		return logLevel
	}
	return def
}
