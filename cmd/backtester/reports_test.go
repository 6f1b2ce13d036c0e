package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/backtester/internal/backtest"
	"github.com/newthinker/backtester/internal/storage/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// archiveWithReport saves one report into a fresh localfs archive and
// points --config at it.
func archiveWithReport(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	store, err := archive.NewLocalFS(filepath.Join(dir, "reports"))
	require.NoError(t, err)

	path, err := archive.NewReports(store).Save(context.Background(), archive.Report{
		SessionID:   "sess-1",
		Seq:         2,
		SubmittedAt: time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC),
		Request: backtest.BacktestRequest{
			Symbols:      []string{"NVDA", "GOOGL"},
			StartDate:    backtest.NewDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			EndDate:      backtest.NewDate(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
			StartingCash: 1000,
			Strategy:     backtest.StrategyConstantPriceThreshold,
		},
		Response: &backtest.BacktestResponse{
			ProfitLoss: 12.5,
			Trades: []backtest.TradeInfo{
				{Side: "buy", Symbol: "NVDA", Shares: 5, Price: 130.25, Time: "2024-01-02T00:00:00"},
			},
		},
	})
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath,
		[]byte("archive:\n  type: localfs\n  path: "+filepath.Join(dir, "reports")+"\n"), 0644))
	return cfgPath
}

func executeReports(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile = ""
		reportsDay = ""
		reportsJSON = false
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath, "reports"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReportsList(t *testing.T) {
	cfgPath := archiveWithReport(t)

	out, err := executeReports(t, cfgPath, "list", "--day", "2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, "reports/2024/05/06/sess-1-2.json\n", out)
}

func TestReportsList_EmptyDay(t *testing.T) {
	cfgPath := archiveWithReport(t)

	out, err := executeReports(t, cfgPath, "list", "--day", "2024-05-07")
	require.NoError(t, err)
	assert.Contains(t, out, "No reports archived on 2024-05-07.")
}

func TestReportsList_BadDay(t *testing.T) {
	cfgPath := archiveWithReport(t)

	_, err := executeReports(t, cfgPath, "list", "--day", "May 6")
	assert.Error(t, err)
}

func TestReportsShow(t *testing.T) {
	cfgPath := archiveWithReport(t)

	out, err := executeReports(t, cfgPath, "show", "reports/2024/05/06/sess-1-2.json")
	require.NoError(t, err)

	assert.Contains(t, out, "sess-1")
	assert.Contains(t, out, "NVDA,GOOGL")
	assert.Contains(t, out, "2024-01-01 to 2025-01-01")
	assert.Contains(t, out, "$1000.00")
	assert.Contains(t, out, "$12.50")
	assert.Contains(t, out, "$651.25")
}

func TestReportsShow_JSON(t *testing.T) {
	cfgPath := archiveWithReport(t)

	out, err := executeReports(t, cfgPath, "show", "--json", "reports/2024/05/06/sess-1-2.json")
	require.NoError(t, err)

	var report archive.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "sess-1", report.SessionID)
	assert.Equal(t, uint64(2), report.Seq)
	assert.Equal(t, 12.5, report.Response.ProfitLoss)
}

func TestReportsShow_Missing(t *testing.T) {
	cfgPath := archiveWithReport(t)

	_, err := executeReports(t, cfgPath, "show", "reports/2024/05/06/nope.json")
	assert.Error(t, err)
}

func TestReports_ArchiveDisabled(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("archive:\n  type: none\n"), 0644))

	_, err := executeReports(t, cfgPath, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}
