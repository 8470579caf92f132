package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/futuresbot/engine"
	"github.com/rustyeddy/futuresbot/journal"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report journaled trades",
	Long: `Display trades recorded in the SQLite journal, with totals.

Examples:
  futuresbot report --db trades.db
  futuresbot report --db trades.db --day 2025-03-14
  futuresbot report equity --db trades.db
  futuresbot report trade 01JPA3ZQ8K2Y7V5N4M6R1T0W9X --db trades.db`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

var reportEquityCmd = &cobra.Command{
	Use:   "equity",
	Short: "List end-of-day equity snapshots",
	Args:  cobra.NoArgs,
	RunE:  runReportEquity,
}

var reportTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Show one journaled trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportTrade,
}

var (
	reportDBPath string
	reportDay    string
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportEquityCmd)
	reportCmd.AddCommand(reportTradeCmd)

	reportCmd.PersistentFlags().StringVarP(&reportDBPath, "db", "d", "./trades.db", "path to SQLite journal DB")
	reportCmd.PersistentFlags().StringVar(&reportDay, "day", "", "restrict to one day (YYYY-MM-DD)")
}

func runReport(cmd *cobra.Command, args []string) error {
	start, end, err := dayBounds(reportDay)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := journal.NewSQLite(reportDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListTrades(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	writeTrades(cmd.OutOrStdout(), recs)
	return nil
}

func runReportEquity(cmd *cobra.Command, args []string) error {
	start, end, err := dayBounds(reportDay)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := journal.NewSQLite(reportDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	snaps, err := j.ListEquity(start, end)
	if err != nil {
		return fmt.Errorf("query equity: %w", err)
	}

	writeEquity(cmd.OutOrStdout(), snaps)
	return nil
}

func runReportTrade(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(reportDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return err
	}

	writeTrade(cmd.OutOrStdout(), rec)
	return nil
}

// dayBounds returns [day, day+24h) in UTC, or open bounds for "".
func dayBounds(day string) (time.Time, time.Time, error) {
	if day == "" {
		return time.Time{}, time.Time{}, nil
	}
	start, err := time.ParseInLocation(time.DateOnly, day, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(24 * time.Hour), nil
}

func writeTrades(w io.Writer, recs []journal.TradeRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No trades.")
		return
	}

	trades := make([]engine.Trade, 0, len(recs))
	table := tablewriter.NewWriter(w)
	table.Header("Opened", "Side", "Size", "Entry", "Exit", "Closed", "Profit", "Type")
	for _, rec := range recs {
		t := rec.Trade()
		trades = append(trades, t)
		table.Append(
			t.EntryTime.Format(time.DateTime),
			t.Side.Label(),
			fmt.Sprintf("%.4f", t.Size),
			fmt.Sprintf("%.4f", t.EntryPrice),
			fmt.Sprintf("%.4f", t.TriggerPrice),
			t.ExitTime.Format(time.DateTime),
			fmt.Sprintf("%.2f", t.Profit),
			t.Reason.Label(),
		)
	}
	table.Render()

	s := engine.Summarize(trades)
	fmt.Fprintf(w, "Total Profit: %.2f USDT | Win Rate: %.2f%% | Trades: %d\n", s.TotalProfit, s.WinRate()*100, s.Count)
}

func writeTrade(w io.Writer, rec journal.TradeRecord) {
	t := rec.Trade()
	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")
	table.Append("ID", rec.TradeID)
	table.Append("Symbol", rec.Symbol)
	table.Append("Side", t.Side.Label())
	table.Append("Size", fmt.Sprintf("%.4f", t.Size))
	table.Append("Entry", fmt.Sprintf("%.4f", t.EntryPrice))
	table.Append("Trigger", fmt.Sprintf("%.4f", t.TriggerPrice))
	table.Append("Fill", fmt.Sprintf("%.4f", t.ExitPrice))
	table.Append("Opened", t.EntryTime.Format(time.DateTime))
	table.Append("Closed", t.ExitTime.Format(time.DateTime))
	table.Append("Held", t.ExitTime.Sub(t.EntryTime).String())
	table.Append("Profit", fmt.Sprintf("%.2f", t.Profit))
	table.Append("Type", t.Reason.Label())
	table.Render()
}

func writeEquity(w io.Writer, snaps []journal.EquitySnapshot) {
	if len(snaps) == 0 {
		fmt.Fprintln(w, "No equity snapshots.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Day", "Bankroll", "Daily Loss", "Available", "Trades")
	for _, e := range snaps {
		table.Append(
			e.Time.Format(time.DateOnly),
			fmt.Sprintf("%.2f", e.Bankroll),
			fmt.Sprintf("%.2f", e.DailyLoss),
			fmt.Sprintf("%.2f", e.Available),
			fmt.Sprintf("%d", e.Trades),
		)
	}
	table.Render()
}
