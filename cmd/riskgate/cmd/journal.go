package cmd

import (
	"fmt"
	"slices"
	"time"

	"github.com/rustyeddy/riskgate/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the SQLite journal",
	Long: `Query fills and session events recorded by "riskgate run".

Subcommands:
  today  - Fills and events for today
  day    - Fills and events for one day
  fills  - Fills in a date range
  events - Events in a date range, optionally of one kind
  pnl    - Realized P&L per day

Examples:
  riskgate journal today
  riskgate journal day 2025-06-02
  riskgate journal events --from 2025-06-01 --to 2025-06-07 --kind halt`,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's fills and events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showDay(cmd, time.Now().In(journalLoc).Format(time.DateOnly))
	},
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "Show fills and events for a day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showDay(cmd, args[0])
	},
}

var journalFillsCmd = &cobra.Command{
	Use:   "fills",
	Short: "List fills in a date range",
	Args:  cobra.NoArgs,
	RunE:  runJournalFills,
}

var journalEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List events in a date range",
	Args:  cobra.NoArgs,
	RunE:  runJournalEvents,
}

var journalPnLCmd = &cobra.Command{
	Use:   "pnl",
	Short: "Realized P&L per day",
	Args:  cobra.NoArgs,
	RunE:  runJournalPnL,
}

var (
	journalDBPath string
	journalFrom   string
	journalTo     string
	journalKind   string
	journalLoc    = time.UTC
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTodayCmd, journalDayCmd, journalFillsCmd, journalEventsCmd, journalPnLCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./riskgate.db", "path to SQLite journal DB")
	for _, c := range []*cobra.Command{journalFillsCmd, journalEventsCmd, journalPnLCmd} {
		c.Flags().StringVar(&journalFrom, "from", "", "first day, YYYY-MM-DD (default today)")
		c.Flags().StringVar(&journalTo, "to", "", "last day, YYYY-MM-DD (default --from)")
	}
	journalEventsCmd.Flags().StringVar(&journalKind, "kind", "", "session, halt, stopped, reject, order_failed or shutdown")
}

func showDay(cmd *cobra.Command, day string) error {
	start, end, err := dayBounds(journalLoc, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	fills, err := j.ListFillsBetween(start, end)
	if err != nil {
		return fmt.Errorf("query fills: %w", err)
	}
	events, err := j.ListEventsBetween(start, end, "")
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), journal.FormatDayOrg(day, fills, events))
	return nil
}

func runJournalFills(cmd *cobra.Command, args []string) error {
	start, end, err := rangeBounds(journalFrom, journalTo)
	if err != nil {
		return err
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	fills, err := j.ListFillsBetween(start, end)
	if err != nil {
		return fmt.Errorf("query fills: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatFillsOrg(fills))
	return nil
}

func runJournalEvents(cmd *cobra.Command, args []string) error {
	start, end, err := rangeBounds(journalFrom, journalTo)
	if err != nil {
		return err
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	events, err := j.ListEventsBetween(start, end, journalKind)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatEventsOrg(events))
	return nil
}

func runJournalPnL(cmd *cobra.Command, args []string) error {
	start, end, err := rangeBounds(journalFrom, journalTo)
	if err != nil {
		return err
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	byDay, err := j.RealizedByDay(start, end)
	if err != nil {
		return fmt.Errorf("query pnl: %w", err)
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	slices.Sort(days)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "| day | realized |")
	fmt.Fprintln(out, "|-----+----------|")
	for _, d := range days {
		fmt.Fprintf(out, "| %s | %s |\n", d, byDay[d].StringFixed(2))
	}
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}

// rangeBounds covers whole days from..to inclusive.
func rangeBounds(from, to string) (time.Time, time.Time, error) {
	if from == "" {
		from = time.Now().In(journalLoc).Format(time.DateOnly)
	}
	if to == "" {
		to = from
	}
	start, _, err := dayBounds(journalLoc, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
	}
	_, end, err := dayBounds(journalLoc, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return start, end, nil
}
