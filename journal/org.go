package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatFillOrg renders one fill as an Org-mode heading with its facts in a
// PROPERTIES drawer.
func FormatFillOrg(f FillRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Fill: %s %s %d @ %s (%s)\n", f.Instrument, f.Side, f.Quantity, f.Price.String(), shortID(f.OrderID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TIME: %s\n", f.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":ORDER_ID: %s\n", f.OrderID)
	fmt.Fprintf(&b, ":IDEMPOTENCY_KEY: %s\n", f.IdempotencyKey)
	fmt.Fprintf(&b, ":REASON: %s\n", f.Reason)
	fmt.Fprintf(&b, ":POSITION: %d\n", f.Position)
	fmt.Fprintf(&b, ":REALIZED_PL: %s\n", f.RealizedPnL.StringFixed(2))
	b.WriteString(":END:\n")
	return b.String()
}

// FormatFillsOrg renders fills as an Org table.
func FormatFillsOrg(fills []FillRecord) string {
	var b strings.Builder
	b.WriteString("| time | side | qty | price | position | realized | reason |\n")
	b.WriteString("|------+------+-----+-------+----------+----------+--------|\n")
	for _, f := range fills {
		fmt.Fprintf(&b, "| %s | %s | %d | %s | %d | %s | %s |\n",
			f.Time.UTC().Format(time.TimeOnly), f.Side, f.Quantity, f.Price.String(),
			f.Position, f.RealizedPnL.StringFixed(2), f.Reason)
	}
	return b.String()
}

// FormatEventsOrg renders events as an Org list, one line per event.
func FormatEventsOrg(events []EventRecord) string {
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "- %s %s [%s] %s (equity %s)\n",
			e.Time.UTC().Format(time.RFC3339), e.Kind, e.State, e.Reason, e.Equity.StringFixed(2))
	}
	return b.String()
}

// FormatDayOrg renders a trading day: a heading, its fills table and its
// events, with a Review placeholder for notes.
func FormatDayOrg(day string, fills []FillRecord, events []EventRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "* Trading day %s\n", day)
	if n := len(fills); n > 0 {
		fmt.Fprintf(&b, ":PROPERTIES:\n:FILLS: %d\n:REALIZED_PL: %s\n:END:\n", n, fills[n-1].RealizedPnL.StringFixed(2))
	}
	b.WriteString("\n** Fills\n")
	if len(fills) == 0 {
		b.WriteString("none\n")
	} else {
		b.WriteString(FormatFillsOrg(fills))
	}
	b.WriteString("\n** Events\n")
	if len(events) == 0 {
		b.WriteString("none\n")
	} else {
		b.WriteString(FormatEventsOrg(events))
	}
	b.WriteString("\n** Review\n- \n")
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
