package main

import (
	"fmt"
	"io"

	"github.com/dvloznov/spending-dashboard/internal/analytics"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	return t
}

// renderReport prints the period summaries, the ride analysis and the
// period-over-period change.
func renderReport(w io.Writer, report analytics.Report) {
	if !report.HasData {
		fmt.Fprintln(w, report.Message)
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Period", "Transactions", "Total", "Average", "Top Category"})
	for _, s := range report.Summaries {
		top := ""
		if len(s.TopCategories) > 0 {
			c := s.TopCategories[0]
			top = fmt.Sprintf("%s (%s%%)", c.Category, c.Percentage)
		}
		t.AppendRow(table.Row{s.FormattedPeriod, s.Count, s.Total.String(), s.Average.String(), top})
	}
	t.AppendSeparator()
	t.AppendFooter(table.Row{text.Bold.Sprint("Total"), report.Count, text.Bold.Sprint(report.Total.String()), report.Average.String(), ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()

	if report.Growth != nil {
		g := report.Growth
		change := "n/a"
		if g.PercentChange != nil {
			change = g.PercentChange.String() + "%"
		}
		line := fmt.Sprintf("%s vs %s: %s (%s)", g.CurrentLabel, g.PreviousLabel, g.Difference.String(), change)
		if g.Increased {
			line = text.FgRed.Sprint(line)
		} else {
			line = text.FgGreen.Sprint(line)
		}
		fmt.Fprintln(w, line)
	}

	renderRides(w, report.Rides)
}

// renderBreakdown prints spending without card payments, split by transport
// provider and subscription.
func renderBreakdown(w io.Writer, b analytics.SpendingBreakdown) {
	if !b.HasData {
		fmt.Fprintln(w, b.Message)
		return
	}

	fmt.Fprintf(w, "Spent %s excluding %d card payments totalling %s\n", b.TotalSpent, b.CardPaymentCount, b.CardPayments)

	if len(b.Transport) > 0 {
		t := newTable(w)
		t.SetTitle("Transport")
		t.AppendHeader(table.Row{"Provider", "Count", "Spent", "Share"})
		for _, p := range b.Transport {
			t.AppendRow(table.Row{p.Name, p.Count, p.Amount.String(), p.Percentage.String() + "%"})
		}
		t.AppendFooter(table.Row{text.Bold.Sprint("Total"), "", text.Bold.Sprint(b.TransportTotal.String()), ""})
		t.Render()
	}

	if len(b.Subscriptions) > 0 {
		t := newTable(w)
		t.SetTitle("Subscriptions")
		t.AppendHeader(table.Row{"Subscription", "Count", "Spent", "Share"})
		for _, s := range b.Subscriptions {
			t.AppendRow(table.Row{s.Name, s.Count, s.Amount.String(), s.Percentage.String() + "%"})
		}
		t.AppendFooter(table.Row{text.Bold.Sprint("Total"), "", text.Bold.Sprint(b.SubscriptionTotal.String()), b.SubscriptionShare.String() + "%"})
		t.Render()
	}
}

func renderRides(w io.Writer, rides *analytics.RideSummary) {
	if rides == nil {
		fmt.Fprintln(w, "No ride transactions in the selected periods")
		return
	}

	t := newTable(w)
	t.SetTitle("Rides")
	t.AppendHeader(table.Row{"Period", "Trips", "Spent", "Average", "Weekday", "Weekend"})
	for _, m := range rides.Monthly {
		t.AppendRow(table.Row{m.FormattedPeriod, m.TripCount, m.TotalSpent.String(), m.AverageTrip.String(), m.WeekdayTrips, m.WeekendTrips})
	}
	t.AppendSeparator()
	t.AppendFooter(table.Row{
		text.Bold.Sprint("Total"),
		rides.TripCount,
		text.Bold.Sprint(rides.TotalSpent.String()),
		rides.AverageTrip.String(),
		rides.WeekdayTrips,
		rides.WeekendTrips,
	})
	t.Render()

	fmt.Fprintf(w, "Rides are %s%% of spending; most trips happen in the %s\n", rides.PercentOfTotal, rides.MostCommonTime)
}
