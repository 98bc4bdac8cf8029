package notifier

import (
	"fmt"
	"html"
	"strings"

	"Watchtower/internal/model"
)

var eventIcons = map[model.SignalEventType]string{
	model.EventEnterBuy:  "🟢",
	model.EventEnterSell: "🔴",
	model.EventEnterBoth: "🟡",
	model.EventExitBuy:   "⚪",
	model.EventExitSell:  "⚪",
	model.EventExitBoth:  "⚪",
}

func price(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

func pct(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}

// FormatSignalEvents formats the transitions produced by one market refresh.
func FormatSignalEvents(events []model.SignalEvent) string {
	if len(events) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔔 <b>Signal changes</b> (%d)\n\n", len(events)))
	for _, e := range events {
		b.WriteString(fmt.Sprintf("%s <b>%s</b> %s: %s → %s @ %s\n",
			eventIcons[e.EventType], html.EscapeString(e.Symbol), e.EventType,
			e.FromState, e.ToState, price(e.Price)))
		b.WriteString(fmt.Sprintf("   entry %s | exit %s\n", price(e.TargetEntry), price(e.TargetExit)))
	}
	return b.String()
}

// FormatBrief formats a daily brief for chat.
func FormatBrief(date string, p model.BriefPayload) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📰 <b>Daily brief</b> | %s\n\n", date))
	b.WriteString(html.EscapeString(p.Summary))
	b.WriteString("\n\n")

	writeList := func(label string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString(fmt.Sprintf("<b>%s:</b> %s\n", label, html.EscapeString(strings.Join(items, ", "))))
	}
	writeList("Buy", p.Buy)
	writeList("Sell", p.Sell)
	writeList("New today", p.NewToday)
	writeList("Dropped off", p.DroppedOff)

	if len(p.Insights) > 0 {
		b.WriteString("\n")
		for _, in := range p.Insights {
			b.WriteString("• " + html.EscapeString(in) + "\n")
		}
	}
	if p.IsFallback {
		b.WriteString("\n<i>deterministic brief</i>")
	} else {
		b.WriteString(fmt.Sprintf("\n<i>%s</i>", html.EscapeString(p.Model)))
	}
	return b.String()
}

// FormatActiveSignals lists the assets currently in a signal zone.
func FormatActiveSignals(rows []model.ActiveSignalRow) string {
	if len(rows) == 0 {
		return "✅ No active signals."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📡 <b>Active signals</b> (%d)\n\n", len(rows)))
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("<b>%s</b> %s | %s (%s)\n",
			html.EscapeString(r.Symbol), r.State, price(r.CurrentPrice), pct(r.DailyChangePct)))
	}
	return b.String()
}

// FormatRefresh summarises one market refresh run.
func FormatRefresh(processed, updated, skipped, events int) string {
	return fmt.Sprintf("🔄 <b>Market refresh</b>\nprocessed %d | updated %d | skipped %d | events %d",
		processed, updated, skipped, events)
}

// FormatOverdueSummary summarises one overdue check run.
func FormatOverdueSummary(scanned, flagged, notifications int) string {
	return fmt.Sprintf("⏰ <b>Overdue check</b>\nscanned %d | flagged %d | notified %d",
		scanned, flagged, notifications)
}

// FormatOverdueNotice formats one overdue notification for chat.
func FormatOverdueNotice(title, body string) string {
	return fmt.Sprintf("⚠️ <b>%s</b>\n%s", html.EscapeString(title), html.EscapeString(body))
}

// FormatHelp lists the chat commands.
func FormatHelp() string {
	return "Watchtower commands:\n" +
		"/signals - active signals\n" +
		"/brief - today's brief\n" +
		"/refresh - refresh market data now\n" +
		"/overdue - run the subscription overdue check"
}
