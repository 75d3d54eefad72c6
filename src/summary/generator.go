package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"
	"volume-spike-detector/src/notify"

	"github.com/shopspring/decimal"
)

const defaultTopN = 15

// Generator renders ranked activity summaries from stored alerts.
type Generator struct {
	Store    interfaces.IActivityReader
	TopN     int
	Location *time.Location
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewGenerator(store interfaces.IActivityReader, topN int, loc *time.Location, log *logger.Logger) *Generator {
	if topN <= 0 {
		topN = defaultTopN
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{Store: store, TopN: topN, Location: loc, Logger: log}
}

// -----------------------------------------------------------------------------

// Messages builds the summaries due on now's weekday: Daily always,
// 3-Day on Wednesday and Friday, Weekly on Friday.
func (g *Generator) Messages(ctx context.Context, now time.Time) ([]string, error) {
	type window struct {
		daysBack int
		title    string
	}

	plan := []window{{0, "Daily"}}
	switch now.In(g.Location).Weekday() {
	case time.Wednesday:
		plan = append(plan, window{2, "3-Day"})
	case time.Friday:
		plan = append(plan, window{2, "3-Day"}, window{4, "Weekly"})
	}

	messages := make([]string, 0, len(plan))
	for _, p := range plan {
		msg, err := g.Build(ctx, now, p.daysBack, p.title)
		if err != nil {
			return messages, fmt.Errorf("failed to build %s summary: %w", strings.ToLower(p.title), err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// -----------------------------------------------------------------------------

// Build renders one summary covering the calendar day of now and daysBack
// days before it.
func (g *Generator) Build(ctx context.Context, now time.Time, daysBack int, title string) (string, error) {
	local := now.In(g.Location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.Location)
	since := dayStart.AddDate(0, 0, -daysBack)

	activity, total, err := g.Store.SymbolActivitySince(ctx, since)
	if err != nil {
		return "", err
	}
	if total == 0 {
		return fmt.Sprintf("No volume spike data available for %s summary", strings.ToLower(title)), nil
	}

	top := activity
	if len(top) > g.TopN {
		top = top[:g.TopN]
	}

	dateInfo := local.Format("02-01-2006")
	if daysBack > 0 {
		dateInfo = fmt.Sprintf("%s to %s", since.Format("02-01-2006"), dateInfo)
	}

	topTotal := 0.0
	for _, a := range top {
		topTotal += a.TotalValueCr
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s Volume Spike Summary</b>\n", title)
	fmt.Fprintf(&b, "Date: %s\n", dateInfo)
	fmt.Fprintf(&b, "Total Records: %d\n", total)
	fmt.Fprintf(&b, "Unique Symbols: %d\n", len(activity))
	fmt.Fprintf(&b, "Top %d Total Value: Rs.%s Cr\n\n", g.TopN, formatCrores(topTotal))
	fmt.Fprintf(&b, "<b>TOP %d RANKINGS (by Count):</b>\n\n", g.TopN)

	for i, a := range top {
		writeEntry(&b, i+1, a)
	}

	b.WriteString("====================\n")
	fmt.Fprintf(&b, "<i>Analysis Complete for %s</i>\n", dateInfo)
	b.WriteString("<i>Ranked by highest trade count</i>\n\n")
	b.WriteString("Reply 'send' for fresh summary or 'done' to stop")
	return b.String(), nil
}

// -----------------------------------------------------------------------------

func writeEntry(b *strings.Builder, rank int, a models.MSymbolActivity) {
	fmt.Fprintf(b, "%d. <b>%s</b>\n", rank, a.Symbol)
	fmt.Fprintf(b, "   Count: <b>%d</b> trades\n", a.Count)
	fmt.Fprintf(b, "   Total Value: Rs.%s Cr\n", formatCrores(a.TotalValueCr))
	fmt.Fprintf(b, "   Avg per Trade: Rs.%s Cr\n\n", decimal.NewFromFloat(a.AvgValueCr()).StringFixed(2))
}

// formatCrores renders v with two decimals and grouped thousands.
func formatCrores(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	whole := d.IntPart()
	frac := d.Sub(decimal.NewFromInt(whole)).Abs().StringFixed(2)
	return notify.GroupThousands(whole) + frac[1:]
}
