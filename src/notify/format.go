package notify

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"volume-spike-detector/src/models"
)

// FormatSpike renders an alert as Telegram HTML.
func FormatSpike(ev models.MSpikeEvent, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	b.WriteString("<b>Volume Spike Alert</b>\n\n")
	fmt.Fprintf(&b, "<b>Symbol:</b> %s\n", html.EscapeString(ev.Symbol))
	fmt.Fprintf(&b, "<b>Sector:</b> %s\n", html.EscapeString(ev.Sector))
	fmt.Fprintf(&b, "<b>Volume:</b> %s\n", GroupThousands(ev.VolumeDelta))
	fmt.Fprintf(&b, "<b>Price:</b> Rs%.2f\n", ev.Price)
	fmt.Fprintf(&b, "<b>Value:</b> Rs%s Crores\n", ev.ValueCrores().StringFixed(2))
	fmt.Fprintf(&b, "<b>Type:</b> %s\n", ev.Severity)
	fmt.Fprintf(&b, "<b>Time:</b> %s", ev.ObservedAt.In(loc).Format("15:04:05"))
	return b.String()
}

// -----------------------------------------------------------------------------

// GroupThousands formats n with comma separators.
func GroupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}

	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return sign + b.String()
}
