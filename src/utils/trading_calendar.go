package utils

import (
	"strings"
	"time"

	"volume-spike-detector/src/logger"

	"github.com/scmhub/calendar"
)

// TradingCalendar decides exchange business days using scmhub/calendar.
type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// GetCalendar loads the calendar for an ISO 10383 MIC (e.g. "xnse").
// Unknown MICs fall back to a Monday-Friday calendar in loc.
func GetCalendar(mic string, loc *time.Location, log *logger.Logger) *TradingCalendar {
	if loc == nil {
		loc = time.UTC
	}

	cal := calendar.GetCalendar(strings.ToLower(mic))
	if cal == nil {
		if log != nil {
			log.Warning("No exchange calendar for MIC '%s'. Using Mon-Fri fallback in %s.", mic, loc)
		}
		return &TradingCalendar{Fallback: true, Timezone: loc}
	}

	return &TradingCalendar{Calendar: cal, Timezone: loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	// Library handles holidays
	return tc.Calendar.IsBusinessDay(date)
}
