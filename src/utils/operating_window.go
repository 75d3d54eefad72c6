package utils

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"
)

// OperatingWindow is the daily time range during which the detector may run.
type OperatingWindow struct {
	Start    time.Duration // offset from local midnight
	End      time.Duration
	Location *time.Location
	Calendar *TradingCalendar // nil means every day qualifies
}

// -----------------------------------------------------------------------------

func NewOperatingWindow(cfg models.MScheduleConfig, log *logger.Logger) (*OperatingWindow, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}
	start, err := parseClock(cfg.Start)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(cfg.End)
	if err != nil {
		return nil, err
	}

	w := &OperatingWindow{Start: start, End: end, Location: loc}
	if cfg.TradingDaysOnly {
		w.Calendar = GetCalendar(cfg.CalendarMIC, loc, log)
	}
	return w, nil
}

// -----------------------------------------------------------------------------

// GetOperatingWindow returns the window bounds on the local date of now
func (w *OperatingWindow) GetOperatingWindow(now time.Time) (time.Time, time.Time) {
	local := now.In(w.Location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, w.Location)
	return midnight.Add(w.Start), midnight.Add(w.End)
}

// -----------------------------------------------------------------------------

// IsWithinWindow reports whether now falls in [start, end) of a trading day
func (w *OperatingWindow) IsWithinWindow(now time.Time) bool {
	if w.Calendar != nil && !w.Calendar.IsTradingDay(now) {
		return false
	}
	start, end := w.GetOperatingWindow(now)
	return !now.Before(start) && now.Before(end)
}

// -----------------------------------------------------------------------------

// NextOpen returns the next window start at or after now, or now itself
// when already inside the window.
func (w *OperatingWindow) NextOpen(now time.Time) time.Time {
	if w.IsWithinWindow(now) {
		return now
	}

	start, _ := w.GetOperatingWindow(now)
	if now.Before(start) && w.isTradingDay(now) {
		return start
	}

	// Holiday runs longer than two weeks are not expected
	for i := 1; i <= 14; i++ {
		day := now.In(w.Location).AddDate(0, 0, i)
		if w.isTradingDay(day) {
			s, _ := w.GetOperatingWindow(day)
			return s
		}
	}
	s, _ := w.GetOperatingWindow(now.AddDate(0, 0, 1))
	return s
}

// -----------------------------------------------------------------------------

// UntilOpen returns how long until the window next opens
func (w *OperatingWindow) UntilOpen(now time.Time) time.Duration {
	return w.NextOpen(now).Sub(now)
}

// -----------------------------------------------------------------------------

func (w *OperatingWindow) isTradingDay(t time.Time) bool {
	return w.Calendar == nil || w.Calendar.IsTradingDay(t)
}

// -----------------------------------------------------------------------------

func parseClock(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q (expected HH:MM)", value)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
