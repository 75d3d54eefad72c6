package summary

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"
	"volume-spike-detector/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ interfaces.ISummaryControl = (*Scheduler)(nil)

type fakeReader struct {
	mu       sync.Mutex
	activity []models.MSymbolActivity
	err      error
	since    []time.Time
}

func (f *fakeReader) SymbolActivitySince(_ context.Context, since time.Time) ([]models.MSymbolActivity, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = append(f.since, since)
	total := 0
	for _, a := range f.activity {
		total += a.Count
	}
	return f.activity, total, f.err
}

type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *captureNotifier) NotifySpike(context.Context, models.MSpikeEvent) error { return nil }

func (n *captureNotifier) NotifyOperator(_ context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *captureNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func ist(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func sampleActivity() []models.MSymbolActivity {
	return []models.MSymbolActivity{
		{Symbol: "NSE:SBIN-EQ", Count: 4, TotalValueCr: 1234.5},
		{Symbol: "NSE:TCS-EQ", Count: 2, TotalValueCr: 7},
		{Symbol: "NSE:INFY-EQ", Count: 1, TotalValueCr: 3.25},
	}
}

// -----------------------------------------------------------------------------

func TestBuild_Format(t *testing.T) {
	loc := ist(t)
	reader := &fakeReader{activity: sampleActivity()}
	g := NewGenerator(reader, 2, loc, logger.NewNop())
	now := time.Date(2026, 10, 19, 16, 30, 0, 0, loc)

	msg, err := g.Build(context.Background(), now, 0, "Daily")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(msg, "<b>Daily Volume Spike Summary</b>\nDate: 19-10-2026\n"))
	assert.Contains(t, msg, "Total Records: 7\n")
	assert.Contains(t, msg, "Unique Symbols: 3\n")
	assert.Contains(t, msg, "Top 2 Total Value: Rs.1,241.50 Cr")
	assert.Contains(t, msg, "1. <b>NSE:SBIN-EQ</b>\n   Count: <b>4</b> trades\n   Total Value: Rs.1,234.50 Cr\n   Avg per Trade: Rs.308.63 Cr")
	assert.Contains(t, msg, "2. <b>NSE:TCS-EQ</b>")
	assert.NotContains(t, msg, "NSE:INFY-EQ")
	assert.True(t, strings.HasSuffix(msg, "Reply 'send' for fresh summary or 'done' to stop"))

	require.Len(t, reader.since, 1)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, loc), reader.since[0])
}

func TestBuild_RangeAndEmpty(t *testing.T) {
	loc := ist(t)
	reader := &fakeReader{}
	g := NewGenerator(reader, 0, loc, logger.NewNop())
	now := time.Date(2026, 10, 23, 16, 30, 0, 0, loc)

	msg, err := g.Build(context.Background(), now, 4, "Weekly")
	require.NoError(t, err)
	assert.Equal(t, "No volume spike data available for weekly summary", msg)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, loc), reader.since[0])
	assert.Equal(t, defaultTopN, g.TopN)

	reader.activity = sampleActivity()
	msg, err = g.Build(context.Background(), now, 4, "Weekly")
	require.NoError(t, err)
	assert.Contains(t, msg, "Date: 19-10-2026 to 23-10-2026")
}

func TestMessages_ByWeekday(t *testing.T) {
	loc := ist(t)
	g := NewGenerator(&fakeReader{activity: sampleActivity()}, 15, loc, logger.NewNop())

	cases := map[time.Weekday]struct {
		day    int
		titles []string
	}{
		time.Monday:    {19, []string{"Daily"}},
		time.Wednesday: {21, []string{"Daily", "3-Day"}},
		time.Friday:    {23, []string{"Daily", "3-Day", "Weekly"}},
	}
	for wd, c := range cases {
		now := time.Date(2026, 10, c.day, 16, 30, 0, 0, loc)
		require.Equal(t, wd, now.Weekday())

		msgs, err := g.Messages(context.Background(), now)
		require.NoError(t, err)
		require.Len(t, msgs, len(c.titles), wd.String())
		for i, title := range c.titles {
			assert.True(t, strings.HasPrefix(msgs[i], "<b>"+title+" Volume Spike Summary</b>"), wd.String())
		}
	}
}

func TestMessages_StoreError(t *testing.T) {
	g := NewGenerator(&fakeReader{err: errors.New("db down")}, 15, time.UTC, logger.NewNop())
	_, err := g.Messages(context.Background(), time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	assert.ErrorContains(t, err, "db down")
}

func TestFormatCrores(t *testing.T) {
	assert.Equal(t, "0.00", formatCrores(0))
	assert.Equal(t, "3.25", formatCrores(3.25))
	assert.Equal(t, "1,234,567.89", formatCrores(1234567.891))
	assert.Equal(t, "1.00", formatCrores(0.999))
}

// -----------------------------------------------------------------------------

func newTestScheduler(t *testing.T, start time.Time) (*Scheduler, *captureNotifier, *utils.ManualClock) {
	t.Helper()
	n := &captureNotifier{}
	clock := utils.NewManualClock(start)
	g := NewGenerator(&fakeReader{activity: sampleActivity()}, 15, start.Location(), logger.NewNop())
	s := NewScheduler(g, n, 16*time.Hour+30*time.Minute, 120*time.Minute, logger.NewNop())
	s.Clock = clock
	return s, n, clock
}

func TestScheduler_SendsAfterSendTimeAndRepeats(t *testing.T) {
	loc := ist(t)
	s, n, clock := newTestScheduler(t, time.Date(2026, 10, 19, 16, 0, 0, 0, loc))
	ctx := context.Background()

	assert.False(t, s.Tick(ctx))

	clock.Set(time.Date(2026, 10, 19, 16, 30, 0, 0, loc))
	assert.True(t, s.Tick(ctx))
	assert.Equal(t, 1, n.Count())

	clock.Advance(119 * time.Minute)
	assert.False(t, s.Tick(ctx))

	clock.Advance(time.Minute)
	assert.True(t, s.Tick(ctx))
	assert.Equal(t, 2, n.Count())
}

func TestScheduler_DoneForTodayResetsNextDay(t *testing.T) {
	loc := ist(t)
	s, n, clock := newTestScheduler(t, time.Date(2026, 10, 19, 16, 45, 0, 0, loc))
	ctx := context.Background()

	require.True(t, s.Tick(ctx))
	s.DoneForToday()

	clock.Advance(3 * time.Hour)
	assert.False(t, s.Tick(ctx))

	clock.Set(time.Date(2026, 10, 20, 16, 30, 0, 0, loc))
	assert.True(t, s.Tick(ctx))
	assert.Equal(t, 2, n.Count())
}

func TestScheduler_SendNowInRun(t *testing.T) {
	loc := ist(t)
	s, n, _ := newTestScheduler(t, time.Date(2026, 10, 19, 10, 0, 0, 0, loc))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.SendNow()
	require.Eventually(t, func() bool { return n.Count() == 1 }, time.Second, 5*time.Millisecond)
}
