package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"
)

// eventTable holds the SQL shared by the SQLite and Postgres stores. Queries
// are written with '?' placeholders and rebound for Postgres.
type eventTable struct {
	db        *sql.DB
	table     string
	dollar    bool
	location  *time.Location
	retention int
	logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func (t *eventTable) rebind(query string) string {
	query = strings.ReplaceAll(query, "{table}", t.table)
	if !t.dollar {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var errNotInitialized = errors.New("store not initialized")

// -----------------------------------------------------------------------------

// Persist appends one alert row
func (t *eventTable) Persist(ctx context.Context, ev models.MSpikeEvent) error {
	if t.db == nil {
		return errNotInitialized
	}

	local := ev.ObservedAt.In(t.location)
	crores, _ := ev.ValueCrores().Float64()

	_, err := t.db.ExecContext(ctx, t.rebind(`
		INSERT INTO {table} (trade_date, trade_time, symbol, ltp, volume_spike, trd_val_cr, spike_type, sector, spike_pct, notional, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		local.Format("2006-01-02"),
		local.Format("15:04:05"),
		ev.Symbol,
		ev.Price,
		ev.VolumeDelta,
		crores,
		string(ev.Severity),
		ev.Sector,
		ev.SpikePercentage,
		ev.NotionalValue,
		ev.ObservedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert spike event for %s: %w", ev.Symbol, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// SymbolActivitySince aggregates alerts per symbol ranked by count, and
// returns the total number of alert rows in range.
func (t *eventTable) SymbolActivitySince(ctx context.Context, since time.Time) ([]models.MSymbolActivity, int, error) {
	if t.db == nil {
		return nil, 0, errNotInitialized
	}

	rows, err := t.db.QueryContext(ctx, t.rebind(`
		SELECT symbol, COUNT(*) AS cnt, COALESCE(SUM(trd_val_cr), 0) AS total
		FROM {table}
		WHERE observed_at >= ?
		GROUP BY symbol
		ORDER BY cnt DESC, total DESC, symbol ASC
	`), since.UnixMilli())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query symbol activity: %w", err)
	}
	defer rows.Close()

	var (
		result []models.MSymbolActivity
		total  int
	)
	for rows.Next() {
		var a models.MSymbolActivity
		if err := rows.Scan(&a.Symbol, &a.Count, &a.TotalValueCr); err != nil {
			return nil, 0, fmt.Errorf("failed to scan symbol activity: %w", err)
		}
		total += a.Count
		result = append(result, a)
	}
	return result, total, rows.Err()
}

// -----------------------------------------------------------------------------

// RecentEvents returns the newest events, newest first
func (t *eventTable) RecentEvents(ctx context.Context, limit int) ([]models.MSpikeEvent, error) {
	if t.db == nil {
		return nil, errNotInitialized
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := t.db.QueryContext(ctx, t.rebind(`
		SELECT symbol, sector, ltp, volume_spike, notional, spike_pct, spike_type, observed_at
		FROM {table}
		ORDER BY observed_at DESC, id DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	var events []models.MSpikeEvent
	for rows.Next() {
		var (
			ev       models.MSpikeEvent
			severity string
			millis   int64
		)
		if err := rows.Scan(&ev.Symbol, &ev.Sector, &ev.Price, &ev.VolumeDelta, &ev.NotionalValue, &ev.SpikePercentage, &severity, &millis); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Severity = models.Severity(severity)
		ev.ObservedAt = time.UnixMilli(millis).In(t.location)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// -----------------------------------------------------------------------------

// CleanupOldData deletes alerts older than the retention period
func (t *eventTable) CleanupOldData(ctx context.Context) (int64, error) {
	if t.db == nil {
		return 0, errNotInitialized
	}

	cutoff := time.Now().AddDate(0, 0, -t.retention).UnixMilli()

	res, err := t.db.ExecContext(ctx, t.rebind(`DELETE FROM {table} WHERE observed_at < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup failed: %w", err)
	}
	n, _ := res.RowsAffected()
	t.logger.Info("Cleanup removed %d events older than %d days", n, t.retention)
	return n, nil
}

// -----------------------------------------------------------------------------

func (t *eventTable) Close() error {
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil || name == "" {
		return time.UTC
	}
	return loc
}
