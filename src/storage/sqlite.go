package storage

import (
	"context"
	"database/sql"
	"fmt"

	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteStore struct {
	eventTable
	Config *models.MConfig
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteStore(cfg *models.MConfig, log *logger.Logger) *SQLiteStore {
	return &SQLiteStore{
		eventTable: eventTable{
			table:     "spike_events",
			location:  loadLocation(cfg.Schedule.Timezone),
			retention: cfg.Storage.DataRetentionDays,
			logger:    log,
		},
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Initialize(ctx context.Context) error {
	if d.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", d.Config.Storage.DBPath)
	if err != nil {
		return err
	}
	// One writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	d.db = db

	// PRAGMA optimizations
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables(ctx)
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) createTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS spike_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trade_date TEXT NOT NULL,
			trade_time TEXT NOT NULL,
			symbol TEXT NOT NULL,
			ltp REAL NOT NULL,
			volume_spike INTEGER NOT NULL,
			trd_val_cr REAL NOT NULL,
			spike_type TEXT NOT NULL,
			sector TEXT NOT NULL,
			spike_pct REAL NOT NULL,
			notional REAL NOT NULL,
			observed_at INTEGER NOT NULL
		);
	`
	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create spike_events: %w", err)
	}

	if _, err := d.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_spike_events_observed ON spike_events (observed_at)`); err != nil {
		return fmt.Errorf("failed to create spike_events index: %w", err)
	}

	d.Logger.Info("SQLite store ready at %s", d.Config.Storage.DBPath)
	return nil
}
