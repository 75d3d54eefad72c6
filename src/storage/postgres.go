package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresStore struct {
	eventTable
	Config *models.MConfig
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresStore uses storage.db_schema, or the executable name when unset.
func NewPostgresStore(cfg *models.MConfig, log *logger.Logger) (*PostgresStore, error) {
	schema := cfg.Storage.DBSchema
	if schema == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable name: %w", err)
		}
		schema = strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
	}

	return &PostgresStore{
		eventTable: eventTable{
			table:     fmt.Sprintf(`"%s"."spike_events"`, schema),
			dollar:    true,
			location:  loadLocation(cfg.Schedule.Timezone),
			retention: cfg.Storage.DataRetentionDays,
			logger:    log,
		},
		Config: cfg,
		Schema: schema,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Initialize(ctx context.Context) error {
	if d.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	d.db = db

	if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			trade_date TEXT NOT NULL,
			trade_time TEXT NOT NULL,
			symbol TEXT NOT NULL,
			ltp DOUBLE PRECISION NOT NULL,
			volume_spike BIGINT NOT NULL,
			trd_val_cr DOUBLE PRECISION NOT NULL,
			spike_type TEXT NOT NULL,
			sector TEXT NOT NULL,
			spike_pct DOUBLE PRECISION NOT NULL,
			notional DOUBLE PRECISION NOT NULL,
			observed_at BIGINT NOT NULL
		);
	`, d.table)
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create spike_events: %w", err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS spike_events_observed_idx ON %s (observed_at)`, d.table)
	if _, err := db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("failed to create spike_events index: %w", err)
	}

	d.Logger.Info("PostgresStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}
