package main

import (
	"context"
	"time"

	"volume-spike-detector/src/auth"
	"volume-spike-detector/src/config"
	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"
	"volume-spike-detector/src/network"
	"volume-spike-detector/src/notify"
	"volume-spike-detector/src/storage"
	"volume-spike-detector/src/summary"
	"volume-spike-detector/src/utils"
)

// -----------------------------------------------------------------------------

// setupStore opens the event store selected by storage.db_type and migrates it
func setupStore(ctx context.Context, cfg *models.MConfig, appLogger *logger.Logger) (interfaces.IEventStore, error) {
	var store interfaces.IEventStore

	switch cfg.Storage.DBType {
	case "postgres":
		pg, err := storage.NewPostgresStore(cfg, logger.NewLogger(cfg, "PostgresStore"))
		if err != nil {
			appLogger.Critical("Failed to init db: %v", err)
			return nil, err
		}
		store = pg
	default:
		store = storage.NewSQLiteStore(cfg, logger.NewLogger(cfg, "SQLiteStore"))
	}

	if err := store.Initialize(ctx); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
		return nil, err
	}

	// Startup retention pass
	if n, err := store.CleanupOldData(ctx); err != nil {
		appLogger.Warning("Startup cleanup failed: %v", err)
	} else if n > 0 {
		appLogger.Info("Removed %d events past retention", n)
	}
	return store, nil
}

// -----------------------------------------------------------------------------

// setupNotifier returns the Telegram notifier when enabled, otherwise alerts go to the log
func setupNotifier(cfg *models.MConfig, loc *time.Location) interfaces.INotifier {
	if !cfg.Telegram.Enabled {
		return notify.NewLogNotifier(loc, logger.NewLogger(cfg, "Alerts"))
	}
	netMgr := network.NewAsyncNetworkManager(cfg, logger.NewLogger(cfg, "NetworkManager"))
	return notify.NewTelegramNotifier(cfg.Telegram, netMgr, loc, logger.NewLogger(cfg, "Telegram"))
}

// -----------------------------------------------------------------------------

func setupAuth(cfg *models.MConfig) *auth.TokenAuthenticator {
	return auth.NewTokenAuthenticator(cfg.Auth, utils.SystemClock{}, logger.NewLogger(cfg, "Auth"))
}

// -----------------------------------------------------------------------------

// setupSummary builds the scheduled summary sender, or nil when disabled
func setupSummary(cfg *models.MConfig, store interfaces.IActivityReader, notifier interfaces.INotifier, loc *time.Location) (*summary.Scheduler, error) {
	if !cfg.Summary.Enabled {
		return nil, nil
	}
	sendAt, err := config.ParseClock(cfg.Summary.SendTime)
	if err != nil {
		return nil, err
	}
	gen := summary.NewGenerator(store, cfg.Summary.TopN, loc, logger.NewLogger(cfg, "SummaryGenerator"))
	interval := time.Duration(cfg.Summary.IntervalMinutes) * time.Minute
	return summary.NewScheduler(gen, notifier, sendAt, interval, logger.NewLogger(cfg, "SummaryScheduler")), nil
}

// -----------------------------------------------------------------------------

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
