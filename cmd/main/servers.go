package main

import (
	"context"
	"sync"
	"time"

	"volume-spike-detector/src/grpc_control"
	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/server"
)

const retentionInterval = 24 * time.Hour

// -----------------------------------------------------------------------------

// startServers launches the HTTP dashboard and, when configured, the gRPC control server
func startServers(srv *server.FastAPIServer, ctrl *grpc_control.Server, appLogger *logger.Logger) {
	// 1. HTTP API and dashboard websocket
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	if ctrl == nil {
		return
	}
	go func() {
		if err := ctrl.ListenAndServe(); err != nil {
			appLogger.Critical("failed to serve gRPC: %v", err)
		}
	}()
}

// -----------------------------------------------------------------------------

// runRetention purges old events once a day until ctx ends
func runRetention(ctx context.Context, wg *sync.WaitGroup, store interfaces.IEventStore, appLogger *logger.Logger) {
	defer wg.Done()

	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.CleanupOldData(ctx)
			if err != nil {
				appLogger.Warning("Retention cleanup failed: %v", err)
				continue
			}
			appLogger.Info("Retention cleanup removed %d events", n)
		}
	}
}
