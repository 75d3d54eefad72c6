package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"volume-spike-detector/src/config"
	"volume-spike-detector/src/grpc_control"
	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/observability"
	"volume-spike-detector/src/server"
	"volume-spike-detector/src/session"
	"volume-spike-detector/src/supervisor"
	"volume-spike-detector/src/utils"
)

// -----------------------------------------------------------------------------

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf, conf.Name)
	defer appLogger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 4. Storage
	store, err := setupStore(ctx, conf.MConfig, appLogger)
	if err != nil {
		os.Exit(1)
	}
	defer store.Close()

	// 5. Components
	loc := loadLocation(conf.Schedule.Timezone)
	metrics := observability.NewMetrics("volume_spike")
	notifier := setupNotifier(conf.MConfig, loc)
	authenticator := setupAuth(conf.MConfig)

	window, err := utils.NewOperatingWindow(conf.Schedule, logger.NewLogger(conf, "OperatingWindow"))
	if err != nil {
		appLogger.Critical("Failed to build operating window: %v", err)
		os.Exit(1)
	}

	scheduler, err := setupSummary(conf.MConfig, store, notifier, loc)
	if err != nil {
		appLogger.Critical("Failed to build summary scheduler: %v", err)
		os.Exit(1)
	}
	var summaryControl interfaces.ISummaryControl
	if scheduler != nil {
		summaryControl = scheduler
	}

	// 6. Dashboard server; Control is wired once the supervisor exists
	srv := server.NewFastAPIServer(conf.MConfig, nil, summaryControl, authenticator, nil, metrics, logger.NewLogger(conf, "FastAPIServer"))
	if recent, err := store.RecentEvents(ctx, conf.Detector.RecentAlerts); err != nil {
		appLogger.Warning("Failed to load recent alerts: %v", err)
	} else {
		slices.Reverse(recent)
		srv.Seed(recent)
	}

	// 7. Session factory and supervisor
	factory := session.NewFactory(conf.MConfig, authenticator, store, notifier, srv, metrics, logger.NewLogger(conf, "Session"))
	sup := supervisor.NewSessionSupervisor(conf.MConfig, factory, window, authenticator, notifier, metrics, logger.NewLogger(conf, "Supervisor"))
	srv.Control = sup
	srv.MetricsSource = factory

	var ctrl *grpc_control.Server
	if conf.GrpcPort > 0 {
		svc := grpc_control.NewControlService(sup, summaryControl, factory, logger.NewLogger(conf, "ControlService"))
		ctrl = grpc_control.NewServer(conf.GrpcHost, conf.GrpcPort, svc, appLogger)
	}

	// 8. Start everything
	startServers(srv, ctrl, appLogger)

	wg := &sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		sup.Run(ctx)
	}()
	go runRetention(ctx, wg, store, appLogger)
	if scheduler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Run(ctx)
		}()
	}

	appLogger.Info("Volume spike detector running for %d symbols", len(conf.Feed.Symbols))
	<-ctx.Done()

	// 9. Shutdown
	appLogger.Info("Shutting down...")
	wg.Wait()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warning("HTTP shutdown: %v", err)
	}
	if ctrl != nil {
		ctrl.Stop()
	}
}
