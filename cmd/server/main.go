package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herdbook/internal/config"
	"github.com/mamadbah2/herdbook/internal/domain/breeding"
	"github.com/mamadbah2/herdbook/internal/repository/memory"
	"github.com/mamadbah2/herdbook/internal/repository/mongodb"
	"github.com/mamadbah2/herdbook/internal/repository/sheets"
	"github.com/mamadbah2/herdbook/internal/scheduler"
	"github.com/mamadbah2/herdbook/internal/server/handlers"
	"github.com/mamadbah2/herdbook/internal/server/router"
	batchsvc "github.com/mamadbah2/herdbook/internal/service/batch"
	calculationsvc "github.com/mamadbah2/herdbook/internal/service/calculation"
	commandsvc "github.com/mamadbah2/herdbook/internal/service/commands"
	lifecyclesvc "github.com/mamadbah2/herdbook/internal/service/lifecycle"
	recomputesvc "github.com/mamadbah2/herdbook/internal/service/recompute"
	reportingsvc "github.com/mamadbah2/herdbook/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/herdbook/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/herdbook/pkg/clients/whatsapp"
	"github.com/mamadbah2/herdbook/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	var (
		repo        breeding.Repository
		reportStore reportingsvc.ReportStore
	)
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		baseLogger.Warn("using in-memory breeding storage, data is lost on restart")
		repo = memory.NewRepository()
	default:
		connectCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		mongoRepo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, logger.Named(baseLogger, "repo.mongodb"))
		cancel()
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		repo = mongoRepo
		reportStore = mongoRepo
	}

	recomputer := recomputesvc.NewService(logger.Named(baseLogger, "svc.recompute"))
	cache := calculationsvc.NewResultCache(cfg.Breeding.CacheTTL, loc)
	calculationSvc := calculationsvc.NewService(repo, recomputer, cache, logger.Named(baseLogger, "svc.calculation"))
	lifecycleSvc := lifecyclesvc.NewService(repo, calculationSvc, logger.Named(baseLogger, "svc.lifecycle"))
	batchSvc := batchsvc.NewService(repo, recomputer, logger.Named(baseLogger, "svc.batch"),
		batchsvc.WithStaleAfter(cfg.Breeding.StaleAfter),
		batchsvc.WithWorkers(cfg.Breeding.BatchConcurrency),
		batchsvc.WithCacheInvalidator(calculationSvc))

	var sheetExporter reportingsvc.SheetExporter
	if cfg.Sheets.Enabled() {
		reportSheet, err := sheets.NewReportSheet(context.Background(), cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetExporter = reportSheet
	} else {
		baseLogger.Info("google sheets export disabled")
	}
	reportingSvc := reportingsvc.NewService(lifecycleSvc, sheetExporter, reportStore, cfg.Breeding.OwnerID, loc, logger.Named(baseLogger, "svc.reporting"))

	var (
		webhookHandler *handlers.WebhookHandler
		sender         scheduler.Sender
	)
	if cfg.WhatsApp.Enabled() {
		dispatcher := commandsvc.NewService(lifecycleSvc, calculationSvc, cfg.Breeding.OwnerID, logger.Named(baseLogger, "svc.commands"))
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, dispatcher, logger.Named(baseLogger, "svc.whatsapp"))
		webhookHandler = handlers.NewWebhookHandler(messagingSvc, logger.Named(baseLogger, "handlers.whatsapp"))
		sender = messagingSvc
	} else {
		baseLogger.Warn("whatsapp credentials missing, messaging disabled")
	}

	breedingHandler := handlers.NewBreedingHandler(lifecycleSvc, calculationSvc, batchSvc, logger.Named(baseLogger, "handlers.breeding"))
	engine := router.New(breedingHandler, webhookHandler, logger.Named(baseLogger, "router"))

	sched := scheduler.NewScheduler(*cfg, loc, batchSvc, calculationSvc, reportingSvc, sender, logger.Named(baseLogger, "scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
