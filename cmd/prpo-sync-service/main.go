package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/config"
	"bitbucket.org/mmdatafocus/prpo_backend/inbox"
	"bitbucket.org/mmdatafocus/prpo_backend/models"
	"bitbucket.org/mmdatafocus/prpo_backend/notify"
	"bitbucket.org/mmdatafocus/prpo_backend/workflow"
	"github.com/sirupsen/logrus"
)

const cycleLockTTL = 5 * time.Minute

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	config.ConfigureLogger(settings.LogLevel, settings.LogFile)
	logger := config.GetLogger()

	// Cloud Run and systemd both stop the service with SIGTERM.
	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	store := models.NewGormStore()

	// The status port opens before the databases so the probe sees the process early.
	srv := &http.Server{
		Addr:    ":" + settings.StatusPort,
		Handler: newStatusRouter(store),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	if err := config.ConnectDatabaseWithRetry(ctx, settings); err != nil {
		config.LogError(logger, "main.go", "main", "connecting databases", nil, err)
		os.Exit(1)
	}
	if err := config.ConnectRedisWithRetry(ctx, settings.RedisAddress); err != nil {
		config.LogError(logger, "main.go", "main", "connecting redis", nil, err)
		os.Exit(1)
	}

	if !config.SkipMigrations() {
		if err := models.MigrateTable(config.GetDB(), config.GetStagingDB()); err != nil {
			config.LogError(logger, "main.go", "main", "migrating tables", nil, err)
			os.Exit(1)
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	notifier, err := notify.NewNotifier(ctx, settings.AlertTopic)
	if err != nil {
		config.LogError(logger, "main.go", "main", "creating notifier", settings.AlertTopic, err)
		os.Exit(1)
	}

	connections := &config.Connections{Settings: settings}
	cycle := &workflow.Cycle{
		Store: store,
		Inboxes: []*inbox.Inbox{
			inbox.New(settings.PrDataPath, models.DocumentTypePr, settings.PrPassphrase),
			inbox.New(settings.PoDataPath, models.DocumentTypePo, settings.PoPassphrase),
		},
		Notifier:    notifier,
		Connections: connections,
		Location:    settings.Location(),
		Logger:      logger,
	}
	if settings.ReportBucket != "" {
		cycle.Archive = workflow.GCSArchive{Bucket: settings.ReportBucket}
	}

	loop := &workflow.Loop{
		Cycle:          cycle,
		Connections:    connections,
		Lock:           workflow.NewCycleLock(config.GetRedisLock(), cycleLockTTL),
		PollInterval:   settings.PollInterval,
		ReconnectDelay: settings.ReconnectDelay,
		Logger:         logger,
	}

	logger.WithFields(logrus.Fields{
		"pr_data_path": settings.PrDataPath,
		"po_data_path": settings.PoDataPath,
		"interval":     settings.PollInterval.String(),
	}).Info("prpo sync service started")

	loopErrCh := make(chan error, 1)
	go func() {
		loopErrCh <- loop.Run(ctx)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-loopErrCh:
		if err != nil {
			config.LogError(logger, "main.go", "main", "processing loop stopped", nil, err)
			exitCode = 1
		}
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("status server stopped unexpectedly: " + err.Error())
			exitCode = 1
		}
	}
	stopSignals()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
