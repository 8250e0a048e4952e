package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/kaiwen/taskline/internal/application/dedup"
	"github.com/kaiwen/taskline/internal/application/dispatcher"
	"github.com/kaiwen/taskline/internal/application/service"
	"github.com/kaiwen/taskline/internal/config"
	"github.com/kaiwen/taskline/internal/infrastructure/backup"
	"github.com/kaiwen/taskline/internal/infrastructure/clock"
	"github.com/kaiwen/taskline/internal/infrastructure/external/calendar"
	"github.com/kaiwen/taskline/internal/infrastructure/external/line"
	"github.com/kaiwen/taskline/internal/infrastructure/persistence/repository"
	"github.com/kaiwen/taskline/internal/infrastructure/persistence/sqlite"
	"github.com/kaiwen/taskline/internal/infrastructure/report"
	httpiface "github.com/kaiwen/taskline/internal/interfaces/http"
	"github.com/kaiwen/taskline/internal/scheduler"
	"github.com/kaiwen/taskline/pkg/database"
	"github.com/kaiwen/taskline/pkg/utils"
)

func main() {
	// Local overrides for development; missing file is fine.
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting taskline",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Persistence
	txDB := sqlite.NewDB(db.DB, logger)
	taskRepo := repository.NewTaskRepository(db.DB, logger)
	templateRepo := repository.NewTemplateRepository(db.DB, logger)
	groupRepo := repository.NewGroupRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	kpiRepo := repository.NewKPIRepository(db.DB, logger)
	fileLinker := repository.NewFileLinkRepository(db.DB, logger)

	// Collaborators
	sysClock := clock.NewSystemClock()
	notifier := line.NewNotifier(line.Config{
		ChannelToken: cfg.Line.ChannelToken,
		APIBaseURL:   cfg.Line.APIBaseURL,
		APITimeout:   cfg.Line.APITimeout,
		RateLimit:    cfg.Line.RateLimit,
		RateBurst:    cfg.Line.RateBurst,
	}, logger)
	calendarSync := calendar.NewNoopSync(logger)
	backupRunner := backup.NewRunner(backup.Config{
		DatabasePath: cfg.Database.Path,
		OutputDir:    cfg.Backup.OutputDir,
		Keep:         cfg.Backup.Keep,
	}, logger)
	exporter := report.NewExcelExporter(kpiRepo, cfg.Reports.ExcelOutputDir, logger)

	// Application services
	kvLogger := utils.NewKVLogger(logger)
	eventDispatcher := dispatcher.NewDispatcher(dispatcher.WithLogger(kvLogger))
	defer eventDispatcher.Close()

	taskService := service.NewTaskService(taskRepo, txDB, sysClock, fileLinker, eventDispatcher, kvLogger)
	recurringService := service.NewRecurringService(templateRepo, taskService, kvLogger)
	reportService := service.NewReportService(taskRepo, groupRepo, kpiRepo, sysClock, kvLogger)

	dedupCache := dedup.NewMemoryCache()
	notificationService := service.NewNotificationService(
		taskRepo, notifier, calendarSync, dedupCache, sysClock, kvLogger)
	notificationService.RegisterHandlers(eventDispatcher)

	// Scheduler
	sched, err := scheduler.New(cfg.Scheduler.Timezone, kvLogger)
	if err != nil {
		logger.Fatal("Failed to initialize scheduler", zap.Error(err))
	}

	jobs := scheduler.NewJobs(
		taskService, recurringService, notificationService, reportService,
		exporter, backupRunner,
		taskRepo, groupRepo, userRepo, sysClock,
		cfg.Reminders.Intervals, kvLogger)
	if err := jobs.RegisterAll(sched, cfg.Scheduler); err != nil {
		logger.Fatal("Failed to register scheduled jobs", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Scheduler.Enabled {
		sched.Start(ctx)
	} else {
		logger.Warn("Scheduler disabled by configuration")
	}

	// HTTP admin API
	server := httpiface.NewServer(httpiface.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, taskService, sched, jobs, kvLogger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("Scheduler forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
