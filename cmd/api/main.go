package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // Timezone data for minimal containers

	// Application Layer
	appService "lecturealarm/internal/application/service"

	// Infrastructure Layer
	"lecturealarm/internal/infrastructure/database/sqlite"
	lineClient "lecturealarm/internal/infrastructure/line"
	"lecturealarm/internal/infrastructure/metrics"
	"lecturealarm/internal/infrastructure/scheduler"

	// Interfaces Layer
	"lecturealarm/internal/interfaces/api/handler"
	"lecturealarm/internal/interfaces/api/router"

	// Packages
	"lecturealarm/internal/pkg/config"
	appLogger "lecturealarm/internal/pkg/logger"

	"github.com/benbjohnson/clock"
	_ "github.com/joho/godotenv/autoload" // Automatically load .env file
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func gracefulShutdown(apiServer *http.Server, alarmService appService.AlarmService, db *gorm.DB, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	// Restore default behavior on the interrupt signal so a second one kills the process.
	stop()
	log.Println("Shutting down gracefully, press Ctrl+C again to force")

	// Stop the scheduler first so no alarm fires against a closed database
	log.Println("Stopping scheduler...")
	alarmService.Stop()
	log.Println("Scheduler stopped.")

	// Shutdown HTTP server
	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	// Close database connection
	log.Println("Closing database connection...")
	if err := sqlite.CloseDB(db); err != nil {
		log.Printf("Error closing database: %v", err)
	} else {
		log.Println("Database connection closed.")
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		appLogger.New().Error("Failed to load configuration", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		appLogger.New().Error("Invalid configuration", err)
		os.Exit(1)
	}

	appLog := appLogger.NewWithLevel(os.Stdout, appLogger.ParseLevel(cfg.LogLevel))
	appLog.Info("Logger initialized.")
	loc := cfg.Location()

	// --- Infrastructure ---
	db, err := sqlite.NewDB(cfg.DBPath, cfg.SQLDebug)
	if err != nil {
		appLog.Error("Failed to open database", err)
		os.Exit(1)
	}
	userRepo := sqlite.NewUserRepository(db)
	lectureRepo := sqlite.NewLectureRepository(db)
	appLog.Info("Database and repositories initialized.")

	line, err := lineClient.NewClient(cfg.ChannelSecret, cfg.ChannelAccessToken, appLog)
	if err != nil {
		appLog.Error("Failed to create LINE client", err)
		os.Exit(1)
	}
	cronScheduler := scheduler.NewScheduler(loc, appLog)

	var sink metrics.Sink = metrics.NoopSink{}
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		sink = metrics.NewPrometheusSink(registry)
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
		appLog.Info(fmt.Sprintf("Metrics enabled at %s", cfg.MetricsPath))
	}

	// --- Application Services ---
	clk := clock.New()
	windowStart, windowEnd, windowEnabled := cfg.Window()
	window := appService.Window{Start: windowStart, End: windowEnd, Enabled: windowEnabled}

	alarmSvc := appService.NewAlarmService(cronScheduler, userRepo, lectureRepo, line, clk, sink, appLog)
	userSvc := appService.NewUserService(userRepo, lectureRepo, alarmSvc, cfg.DefaultLeadMinutes, appLog)
	lectureSvc := appService.NewLectureService(lectureRepo, userSvc, alarmSvc, window, loc, clk, sink, appLog)
	appLog.Info("Application services initialized.")

	// --- Initialize Schedules ---
	appLog.Info("Initializing alarm schedules...")
	if err := alarmSvc.InitializeSchedules(context.Background()); err != nil {
		// Log the error but continue starting the server
		appLog.Error("Failed to initialize schedules on startup", err)
	} else {
		appLog.Info("Alarm schedules initialized.")
	}

	// --- API Handlers ---
	lineHandler := handler.NewLineHandler(line, userSvc, lectureSvc, alarmSvc, clk, loc, cfg.AdminUserID, appLog)
	lectureHandler := handler.NewLectureHandler(userSvc, lectureSvc, alarmSvc, clk, loc, appLog)
	appLog.Info("API handlers initialized.")

	// --- Router ---
	routerCfg := &router.Config{
		LineHandler:    lineHandler,
		LectureHandler: lectureHandler,
		MetricsHandler: metricsHandler,
		MetricsPath:    cfg.MetricsPath,
		Logger:         appLog,
	}
	echoRouter := router.NewRouter(routerCfg)

	// --- HTTP Server ---
	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      echoRouter,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// --- Start Server & Shutdown Handling ---
	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, alarmSvc, db, done)

	appLog.Info(fmt.Sprintf("Server starting on port %d (timezone %s)", cfg.Port, loc))
	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		appLog.Error("HTTP server ListenAndServe error", err)
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for graceful shutdown signal
	<-done
	appLog.Info("Graceful shutdown complete.")
}
