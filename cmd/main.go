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

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"paycom/internal/audit"
	"paycom/internal/bootstrap"
	"paycom/internal/config"
	cronpkg "paycom/internal/cron"
	"paycom/internal/lock"
	"paycom/internal/notify"
	"paycom/internal/order"
	"paycom/internal/paycom"
	"paycom/internal/repository"
	"paycom/internal/router"
)

func main() {
	root := &cobra.Command{
		Use:           "paycom",
		Short:         "Paycom merchant API endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the merchant endpoint",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe()
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate()
			},
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	db, err := config.NewDatabase(&cfg.Database, cfg.Server.IsDevelopment(), logger)
	if err != nil {
		return err
	}
	if err := bootstrap.Migrate(db); err != nil {
		return err
	}
	logger.Info("Schema migration completed")
	return nil
}

func runServe() error {
	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// --- Logger ---
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database, cfg.Server.IsDevelopment(), logger)
	if err != nil {
		return err
	}
	if err := bootstrap.Migrate(db); err != nil {
		return fmt.Errorf("failed to bootstrap database schema: %w", err)
	}

	// --- Transaction lock (Redis with in-memory fallback) ---
	locker, lockErr := lock.NewLocker(cfg.Redis.Addr, cfg.Redis.Pass, cfg.Redis.DB, cfg.Paycom.LockTTL)
	if lockErr != nil {
		logger.Warn("Redis unavailable for transaction locks, using in-memory fallback", zap.Error(lockErr))
	}

	// --- Audit sinks ---
	sinks := audit.Multi{
		audit.NewLogSink(logger),
		repository.NewAuditRepository(db, logger),
	}
	var sender notify.Sender
	var reporter *notify.Reporter
	if cfg.Telegram.Enabled() {
		tg, err := notify.NewTelegramSender(cfg.Telegram.Token, cfg.Telegram.ReportChatID)
		if err != nil {
			logger.Warn("Telegram reports disabled", zap.Error(err))
		} else {
			sender = tg
			reporter = notify.NewReporter(tg, logger)
			sinks = append(sinks, reporter)
		}
	}

	// --- Dispatcher ---
	transactions := repository.NewTransactionRepository(db, sinks)
	orders, err := order.NewProvider(cfg.Order, db)
	if err != nil {
		return err
	}
	creds := paycom.NewCredentials(cfg.Paycom.KeyFile, cfg.Paycom.Key)
	app := paycom.NewApplication(
		paycom.NewGate(cfg.Paycom.Login, creds),
		transactions,
		orders,
		logger,
		paycom.WithLocker(locker),
	)

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true
	router.Setup(e, db, app, logger, router.Options{
		Endpoint:   cfg.Paycom.Endpoint,
		AllowedIPs: cfg.Paycom.AllowedIPs,
	})

	// --- Cron Scheduler ---
	scheduler := cronpkg.New(cfg.Cron.StaleReport, transactions, sender, logger)
	if err := scheduler.Start(); err != nil {
		return err
	}

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting Paycom endpoint",
			zap.String("addr", addr),
			zap.String("endpoint", cfg.Paycom.Endpoint),
			zap.String("merchant_id", cfg.Paycom.MerchantID),
			zap.String("order_provider", orders.Name()),
		)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Stop cron
	ctx := scheduler.Stop()
	<-ctx.Done()

	// Stop HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if reporter != nil {
		reporter.Wait()
	}

	logger.Info("Server exited")
	return nil
}
