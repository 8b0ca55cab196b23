package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/config"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/db"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/handlers"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/logger"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/readmodel"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/notify"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/payout"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/tasker"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/withdrawal"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tasksfy-admin",
		Short:         "Tasksfy admin backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	root.AddCommand(serveCmd(), migrateCmd())
	return root
}

// bootstrap loads config and opens the logger and the store.
func bootstrap() (config.Config, *zap.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		return cfg, nil, nil, err
	}
	return cfg, log, func() { _ = log.Sync() }, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and normalize legacy status values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, done, err := bootstrap()
			if err != nil {
				return err
			}
			defer done()

			gdb, err := db.Connect(cfg.DBDSN, log)
			if err != nil {
				return err
			}
			if err := db.Migrate(cmd.Context(), gdb); err != nil {
				return err
			}
			log.Info("migration complete")
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var autoMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, done, err := bootstrap()
			if err != nil {
				return err
			}
			defer done()
			return serve(cmd.Context(), cfg, log, autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "run migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger, autoMigrate bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg.DBDSN, log)
	if err != nil {
		return err
	}
	if autoMigrate {
		if err := db.Migrate(ctx, gdb); err != nil {
			return err
		}
	}

	hub := realtime.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	var (
		rdb       *redis.Client
		publisher notify.Publisher = notify.HubPublisher{Hub: hub}
	)
	if cfg.RedisAddr != "" {
		rdb = realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		publisher = notify.RedisPublisher{RDB: rdb}
		go realtime.Relay(ctx, rdb, hub, log.Named("relay"))
		log.Info("redis notifications enabled", zap.String("addr", cfg.RedisAddr))
	} else {
		log.Warn("REDIS_ADDR not set, notifications reach this instance only")
	}

	var rail payout.Rail = payout.LocalIssuer{}
	if cfg.PayoutBaseURL != "" {
		rail = payout.NewClient(cfg.PayoutBaseURL, cfg.PayoutAPIKey, cfg.PayoutPrivateKey, cfg.PayoutMerchantCode)
	} else {
		log.Warn("PAYOUT_BASE_URL not set, withdrawal references are issued locally")
	}

	notifier := notify.NewService(gdb, publisher, cfg.DBTimeout, log)
	app := handlers.NewApp(handlers.Deps{
		DB:          gdb,
		RDB:         rdb,
		Hub:         hub,
		Taskers:     tasker.NewService(gdb, notifier, cfg.DBTimeout, log),
		Withdrawals: withdrawal.NewService(gdb, rail, notifier, cfg.DBTimeout, log),
		Notify:      notifier,
		Reader:      readmodel.NewReader(gdb, cfg.DBTimeout),
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Timeout:     cfg.DBTimeout,
		Log:         log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		errCh <- app.Listen(":" + cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
