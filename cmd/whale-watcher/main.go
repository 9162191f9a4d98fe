// Whale Watcher tracks SEC 13F institutional holdings.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/whalewatch/whale-watcher/internal/api"
	"github.com/whalewatch/whale-watcher/internal/config"
	"github.com/whalewatch/whale-watcher/internal/database"
	"github.com/whalewatch/whale-watcher/internal/edgar"
	"github.com/whalewatch/whale-watcher/internal/parser"
	"github.com/whalewatch/whale-watcher/internal/service"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

// Global state shared by commands, populated in PersistentPreRunE.
var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "whale-watcher",
	Short: "Track institutional 13F filings and quarter-over-quarter position changes",
	Long: `Whale Watcher ingests quarterly 13F-HR filings from SEC EDGAR for a
configured set of institutional investors, stores their holdings, and
reconciles each quarter against the previous one to classify every
position as NEW, CLOSED, INCREASED, DECREASED, or UNCHANGED.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		verbose, _ := cmd.Flags().GetBool("verbose")

		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = newLogger(cfg.Logging.Level, verbose)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/whales.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// newLogger builds the process logger. The config level applies unless
// --verbose forces debug.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zapLevel := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		zapLevel = parsed
	}
	if verbose {
		zapLevel = zapcore.DebugLevel
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapCfg.Build()
}

// openDatabase opens the configured database and, unless skipped, applies
// pending migrations.
func openDatabase(skipInit bool) (*sql.DB, error) {
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if !skipInit {
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return db, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("whale-watcher %s (%s)\n", version, commit)
	},
}

// --- Run Command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, parse, and reconcile 13F filings for the configured whales",
	RunE: func(cmd *cobra.Command, args []string) error {
		whales, _ := cmd.Flags().GetStringArray("whale")
		ciks, _ := cmd.Flags().GetStringArray("cik")
		limit, _ := cmd.Flags().GetInt("limit")
		skipInit, _ := cmd.Flags().GetBool("skip-init")

		db, err := openDatabase(skipInit)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ingest := newIngestService(db)
		return ingest.Run(ctx, service.RunOptions{
			Whales: whales,
			CIKs:   ciks,
			Limit:  limit,
		})
	},
}

func init() {
	runCmd.Flags().StringArray("whale", nil, "process only the named whale (repeatable)")
	runCmd.Flags().StringArray("cik", nil, "process only the given CIK (repeatable)")
	runCmd.Flags().Int("limit", 0, "maximum new filings to ingest per whale (0 = no limit)")
	runCmd.Flags().Bool("skip-init", false, "skip schema migration on startup")
}

// --- Reconcile Command ---

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute position changes for already-loaded filings",
	Long: `Recompute position changes for filings already in the database.
By default only processed filings with no position changes are
reconciled; --all recomputes every processed filing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		db, err := openDatabase(false)
		if err != nil {
			return err
		}
		defer db.Close()

		ingest := newIngestService(db)
		count, err := ingest.ReconcileFilings(all)
		if err != nil {
			return err
		}

		logger.Info("reconciliation complete", zap.Int("filings", count))
		return nil
	},
}

func init() {
	reconcileCmd.Flags().Bool("all", false, "recompute every processed filing, not just unreconciled ones")
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP query API",
	RunE: func(cmd *cobra.Command, args []string) error {
		schedule, _ := cmd.Flags().GetString("refresh-schedule")

		db, err := openDatabase(false)
		if err != nil {
			return err
		}
		defer db.Close()

		filerService := service.NewFilerService(db)
		changeService := service.NewPositionChangeService(db)
		router := api.NewRouter(db, filerService, changeService, cfg, logger)

		server := &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Optional scheduled re-ingestion alongside the API.
		var scheduler *cron.Cron
		if schedule != "" {
			ingest := newIngestService(db)
			scheduler = cron.New()
			_, err := scheduler.AddFunc(schedule, func() {
				if err := ingest.Run(context.Background(), service.RunOptions{}); err != nil {
					logger.Error("scheduled refresh failed", zap.Error(err))
				}
			})
			if err != nil {
				return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
			}
			scheduler.Start()
			logger.Info("scheduled refresh enabled", zap.String("schedule", schedule))
		}

		go func() {
			logger.Info("starting server", zap.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("server failed to start", zap.Error(err))
			}
		}()

		// Wait for interrupt signal for graceful shutdown
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info("shutting down server")

		if scheduler != nil {
			<-scheduler.Stop().Done()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		logger.Info("server exited")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("refresh-schedule", "", "cron spec for periodic re-ingestion (e.g. \"0 6 * * *\")")
}

// --- Migrate Command ---

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(false)
		if err != nil {
			return err
		}
		defer db.Close()

		logger.Info("migrations applied", zap.String("database", cfg.Database.Path))
		return nil
	},
}

// newIngestService wires the full ingestion pipeline over the given
// database connection.
func newIngestService(db *sql.DB) *service.IngestService {
	client := edgar.NewHTTPClient(
		cfg.UserAgent,
		cfg.RateLimit.RequestsPerSecond,
		cfg.RateLimit.MaxRetries,
		logger,
	)
	return service.NewIngestService(
		db,
		client,
		parser.NewInfoTableParser(logger),
		service.NewReconciliationService(logger),
		cfg,
		logger,
	)
}
