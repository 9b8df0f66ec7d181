package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/linguahub/vocabimage/internal/bootstrap"
	"github.com/linguahub/vocabimage/internal/config"
	"github.com/linguahub/vocabimage/internal/database"
	"github.com/linguahub/vocabimage/internal/inference/gateway"
	"github.com/linguahub/vocabimage/internal/server"
	"github.com/linguahub/vocabimage/internal/storage"
	"github.com/linguahub/vocabimage/internal/vocab"
	"github.com/linguahub/vocabimage/schemas"
)

const databaseConnectAttempts = 5

var (
	configFile    string
	runMigrations bool
)

func main() {
	var debugMode bool
	rootCmd := &cobra.Command{
		Use:           "vocabimage-server",
		Short:         "Vocabulary illustration HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(debugMode)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&runMigrations, "migrate", false, "apply embedded schema migrations on startup")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app := bootstrap.New()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn: cfg.Sentry.DSN,
		}); err != nil {
			return fmt.Errorf("sentry.Init() > %w", err)
		}
		app.AddShutdownHook(func(ctx context.Context) error {
			sentry.Flush(2 * time.Second)
			return nil
		})
	}

	db, err := database.Connect(ctx, cfg.Database, databaseConnectAttempts)
	if err != nil {
		return fmt.Errorf("database.Connect() > %w", err)
	}
	app.AddShutdownHook(func(ctx context.Context) error {
		return db.Close()
	})

	if runMigrations {
		if err := database.Migrate(ctx, db, schemas.Migrations); err != nil {
			return fmt.Errorf("database.Migrate() > %w", err)
		}
	}

	inferenceClient := gateway.NewClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.APIKey,
		cfg.Gateway.Model,
		time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second,
	)
	app.AddShutdownHook(func(ctx context.Context) error {
		return inferenceClient.Close()
	})

	uploader := storage.NewBucketClient(cfg.Storage.BaseURL, cfg.Storage.ServiceKey, cfg.Storage.Bucket)
	app.AddShutdownHook(func(ctx context.Context) error {
		return uploader.Close()
	})

	handler := server.NewImageHandler(vocab.NewDBRepository(db), inferenceClient, uploader)

	mux := http.NewServeMux()
	mux.Handle("/v1/vocabulary-images", handler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.CORSMiddleware(h2c.NewHandler(mux, &http2.Server{})),
	}
	app.AddShutdownHook(srv.Shutdown)

	return app.Run(ctx, func(ctx context.Context) error {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}

// setupLogger configures the default logger based on debug mode
func setupLogger(debugMode bool) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})),
	)
}
