package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/personalcms/web/internal/config"
	"github.com/personalcms/web/internal/http"
	"github.com/personalcms/web/internal/logger"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "personalcms-web",
		Short: "Server-rendered frontend for the personal CMS",
		Long: `Serves the landing page, the OAuth callback and the per-user dashboard.
Authentication is delegated to the backend API; this process only keeps the
session cookie and a cache of resolved profiles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), envFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", envOrDefault("ENV_FILE", ".env"), "dotenv file to load before reading configuration")
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, envFile string) error {
	// Optional; missing files are reported once the logger is up
	envErr := godotenv.Load(envFile)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.InitLogger(cfg.Environment, cfg.LogLevel)

	if envErr != nil {
		slog.Debug("No env file loaded", "path", envFile, "error", envErr)
	} else {
		slog.Info("Loaded env file", "path", envFile)
	}

	slog.Info("Configuration loaded",
		"environment", cfg.Environment,
		"address", cfg.ServerAddress,
		"api_url", cfg.API.BaseURL,
		"secure_cookie", cfg.Auth.SecureCookie,
		"metrics_enabled", cfg.Metrics.Enabled,
		"version", version,
	)

	server := http.NewServer(cfg)
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Println(version)
				return
			}
			fmt.Printf("Version: %s\nCommit:  %s\n", version, commit)
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")

	return cmd
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
