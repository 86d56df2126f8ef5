// Command flashwatch streams Base L2 flashblocks, decodes their
// transactions, and optionally runs an alert rule engine with a
// dashboard HTTP surface.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ortegarod/flashwatch/internal/config"
	"github.com/ortegarod/flashwatch/internal/httpapi"
	"github.com/ortegarod/flashwatch/internal/logging"
	"github.com/ortegarod/flashwatch/internal/pipeline"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var wsURL, logLevel, logFile string

	root := &cobra.Command{
		Use:          "flashwatch",
		Short:        "Real-time Base L2 flashblock monitor and alerting",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&wsURL, "url", "u", config.DefaultWSURL, "Base node WebSocket URL (must support flashblocks)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "optional rotating log file path")

	root.AddCommand(alertCmd(&wsURL, &logLevel, &logFile))
	root.AddCommand(serveCmd(&wsURL, &logLevel, &logFile))
	return root
}

func alertCmd(wsURL, logLevel, logFile *string) *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Watch for transactions matching rules and alert via log/webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.AppConfig{
				WSURL:       *wsURL,
				RulesPath:   rulesPath,
				LogLevel:    *logLevel,
				LogFilePath: *logFile,
			}.WithDefaults()
			return runPipeline(cmd.Context(), cfg, nil)
		},
	}
	cmd.Flags().StringVarP(&rulesPath, "rules", "R", "", "path to rules TOML config file (required)")
	cmd.MarkFlagRequired("rules")
	return cmd
}

func serveCmd(wsURL, logLevel, logFile *string) *cobra.Command {
	var rulesPath, dbPath, bind, staticDir string
	var port uint16

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Launch the dashboard HTTP surface with live flashblock relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.AppConfig{
				WSURL:       *wsURL,
				RulesPath:   rulesPath,
				DBPath:      dbPath,
				Bind:        bind,
				Port:        port,
				StaticDir:   staticDir,
				LogLevel:    *logLevel,
				LogFilePath: *logFile,
			}.WithDefaults()
			return runPipeline(cmd.Context(), cfg, startHTTPServer)
		},
	}
	cmd.Flags().StringVarP(&rulesPath, "rules", "R", "", "path to alert rules TOML config (enables alerting)")
	cmd.Flags().StringVar(&dbPath, "db", config.DefaultDB, "path to SQLite database for alert storage")
	cmd.Flags().StringVar(&bind, "bind", config.DefaultBind, "bind address")
	cmd.Flags().Uint16VarP(&port, "port", "p", config.DefaultPort, "port for the dashboard HTTP server")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "optional directory serving a prebuilt dashboard frontend")
	return cmd
}

// surfaceStarter launches whatever additional background server a
// command needs beyond the pipeline itself (only `serve` uses this).
type surfaceStarter func(ctx context.Context, cfg config.AppConfig, p *pipeline.Pipeline, logger *zap.Logger) error

func runPipeline(ctx context.Context, cfg config.AppConfig, surface surfaceStarter) error {
	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, FilePath: cfg.LogFilePath})
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	defer logger.Sync()

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if surface == nil {
		return p.Run(ctx)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- p.Run(ctx) }()
	go func() { errCh <- surface(ctx, cfg, p, logger) }()

	err = <-errCh
	stop()
	<-errCh
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func startHTTPServer(ctx context.Context, cfg config.AppConfig, p *pipeline.Pipeline, logger *zap.Logger) error {
	srv := &httpapi.Server{Hub: p.Hub, Store: p.Store, Logger: logger, StaticDir: cfg.StaticDir}
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler: srv.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("dashboard listening", zap.String("addr", httpSrv.Addr))
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard http server: %w", err)
	}
	return nil
}
