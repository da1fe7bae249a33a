package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
	"github.com/Aidin1998/mindset_analyzer/internal/config"
	"github.com/Aidin1998/mindset_analyzer/pkg/logger"
	"github.com/Aidin1998/mindset_analyzer/pkg/tracing"
)

const usage = `usage: mindset <command> [flags]

commands:
  collect   simulate one day of measurements and store them
  train     train a model on a stored day and save the artifact
  analyze   predict a stored day with the saved artifact
  runs      list recorded training runs
`

type command func(ctx context.Context, app *app, args []string) error

var commands = map[string]command{
	"collect": runCollect,
	"train":   runTrain,
	"analyze": runAnalyze,
	"runs":    runRuns,
}

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	os.Exit(run())
}

func run() int {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	name, args := os.Args[1], os.Args[2:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		return 2
	}

	// Bootstrap logger until the configured one is available
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	bootLogger, err := logger.NewLogger(logLevel, "console")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	configPaths := configPathsFromArgs(args)
	cfg, err := config.Load(bootLogger, configPaths...)
	if err != nil {
		bootLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	_ = bootLogger.Sync()

	zapLogger, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{Enabled: cfg.Monitoring.TracingEnabled, Writer: os.Stderr})
	if err != nil {
		zapLogger.Fatal("Failed to set up tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLogger.Error("Tracing shutdown failed", zap.Error(err))
		}
	}()

	if addr := cfg.Monitoring.MetricsAddr; addr != "" {
		srv := serveMetrics(addr, zapLogger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := cmd(ctx, &app{cfg: cfg, logger: zapLogger}, args); err != nil {
		pd := apperrors.ProblemFor(err, name)
		zapLogger.Error("Command failed",
			zap.String("command", name),
			zap.String("problem", pd.Type),
			zap.String("title", pd.Title),
			zap.Int("status", pd.Status),
			zap.Any("fields", pd.Errors),
			zap.Error(err),
		)
		return 1
	}
	return 0
}

// configPathsFromArgs extracts --config/-c before the command's own flag
// set parses the rest.
func configPathsFromArgs(args []string) []string {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	paths := fs.StringSliceP("config", "c", nil, "config file (repeatable)")
	_ = fs.Parse(args)
	return *paths
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
