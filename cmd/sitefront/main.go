package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sitefront "github.com/rathix/sitefront"
	appconfig "github.com/rathix/sitefront/internal/config"
	"github.com/rathix/sitefront/internal/server"
)

const defaultAddr = ":8080"

// Version is injected at build time using ldflags.
var Version = "(unknown)"

// config holds all daemon configuration.
type config struct {
	ShowVersion    bool
	ListenAddr     string
	ConfigFile     string
	LogFormat      string
	HealthInterval time.Duration
	StartupTimeout time.Duration
	GracePeriod    time.Duration
}

func main() {
	// Quick check for version flag before full config loading
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			fmt.Printf("sitefront version %s\n", Version)
			return
		}
	}

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig parses flags and environment variables with precedence: Flag > Env > Default.
// Duration flags left empty defer to the sites file's health section.
func loadConfig(args []string) (config, error) {
	fs := flag.NewFlagSet("sitefront", flag.ContinueOnError)

	cfg := config{}
	fs.BoolVar(&cfg.ShowVersion, "version", false, "print version and exit")
	fs.StringVar(&cfg.ListenAddr, "listen-addr", getEnv("LISTEN_ADDR", defaultAddr), "listen address")
	fs.StringVar(&cfg.ConfigFile, "config", getEnv("CONFIG_FILE", "sites.yaml"), "path to sites YAML file")
	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "json"), "log format (json or text)")

	healthIntervalStr := getEnv("HEALTH_INTERVAL", "")
	fs.StringVar(&healthIntervalStr, "health-interval", healthIntervalStr, "dev server health check interval")

	startupTimeoutStr := getEnv("STARTUP_TIMEOUT", "")
	fs.StringVar(&startupTimeoutStr, "startup-timeout", startupTimeoutStr, "dev server startup timeout")

	gracePeriodStr := getEnv("GRACE_PERIOD", "")
	fs.StringVar(&gracePeriodStr, "grace-period", gracePeriodStr, "how long a request waits for a starting dev server")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	var err error
	if cfg.HealthInterval, err = parseOptionalDuration(healthIntervalStr, "health interval"); err != nil {
		return config{}, err
	}
	if cfg.StartupTimeout, err = parseOptionalDuration(startupTimeoutStr, "startup timeout"); err != nil {
		return config{}, err
	}
	if cfg.GracePeriod, err = parseOptionalDuration(gracePeriodStr, "grace period"); err != nil {
		return config{}, err
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return config{}, fmt.Errorf("unsupported log format %q: must be \"json\" or \"text\"", cfg.LogFormat)
	}

	return cfg, nil
}

func parseOptionalDuration(s, what string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", what, s)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func setupLogger(format string) *slog.Logger {
	return setupLoggerWithWriter(format, os.Stdout)
}

func setupLoggerWithWriter(format string, writer io.Writer) *slog.Logger {
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(writer, nil)
	} else {
		handler = slog.NewJSONHandler(writer, nil)
	}
	return slog.New(handler)
}

// run starts the server and handles graceful shutdown.
func run(ctx context.Context, cfg config) error {
	logger := setupLogger(cfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting sitefront", "version", Version)

	siteCfg, configErrs := appconfig.Load(cfg.ConfigFile)
	if len(configErrs) > 0 {
		for _, e := range configErrs {
			slog.Error("Config error", "error", e)
		}
		return fmt.Errorf("config file %s has %d error(s)", cfg.ConfigFile, len(configErrs))
	}
	slog.Info("Config loaded", "sites", len(siteCfg.Sites))

	interval, startupTimeout, grace, err := siteCfg.Health.Durations()
	if err != nil {
		return err
	}
	// Duration flags override the file's health section.
	if cfg.HealthInterval > 0 {
		interval = cfg.HealthInterval
	}
	if cfg.StartupTimeout > 0 {
		startupTimeout = cfg.StartupTimeout
	}
	if cfg.GracePeriod > 0 {
		grace = cfg.GracePeriod
	}

	builder := sitefront.New().
		Logger(logger).
		HealthInterval(interval).
		StartupTimeout(startupTimeout).
		GracePeriod(grace)

	for _, s := range siteCfg.Sites {
		site := sitefront.Site{
			Pattern:      s.Pattern,
			FallbackFile: s.FallbackFile,
			DevTarget:    s.DevTarget,
			DevCommand:   s.DevCommand,
			WorkingDir:   s.WorkingDir,
		}
		if s.AssetsDir != "" {
			site.Assets = os.DirFS(s.AssetsDir)
		}
		builder.Site(site)
	}

	app, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build serving configuration: %w", err)
	}
	defer app.Shutdown()

	// The serving configuration is immutable once built, so the watcher
	// only validates edits and tells the operator whether a restart will
	// pick them up cleanly.
	watcherCtx, watcherCancel := context.WithCancel(ctx)
	defer watcherCancel()

	configWatcher := appconfig.NewWatcher(cfg.ConfigFile, func(newCfg *appconfig.Config, errs []error) {
		if len(errs) > 0 {
			for _, e := range errs {
				slog.Warn("Config change has errors, restart would fail", "error", e)
			}
			return
		}
		slog.Info("Config changed, restart to apply", "sites", len(newCfg.Sites))
	}, logger)
	go func() {
		if err := configWatcher.Run(watcherCtx); err != nil && watcherCtx.Err() == nil {
			slog.Warn("config watcher stopped with error", "error", err)
		}
	}()

	handler := server.RequestLogger(logger, app.Handler(nil))

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	// Channel to catch server errors
	serverError := make(chan error, 1)

	go func() {
		slog.Info("Listening", "addr", cfg.ListenAddr, "mode", app.Mode().String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	// Wait for interruption or server error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down gracefully...")
		watcherCancel()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		app.Shutdown()
		slog.Info("Connections drained")
		slog.Info("Server stopped")
	case err := <-serverError:
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
