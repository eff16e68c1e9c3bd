package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scrapekit/go-scrape-reviews/browser"
	"github.com/scrapekit/go-scrape-reviews/config"
	"github.com/scrapekit/go-scrape-reviews/models"
	"github.com/scrapekit/go-scrape-reviews/pipeline"
	"github.com/scrapekit/go-scrape-reviews/plugin"
	"github.com/scrapekit/go-scrape-reviews/scraper"
	"gopkg.in/natefinch/lumberjack.v2"

	_ "github.com/scrapekit/go-scrape-reviews/plugin/seek"
)

// main only converts run's result into a process exit code so that all
// deferred teardown has fired before os.Exit.
func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.DefaultConfig()
	if err := applyEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	settingsPath := flag.String("settings", envOr("SCRAPER_SETTINGS", ""), "Optional YAML settings file")
	entriesFile := flag.String("entries", cfg.EntriesFile, "JSON entries file mapping names to entry URLs")
	pluginName := flag.String("plugin", cfg.Plugin, "Site plugin to scrape with")
	driver := flag.String("driver", cfg.Driver, "Session driver: chrome or static")
	rateDelayS := flag.Int("rate-delay", int(cfg.RateLimitDelay/time.Second), "Delay between entries (seconds)")
	navTimeoutS := flag.Int("nav-timeout", int(cfg.NavTimeout/time.Second), "Navigation wait timeout (seconds)")
	strict := flag.Bool("strict", cfg.DataStrict, "Abort an entry on any data mismatch")
	browserHeader := flag.Bool("browser-header", cfg.BrowserVisible, "Run the browser with a visible window")
	browserLogging := flag.Bool("browser-logging", cfg.BrowserLogging, "Trace browser driver actions")
	outputFile := flag.String("output", cfg.OutputFile, "Output file path (overrides generated names)")
	outputFormat := flag.String("format", cfg.OutputFormat, "Output format: csv, json, or dual")
	outputBase := flag.String("output-base", cfg.OutputNameBase, "Stem for generated output names")
	pickOutputName := flag.Bool("pick-output-name", cfg.PickOutputName, "Prompt for the output name instead of generating one")
	verbose := flag.Bool("v", cfg.Verbose, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	logFile := flag.String("log-file", cfg.LogFile, "Rotating log file path (stdout only when empty)")

	flag.Parse()

	if *settingsPath != "" {
		if err := config.LoadSettings(*settingsPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "settings: %v\n", err)
			return 1
		}
	}

	// Explicit flags win over the settings file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "entries":
			cfg.EntriesFile = *entriesFile
		case "plugin":
			cfg.Plugin = *pluginName
		case "driver":
			cfg.Driver = *driver
		case "rate-delay":
			cfg.RateLimitDelay = time.Duration(*rateDelayS) * time.Second
		case "nav-timeout":
			cfg.NavTimeout = time.Duration(*navTimeoutS) * time.Second
		case "strict":
			cfg.DataStrict = *strict
		case "browser-header":
			cfg.BrowserVisible = *browserHeader
		case "browser-logging":
			cfg.BrowserLogging = *browserLogging
		case "output":
			cfg.OutputFile = *outputFile
		case "format":
			cfg.OutputFormat = strings.ToLower(*outputFormat)
		case "output-base":
			cfg.OutputNameBase = *outputBase
		case "pick-output-name":
			cfg.PickOutputName = *pickOutputName
		case "v":
			cfg.Verbose = *verbose
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "log-file":
			cfg.LogFile = *logFile
		}
	})

	logger, level := newLogger(cfg.Verbose, cfg.LogFile)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}

	plug, err := plugin.New(cfg.Plugin)
	if err != nil {
		slog.Error("selecting plugin", slog.Any("error", err))
		return 1
	}

	entries, err := config.LoadEntries(cfg.EntriesFile, plug.Validators())
	if err != nil {
		slog.Error("loading entries", slog.Any("error", err))
		return 1
	}
	slog.Info("loaded entries",
		slog.String("file", cfg.EntriesFile),
		slog.Int("count", len(entries)),
	)

	outputPath, err := resolveOutputPath(cfg)
	if err != nil {
		slog.Error("resolving output name", slog.Any("error", err))
		return 1
	}

	writer, err := createWriter(cfg.OutputFormat, outputPath, scraper.OutputColumns(plug))
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		return 1
	}

	sess, err := createSession(cfg, plug)
	if err != nil {
		slog.Error("starting session", slog.Any("error", err))
		if cerr := writer.Close(); cerr != nil {
			slog.Error("close writer", slog.Any("error", cerr))
		}
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current entry")
	}()

	return scrape(ctx, cfg, plug, entries, sess, writer, outputPath)
}

// scrape owns the session and the writer: both are released on every return
// path, the browser before the output file.
func scrape(ctx context.Context, cfg *config.Config, plug plugin.Plugin, entries []models.EntryTarget, sess browser.Session, writer pipeline.OutputWriter, outputPath string) int {
	defer func() {
		if err := sess.Close(); err != nil {
			slog.Error("close session", slog.Any("error", err))
		}
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctrl, err := scraper.NewController(cfg, plug, sess)
	if err != nil {
		slog.Error("initialising controller", slog.Any("error", err))
		return 1
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(ctrl.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	p := pipeline.NewPipeline(ctx, writer, cfg)
	p.Start(1)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	result, runErr := ctrl.Run(ctx, entries, p)
	if runErr != nil {
		slog.Warn("run interrupted", slog.Any("error", runErr))
	}

	if err := p.Close(); err != nil {
		slog.Error("pipeline shutdown failed", slog.Any("error", err))
		return 1
	}

	if result.RecordCount > 0 {
		if err := writer.Validate(); err != nil {
			slog.Error("output validation failed", slog.Any("error", err))
			return 1
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, outputPath)
	if runErr != nil || len(result.Failed()) == result.EntryCount {
		return 1
	}
	return 0
}

func applyEnv(cfg *config.Config) error {
	if value, ok := config.EnvString("SCRAPER_ENTRIES"); ok {
		cfg.EntriesFile = value
	}
	if value, ok := config.EnvString("SCRAPER_PLUGIN"); ok {
		cfg.Plugin = value
	}
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		cfg.OutputFile = value
	}
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if value, ok, err := config.EnvInt("SCRAPER_RATE_DELAY"); err != nil {
		return fmt.Errorf("invalid SCRAPER_RATE_DELAY: %w", err)
	} else if ok {
		cfg.RateLimitDelay = time.Duration(value) * time.Second
	}
	if value, ok, err := config.EnvBool("SCRAPER_STRICT"); err != nil {
		return fmt.Errorf("invalid SCRAPER_STRICT: %w", err)
	} else if ok {
		cfg.DataStrict = value
	}
	return nil
}

func envOr(name, fallback string) string {
	if value, ok := config.EnvString(name); ok {
		return value
	}
	return fallback
}

func createSession(cfg *config.Config, plug plugin.Plugin) (browser.Session, error) {
	switch cfg.Driver {
	case "chrome":
		return browser.NewChromeSession(browser.ChromeOptions{
			Visible: cfg.BrowserVisible,
			Trace:   cfg.BrowserLogging,
			Lang:    plug.Parsers().BrowserLang(),
		})
	case "static":
		return browser.NewStaticSession(browser.StaticOptions{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.HTTPTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}

// resolveOutputPath picks the output file name: an explicit path wins, then
// an interactive prompt when requested, otherwise stem + timestamp.
func resolveOutputPath(cfg *config.Config) (string, error) {
	if cfg.OutputFile != "" {
		return cfg.OutputFile, nil
	}
	ext := ".csv"
	if cfg.OutputFormat == "json" {
		ext = ".jsonl"
	}
	if cfg.PickOutputName {
		fmt.Print("Output name: ")
		reader := bufio.NewReader(os.Stdin)
		name, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("read output name: %w", err)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return "", fmt.Errorf("output name cannot be empty")
		}
		return filepath.Join("output", name+ext), nil
	}
	stamp := time.Now().Format("2006-01-02-150405")
	return filepath.Join("output", cfg.OutputNameBase+"-"+stamp+ext), nil
}

func createWriter(format, filename string, columns []string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename, columns)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return pipeline.NewDualWriter(filename, jsonFilename, columns)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.RunResult, outputPath string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("  Entries:       %d\n", result.EntryCount)
	fmt.Printf("  Records:       %d\n", result.RecordCount)
	fmt.Printf("  Succeeded:     %d\n", len(result.Succeeded()))
	fmt.Printf("  Warned:        %d\n", len(result.Warned()))
	fmt.Printf("  Failed:        %d\n", len(result.Failed()))
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Printf("  Output file:   %s\n", outputPath)

	for _, res := range result.Results {
		switch {
		case res.Failed:
			fmt.Printf("  [failed] %s: %v\n", res.Entry.Name, res.Err)
		case len(res.Warnings) > 0:
			fmt.Printf("  [warned] %s:\n", res.Entry.Name)
			for _, warning := range res.Warnings {
				fmt.Printf("           %s\n", warning)
			}
		}
	}
	fmt.Println(separator)
}

func newLogger(verbose bool, logFile string) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch {
	case logFile != "":
		sink := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
		}
		handler = slog.NewJSONHandler(io.MultiWriter(os.Stdout, sink), opts)
	case isTerminal(os.Stdout):
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
