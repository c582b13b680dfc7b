// Package main provides the mood journal assistant. It runs in the terminal
// for a single local user, either as a full-screen TUI or as a plain
// line-based console.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/entrhq/moodjournal/pkg/analysis"
	"github.com/entrhq/moodjournal/pkg/bot"
	"github.com/entrhq/moodjournal/pkg/config"
	"github.com/entrhq/moodjournal/pkg/credentials"
	"github.com/entrhq/moodjournal/pkg/executor"
	"github.com/entrhq/moodjournal/pkg/executor/cli"
	"github.com/entrhq/moodjournal/pkg/executor/tui"
	"github.com/entrhq/moodjournal/pkg/i18n"
	"github.com/entrhq/moodjournal/pkg/llm/openai"
	"github.com/entrhq/moodjournal/pkg/logging"
	"github.com/entrhq/moodjournal/pkg/metrics"
	"github.com/entrhq/moodjournal/pkg/storage"
)

const version = "0.1.0"

// Flags holds the command line flags. Everything else comes from the
// config file and the environment.
type Flags struct {
	ConfigPath  string
	DataDir     string
	LogLevel    string
	Plain       bool
	ShowVersion bool
}

func main() {
	flags := parseFlags()

	if flags.ShowVersion {
		fmt.Printf("moodjournal v%s\n", version)
		return
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if runErr := run(ctx, cfg, flags); runErr != nil {
		cancel()
		log.Fatalf("Application error: %v", runErr)
	}
	cancel()
}

func parseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigPath, "config", "", "Path to a YAML config file (optional)")
	flag.StringVar(&f.DataDir, "data-dir", "", "Directory holding the journal (overrides config)")
	flag.StringVar(&f.LogLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flag.BoolVar(&f.Plain, "plain", false, "Use the line-based console instead of the TUI")
	flag.BoolVar(&f.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "moodjournal - a mood and dream journal in your terminal\n\n")
		fmt.Fprintf(os.Stderr, "Usage: moodjournal [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MOODJOURNAL_DATA_DIR         Journal directory\n")
		fmt.Fprintf(os.Stderr, "  MOODJOURNAL_LANGUAGE         en or ru\n")
		fmt.Fprintf(os.Stderr, "  MOODJOURNAL_METRICS_ADDR     Serve Prometheus metrics on host:port\n")
		fmt.Fprintf(os.Stderr, "  MOODJOURNAL_OPENAI_API_KEY   Enables dream analysis (or OPENAI_API_KEY)\n")
		fmt.Fprintf(os.Stderr, "  MOODJOURNAL_OPENAI_BASE_URL  OpenAI-compatible endpoint\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  moodjournal\n")
		fmt.Fprintf(os.Stderr, "  moodjournal -plain -data-dir ./journal\n")
		fmt.Fprintf(os.Stderr, "  moodjournal -config ~/.moodjournal/config.yaml\n")
	}

	flag.Parse()
	return f
}

// run wires the components and blocks in the chosen front end.
func run(ctx context.Context, cfg *config.Config, flags *Flags) error {
	if cfg.LogDir != "" {
		logging.Configure(cfg.LogDir)
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	logger, err := logging.NewLogger("moodjournal")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging to stderr: %v\n", err)
	}
	defer logger.Close()
	logger.Infof("starting v%s, data in %s", version, cfg.DataDir)

	loc, err := i18n.Init(cfg.Language)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}

	cache := credentials.NewCache()
	store := storage.NewStore(cfg.DataDir,
		storage.WithPasswords(cache),
		storage.WithLogger(logger.With("storage")),
	)

	analyzer, err := buildAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Errorf("metrics server: %v", err)
			}
		}()
	}

	chartDir := filepath.Join(os.TempDir(), "moodjournal-charts")
	if err := os.MkdirAll(chartDir, 0o700); err != nil {
		return fmt.Errorf("failed to create chart directory: %w", err)
	}

	console := executor.NewConsole(cfg.ConsoleUserID)
	b := bot.New(store, cache, analyzer, console, loc,
		bot.WithLogger(logger.With("bot")),
		bot.WithAuthorizer(cfg.IsAuthorized),
		bot.WithTimeouts(cfg.Timeouts),
		bot.WithChartDir(chartDir),
	)
	defer b.Close()

	if flags.Plain {
		return cli.NewExecutor(b, console).Run(ctx)
	}
	return tui.NewExecutor(b, console, logger.With("tui")).Run(ctx)
}

// buildAnalyzer returns the LLM analyzer, or a disabled one when no API key
// is configured.
func buildAnalyzer(cfg *config.Config, logger *logging.Logger) (analysis.Analyzer, error) {
	key := cfg.OpenAI.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		logger.Infof("no API key configured, dream analysis disabled")
		return analysis.Disabled{}, nil
	}

	opts := []openai.ProviderOption{
		openai.WithModel(cfg.OpenAI.Model),
		openai.WithMaxTokens(cfg.OpenAI.MaxTokens),
		openai.WithTemperature(cfg.OpenAI.Temperature),
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	provider, err := openai.NewProvider(key, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	logger.Infof("dream analysis via %s at %s", provider.GetModel(), provider.GetBaseURL())

	return analysis.NewLLMAnalyzer(provider,
		analysis.WithTokenBudget(cfg.OpenAI.InputTokenBudget),
		analysis.WithTimeout(cfg.Timeouts.Analysis),
		analysis.WithBreaker(cfg.OpenAI.BreakerFailures, cfg.OpenAI.BreakerCooldown),
		analysis.WithTokenizer(analysis.NewTokenizer()),
		analysis.WithLogger(logger.With("analysis")),
	), nil
}
