// Seasonality CLI
// Fetches daily price history for a symbol into an append-only CSV
// store and computes multi-year seasonality curves for a target year.
//
// Usage:
//
//	seasonality fetch --symbol GC=F --file gold.csv
//	seasonality calculate --file gold.csv --year 2025
//
// Both subcommands print a single JSON envelope to stdout. Handled
// errors are reported as {"success":false,...} with exit code 0;
// only a missing subcommand exits non-zero.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/futurescope/futuresdata/internal/analytics"
	"github.com/futurescope/futuresdata/internal/config"
	apperrors "github.com/futurescope/futuresdata/internal/errors"
	"github.com/futurescope/futuresdata/internal/fetch"
	"github.com/futurescope/futuresdata/internal/freshness"
	"github.com/futurescope/futuresdata/internal/logger"
	"github.com/futurescope/futuresdata/internal/models"
	"github.com/futurescope/futuresdata/internal/report"
	"github.com/futurescope/futuresdata/internal/storage"
)

const (
	appName    = "seasonality"
	version    = "1.0.0"
	configFile = "futuresdata.json"
)

const exitUsageError = 1

type app struct {
	config *config.Config
	logs   *logger.Manager
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitUsageError)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logger.NewTrace(logger.WithDataset(ctx, "prices"))

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "fetch", "calculate":
		a, err := newApp()
		if err != nil {
			emit(report.NewFailure(err.Error()))
			return
		}
		defer a.logs.Close()

		if command == "fetch" {
			a.runFetch(ctx, args)
		} else {
			a.runCalculate(ctx, args)
		}
	case "--version", "-v":
		fmt.Printf("%s version %s\n", appName, version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n\n", command)
		printUsage()
		os.Exit(exitUsageError)
	}
}

// newApp loads configuration and sets up logging.
func newApp() (*app, error) {
	cfgPath := os.Getenv("FUTURESDATA_CONFIG")
	if cfgPath == "" {
		cfgPath = configFile
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logs, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	return &app{config: cfg, logs: logs}, nil
}

// emit writes the result envelope to stdout.
func emit(envelope any) {
	if err := report.Write(os.Stdout, envelope); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write result: %v\n", err)
	}
}

// createPriceStore selects the configured store backend for a file.
func (a *app) createPriceStore(path string) storage.PriceStorage {
	if a.config.Storage.Type == "memory" {
		return storage.NewMemoryPriceStore()
	}
	return storage.NewCSVPriceStore(path, a.logs.Component("storage"))
}

// runFetch handles the 'fetch' subcommand: freshness gate, remote
// fetch, incremental append.
func (a *app) runFetch(ctx context.Context, args []string) {
	flags, err := parseFetchFlags(args)
	if err != nil {
		emit(report.NewFailure(err.Error()))
		return
	}
	if flags.Help {
		printFetchHelp()
		return
	}
	if flags.Symbol == "" || flags.File == "" {
		emit(report.NewFailure("--symbol and --file are required"))
		return
	}

	ctx = logger.WithSymbol(logger.WithOperation(ctx, "fetch"), flags.Symbol)
	log := a.logs.WithContext(ctx)

	store := a.createPriceStore(flags.File)
	last, err := store.LastDate(ctx)
	if err != nil {
		log.Error("failed to read store watermark", "error", err)
		emit(report.FailureFromError(err))
		return
	}

	now := time.Now().UTC()
	decision := freshness.ForPrices(last, now, a.config.EpochDate())
	log.Info("freshness decision", "fetch_needed", decision.FetchNeeded, "reason", decision.Reason)

	if !decision.FetchNeeded {
		emit(report.NewFetch("Data is already up to date", 0, formatDate(last)))
		return
	}

	opts := []fetch.YahooOption{fetch.WithYahooLogger(a.logs.Component("fetch"))}
	if a.config.Fetch.PriceBaseURL != "" {
		opts = append(opts, fetch.WithYahooBaseURL(a.config.Fetch.PriceBaseURL))
	}
	client := fetch.NewYahooClient(opts...)

	records, err := client.DailyHistory(ctx, flags.Symbol, decision.Start, models.Day(now))
	if err != nil {
		log.Error("price fetch failed", "error", err)
		emit(report.FailureFromError(err))
		return
	}
	if len(records) == 0 {
		emit(report.NewFetch("No new data available", 0, formatDate(last)))
		return
	}

	added, err := store.Append(ctx, records)
	if err != nil {
		log.Error("store append failed", "error", err)
		emit(report.FailureFromError(err))
		return
	}
	if added == 0 {
		emit(report.NewFetch("No new data available", 0, formatDate(last)))
		return
	}

	newLast := records[len(records)-1].Date
	emit(report.NewFetch(fmt.Sprintf("Successfully updated %s", flags.Symbol), added, formatDate(&newLast)))
}

// runCalculate handles the 'calculate' subcommand: read the full
// store and compute the seasonality curves.
func (a *app) runCalculate(ctx context.Context, args []string) {
	flags, err := parseCalculateFlags(args)
	if err != nil {
		emit(report.NewFailure(err.Error()))
		return
	}
	if flags.Help {
		printCalculateHelp()
		return
	}
	if flags.File == "" {
		emit(report.NewFailure("--file is required"))
		return
	}
	if flags.Year == 0 {
		emit(report.NewFailure("--year is required"))
		return
	}

	ctx = logger.WithOperation(ctx, "calculate")
	log := a.logs.WithContext(ctx)

	store := a.createPriceStore(flags.File)
	if !store.Exists() {
		emit(report.NewFailure("Data file not found. Please fetch data first."))
		return
	}

	records, err := store.ReadAll(ctx)
	if err != nil {
		log.Error("failed to read store", "error", err)
		emit(report.FailureFromError(apperrors.Wrap(apperrors.KindIO, err, "Error reading data file")))
		return
	}

	result, err := analytics.Seasonality(records, flags.Year)
	if err != nil {
		log.Error("seasonality computation failed", "error", err)
		emit(report.FailureFromError(err))
		return
	}

	log.Info("seasonality computed",
		"target_year", flags.Year,
		"rows", len(records))
	emit(report.NewSeasonality(result))
}

// formatDate formats an optional date for the fetch envelope.
func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(models.DateFormat)
	return &s
}

// Flag structures and parsing

type fetchFlags struct {
	Symbol string
	File   string
	Help   bool
}

type calculateFlags struct {
	File string
	Year int
	Help bool
}

func parseFetchFlags(args []string) (*fetchFlags, error) {
	flags := &fetchFlags{}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--symbol", "-s":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--symbol requires a value")
			}
			flags.Symbol = args[i+1]
			i++
		case "--file", "-f":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--file requires a value")
			}
			flags.File = args[i+1]
			i++
		case "--help", "-h":
			flags.Help = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", args[i])
		}
	}
	return flags, nil
}

func parseCalculateFlags(args []string) (*calculateFlags, error) {
	flags := &calculateFlags{}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--file", "-f":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--file requires a value")
			}
			flags.File = args[i+1]
			i++
		case "--year", "-y":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--year requires a value")
			}
			year, err := strconv.Atoi(args[i+1])
			if err != nil {
				return nil, fmt.Errorf("invalid year value: %w", err)
			}
			flags.Year = year
			i++
		case "--help", "-h":
			flags.Help = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", args[i])
		}
	}
	return flags, nil
}

// Help and usage

func printUsage() {
	fmt.Printf(`%s - Futures seasonality engine v%s

USAGE:
    %s <command> [options]

COMMANDS:
    fetch       Fetch daily price history into the store
    calculate   Compute seasonality curves for a target year

GLOBAL OPTIONS:
    --help, -h     Show help information
    --version, -v  Show version information

EXAMPLES:
    # Top up the gold price store
    %s fetch --symbol GC=F --file gold.csv

    # Compute 2/5/10-year seasonal averages against 2025
    %s calculate --file gold.csv --year 2025

OUTPUT:
    One JSON envelope on stdout. Check the "success" field; handled
    errors are reported in the envelope, not via the exit code.

CONFIGURATION:
    Config file: %s (JSON), or FUTURESDATA_CONFIG to point elsewhere.
    Environment: FUTURESDATA_* variables override file settings.
`, appName, version, appName, appName, appName, configFile)
}

func printFetchHelp() {
	fmt.Printf(`%s fetch - Fetch daily price history

USAGE:
    %s fetch --symbol <SYM> --file <PATH>

OPTIONS:
    --symbol, -s <symbol>  Ticker symbol (required), e.g. GC=F
    --file, -f <path>      CSV store path (required)
    --help, -h             Show this help message

NOTES:
    - A missing store is backfilled from the configured epoch
    - An up-to-date store results in rows_added = 0, which is success
`, appName, appName)
}

func printCalculateHelp() {
	fmt.Printf(`%s calculate - Compute seasonality curves

USAGE:
    %s calculate --file <PATH> --year <YYYY>

OPTIONS:
    --file, -f <path>  CSV store path (required)
    --year, -y <year>  Target year to analyze (required)
    --help, -h         Show this help message

NOTES:
    - avg_2yr/avg_5yr/avg_10yr are dense 365-day percentage curves
    - a window is empty when the store history is too short for it
    - "actual" carries null for days the target year has not reached
`, appName, appName)
}
