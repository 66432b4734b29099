// COT CLI
// Fetches weekly Commitment of Traders positioning reports for a
// symbol into an append-only CSV store and computes trailing-window
// positioning metrics.
//
// Usage:
//
//	cot fetch --symbol GC=F --file gold_cot.csv
//	cot calculate --file gold_cot.csv --years 1
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
	appName    = "cot"
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
	ctx = logger.NewTrace(logger.WithDataset(ctx, "positioning"))

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

// createStore selects the configured store backend for a file.
func (a *app) createStore(path string) storage.PositioningStorage {
	if a.config.Storage.Type == "memory" {
		return storage.NewMemoryPositioningStore()
	}
	return storage.NewCSVPositioningStore(path, a.logs.Component("storage"))
}

// runFetch handles the 'fetch' subcommand. The symbol table gate runs
// before anything else: symbols without positioning coverage are
// rejected immediately, no network call attempted.
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

	market, ok := a.config.MarketName(flags.Symbol)
	if !ok {
		log.Warn("symbol has no positioning coverage")
		emit(report.NewFailure(fmt.Sprintf(
			"COT data not available for %s. Only available for physical commodity futures.", flags.Symbol)))
		return
	}

	store := a.createStore(flags.File)
	last, err := store.LastDate(ctx)
	if err != nil {
		log.Error("failed to read store watermark", "error", err)
		emit(report.FailureFromError(err))
		return
	}

	now := time.Now().UTC()
	decision := freshness.ForPositioning(last, now, a.config.Fetch.ReportYears, a.config.StaleAfter())
	log.Info("freshness decision", "fetch_needed", decision.FetchNeeded, "reason", decision.Reason)

	if !decision.FetchNeeded {
		emit(report.NewFetch("COT data is current", 0, formatDate(last)))
		return
	}

	opts := []fetch.CFTCOption{fetch.WithCFTCLogger(a.logs.Component("fetch"))}
	if a.config.Fetch.ReportBaseURL != "" {
		opts = append(opts, fetch.WithCFTCBaseURL(a.config.Fetch.ReportBaseURL))
	}
	client := fetch.NewCFTCClient(opts...)

	records, failures := client.ReportYears(ctx, decision.ReportYears, market)
	for _, failure := range failures {
		log.Warn("report year skipped", "year", failure.Year, "error", failure.Err)
	}
	if len(records) == 0 {
		emit(report.NewFailure(fmt.Sprintf("No COT data found for %s", market)))
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
	emit(report.NewFetch("Successfully fetched COT data", added, formatDate(&newLast)))
}

// runCalculate handles the 'calculate' subcommand.
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
	if flags.Years < 1 || flags.Years > 3 {
		emit(report.NewFailure("--years must be 1, 2 or 3"))
		return
	}

	ctx = logger.WithOperation(ctx, "calculate")
	log := a.logs.WithContext(ctx)

	store := a.createStore(flags.File)
	if !store.Exists() {
		emit(report.NewFailure("COT data file not found. Please fetch data first."))
		return
	}

	records, err := store.ReadAll(ctx)
	if err != nil {
		log.Error("failed to read store", "error", err)
		emit(report.FailureFromError(apperrors.Wrap(apperrors.KindIO, err, "Error reading COT data file")))
		return
	}

	series, err := analytics.PositioningMetrics(records, flags.Years, time.Now().UTC())
	if err != nil {
		log.Error("positioning metrics failed", "error", err)
		emit(report.FailureFromError(err))
		return
	}

	log.Info("positioning metrics computed", "years", flags.Years, "rows", len(series.Dates))
	emit(report.NewPositioning(series))
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
	File  string
	Years int
	Help  bool
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
	flags := &calculateFlags{Years: 1}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--file", "-f":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--file requires a value")
			}
			flags.File = args[i+1]
			i++
		case "--years", "-y":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--years requires a value")
			}
			years, err := strconv.Atoi(args[i+1])
			if err != nil {
				return nil, fmt.Errorf("invalid years value: %w", err)
			}
			flags.Years = years
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
	fmt.Printf(`%s - Commitment of Traders positioning engine v%s

USAGE:
    %s <command> [options]

COMMANDS:
    fetch       Fetch weekly positioning reports into the store
    calculate   Compute trailing-window positioning metrics

GLOBAL OPTIONS:
    --help, -h     Show help information
    --version, -v  Show version information

EXAMPLES:
    # Top up the gold positioning store
    %s fetch --symbol GC=F --file gold_cot.csv

    # One year of metrics with week-over-week changes
    %s calculate --file gold_cot.csv --years 1

OUTPUT:
    One JSON envelope on stdout. Check the "success" field; handled
    errors are reported in the envelope, not via the exit code.

CONFIGURATION:
    Config file: %s (JSON), or FUTURESDATA_CONFIG to point elsewhere.
    The symbols table in the config maps tickers to report market
    names; symbols outside the table are rejected before any fetch.
`, appName, version, appName, appName, appName, configFile)
}

func printFetchHelp() {
	fmt.Printf(`%s fetch - Fetch weekly positioning reports

USAGE:
    %s fetch --symbol <SYM> --file <PATH>

OPTIONS:
    --symbol, -s <symbol>  Ticker symbol (required), e.g. GC=F
    --file, -f <path>      CSV store path (required)
    --help, -h             Show this help message

NOTES:
    - Only symbols in the configured table have report coverage
    - Report years that fail to download are skipped; the fetch
      succeeds if at least one year yields data
    - A store younger than the staleness threshold is not refetched
`, appName, appName)
}

func printCalculateHelp() {
	fmt.Printf(`%s calculate - Compute positioning metrics

USAGE:
    %s calculate --file <PATH> --years <1|2|3>

OPTIONS:
    --file, -f <path>    CSV store path (required)
    --years, -y <years>  Trailing window in years (default: 1)
    --help, -h           Show this help message

NOTES:
    - Week-over-week changes are computed over the full stored series,
      so the first row of the window can carry a valid change
    - Change fields are null only where no prior report exists at all
`, appName, appName)
}
