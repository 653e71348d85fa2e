package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vegasq/mapcheck/internal/config"
	"github.com/vegasq/mapcheck/internal/logging"
	"github.com/vegasq/mapcheck/reader"
	"github.com/vegasq/mapcheck/scenario"
)

// Exit codes
const (
	exitOK       = 0
	exitProblems = 1 // a scenario did not pass or could not be built
	exitError    = 2 // bad invocation, unreadable input or no warehouse
)

// errProblems marks a run that completed but found defects
var errProblems = errors.New("validation found problems")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and maps the outcome to an exit code
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errProblems):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitProblems
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}

// app carries what every command shares
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	configPath string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "mapcheck",
		Short: "Validate source-to-target data mappings in the warehouse",
		Long: `mapcheck reads validation scenarios from a mapping sheet (xlsx, csv, parquet
or yaml), translates each scenario's derivation logic into one comparison
query and runs it against the warehouse. Every joined row is classified as
MATCH, MISMATCH, SOURCE_NULL, TARGET_NULL or BOTH_NULL and each scenario is
rated PASS, WARN, FAIL or INFO.

Settings come from --config, MAPCHECK_* environment variables and flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.String("project", "", "default project for bare table names")
	flags.String("dataset", "", "default dataset (schema for postgres) for bare table names")
	flags.String("dialect", "bigquery", "SQL dialect: bigquery, postgres or sqlite")
	flags.String("driver", "", "database/sql driver (defaults to the dialect's driver)")
	flags.String("dsn", "", "warehouse connection string")
	flags.Duration("timeout", 5*time.Minute, "per-scenario query timeout (0 disables it)")
	flags.Bool("strict", false, "treat untranslatable derivation logic as a configuration error")
	flags.Float64("tolerance", 0.01, "numeric match tolerance")
	flags.Float64("warn-percent", 95, "lowest match percentage rated WARN")
	flags.Int("sample-size", 5, "mismatching rows returned per scenario")
	flags.String("sheet", "", "worksheet holding the scenarios (default: first sheet)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("store-url", "", "Postgres URL for outcome history")

	root.AddCommand(newSQLCmd(a), newCheckCmd(a), newRunCmd(a), newHistoryCmd(a))
	return root
}

// setup loads the configuration and builds the logger
func (a *app) setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(a.stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// load reads the scenario sheet. A non-empty only keeps the scenario with
// that name.
func (a *app) load(cfg config.Config, path, only string) ([]scenario.Spec, []error, error) {
	specs, rowErrs, err := reader.LoadScenarios(path, reader.Options{Sheet: cfg.Sheet})
	if err != nil {
		return nil, nil, err
	}
	if only == "" {
		return specs, rowErrs, nil
	}

	var kept []scenario.Spec
	for _, spec := range specs {
		if strings.EqualFold(spec.Name, only) {
			kept = append(kept, spec)
		}
	}
	var keptErrs []error
	for _, rowErr := range rowErrs {
		var cfgErr *scenario.ConfigError
		if errors.As(rowErr, &cfgErr) && strings.EqualFold(cfgErr.Scenario, only) {
			keptErrs = append(keptErrs, rowErr)
		}
	}
	if len(kept) == 0 && len(keptErrs) == 0 {
		return nil, nil, fmt.Errorf("no scenario named %q in %s", only, path)
	}
	return kept, keptErrs, nil
}
