package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vegasq/mapcheck/internal/config"
	"github.com/vegasq/mapcheck/internal/objectstore"
	"github.com/vegasq/mapcheck/outcome"
	"github.com/vegasq/mapcheck/output"
	"github.com/vegasq/mapcheck/runner"
	"github.com/vegasq/mapcheck/scenario"
	"github.com/vegasq/mapcheck/sqlgen"
	"github.com/vegasq/mapcheck/store"
)

func newSQLCmd(a *app) *cobra.Command {
	var only string
	cmd := &cobra.Command{
		Use:   "sql FILE",
		Short: "Print the comparison query of each scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.setup(cmd)
			if err != nil {
				return err
			}
			builder, err := newBuilder(cfg)
			if err != nil {
				return err
			}
			specs, rowErrs, err := a.load(cfg, args[0], only)
			if err != nil {
				return err
			}

			failed := len(rowErrs)
			for _, rowErr := range rowErrs {
				fmt.Fprintf(a.stderr, "skipped: %v\n", rowErr)
			}
			for i := range specs {
				text, err := builder.Build(&specs[i])
				if err != nil {
					failed++
					fmt.Fprintf(a.stderr, "skipped: %v\n", err)
					continue
				}
				fmt.Fprintf(a.stdout, "%s;\n\n", text)
			}

			if failed > 0 {
				return fmt.Errorf("%d scenario(s) could not be translated: %w", failed, errProblems)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&only, "scenario", "", "only this scenario")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Validate scenarios and report how each derivation is translated, without running anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.setup(cmd)
			if err != nil {
				return err
			}
			builder, err := newBuilder(cfg)
			if err != nil {
				return err
			}
			specs, rowErrs, err := a.load(cfg, args[0], "")
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(a.stdout)
			table.SetHeader([]string{"Row", "Scenario", "Type", "Mode", "Derivation", "Result"})
			table.SetAutoWrapText(false)
			table.SetAutoFormatHeaders(false)

			problems := 0
			for _, rowErr := range rowErrs {
				problems++
				o := rowOutcome(rowErr)
				table.Append([]string{fmt.Sprint(o.Row), o.Scenario, "", "", "", rowErr.Error()})
			}
			for i := range specs {
				spec := &specs[i]
				row := []string{fmt.Sprint(spec.Row), spec.Name, spec.ValidationType.String()}

				plan, err := builder.Plan(spec)
				if err != nil {
					problems++
					table.Append(append(row, "", "", err.Error()))
					continue
				}

				kind, result := "none", "ok"
				if plan.Expression != nil && !plan.Expression.Empty() {
					kind = plan.Expression.Kind.String()
				}
				if plan.Expression != nil && plan.Expression.Fallback {
					kind = "passthrough"
					result = "untranslated: " + plan.Expression.Err.Error()
				}
				table.Append(append(row, plan.Mode.String(), kind, result))
			}
			table.Render()

			if problems > 0 {
				return fmt.Errorf("%d of %d scenario(s) are invalid: %w", problems, len(specs)+len(rowErrs), errProblems)
			}
			return nil
		},
	}
}

type runFlags struct {
	only   string
	format string
	output string
	export string
	save   bool
	upload bool
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run every scenario against the warehouse and report the outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args[0], f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.only, "scenario", "", "only this scenario")
	flags.StringVarP(&f.format, "format", "f", "table", "output format: table, json, csv or xlsx")
	flags.StringVarP(&f.output, "output", "o", "", "write the report to this file instead of stdout")
	flags.StringVar(&f.export, "export", "", "also write an Excel workbook to this path")
	flags.BoolVar(&f.save, "save", false, "record outcomes in the history store (needs store.url)")
	flags.BoolVar(&f.upload, "upload", false, "upload the Excel workbook to the object store")
	return cmd
}

func (a *app) run(cmd *cobra.Command, path string, f runFlags) error {
	ctx := cmd.Context()
	cfg, logger, err := a.setup(cmd)
	if err != nil {
		return err
	}
	builder, err := newBuilder(cfg)
	if err != nil {
		return err
	}
	specs, rowErrs, err := a.load(cfg, path, f.only)
	if err != nil {
		return err
	}

	out := a.stdout
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", f.output, err)
		}
		defer file.Close()
		out = file
	}
	formatter, err := output.ByName(f.format, out)
	if err != nil {
		return err
	}

	whCfg, err := cfg.Warehouse()
	if err != nil {
		return err
	}
	exec, err := runner.Open(ctx, whCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to the warehouse: %w", err)
	}
	defer exec.Close()

	opts := runner.Options{Timeout: cfg.Timeout, Logger: logger}
	if f.save {
		st, err := store.Open(ctx, store.DefaultConfig(cfg.Store.URL))
		if err != nil {
			return fmt.Errorf("failed to open the history store: %w", err)
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		opts.Sink = st
	}

	runID := uuid.NewString()
	logger.Info("starting run", slog.String("run_id", runID), slog.String("file", path),
		slog.Int("scenarios", len(specs)), slog.Int("invalid_rows", len(rowErrs)))

	outcomes := make([]outcome.Outcome, 0, len(specs)+len(rowErrs))
	for _, rowErr := range rowErrs {
		o := rowOutcome(rowErr)
		if opts.Sink != nil {
			if err := opts.Sink.Save(ctx, o); err != nil {
				logger.Error("failed to save outcome", slog.String("scenario", o.Scenario), slog.String("error", err.Error()))
			}
		}
		outcomes = append(outcomes, o)
	}
	outcomes = append(outcomes, runner.New(builder, exec, opts).RunAll(ctx, specs)...)
	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].Row < outcomes[j].Row })

	if err := formatter.Format(outcomes); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if f.export != "" || f.upload {
		if err := a.export(ctx, cfg, logger, outcomes, f, runID); err != nil {
			return err
		}
	}

	summary := outcome.Summarize(outcomes)
	logger.Info("run finished", slog.String("run_id", runID),
		slog.Int("scenarios", summary.Scenarios),
		slog.Int("problems", summary.Problems()),
		slog.Float64("success_rate", summary.SuccessRate))
	if summary.Problems() > 0 {
		return fmt.Errorf("%d of %d scenario(s) did not pass: %w", summary.Problems(), summary.Scenarios, errProblems)
	}
	return nil
}

// export writes the workbook to disk and, when asked, to the object store
func (a *app) export(ctx context.Context, cfg config.Config, logger *slog.Logger, outcomes []outcome.Outcome, f runFlags, runID string) error {
	var buf bytes.Buffer
	if err := output.NewExcelFormatter(&buf).Format(outcomes); err != nil {
		return err
	}

	name := "validation_report.xlsx"
	if f.export != "" {
		if err := os.WriteFile(f.export, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.export, err)
		}
		logger.Info("report written", slog.String("path", f.export))
		name = filepath.Base(f.export)
	}

	if !f.upload {
		return nil
	}
	uploader, err := objectstore.New(objectstore.Config{
		Endpoint:  cfg.ObjectStore.Endpoint,
		AccessKey: cfg.ObjectStore.AccessKey,
		SecretKey: cfg.ObjectStore.SecretKey,
		Bucket:    cfg.ObjectStore.Bucket,
		Region:    cfg.ObjectStore.Region,
		UseSSL:    cfg.ObjectStore.UseSSL,
		Prefix:    cfg.ObjectStore.Prefix,
	})
	if err != nil {
		return err
	}
	object := uploader.ObjectName(runID, name, time.Now())
	location, err := uploader.Upload(ctx, object, buf.Bytes(), objectstore.ContentType(name))
	if err != nil {
		return err
	}
	logger.Info("report uploaded", slog.String("location", location))
	return nil
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		only   string
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded outcomes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := a.setup(cmd)
			if err != nil {
				return err
			}
			formatter, err := output.ByName(format, a.stdout)
			if err != nil {
				return err
			}
			st, err := store.Open(cmd.Context(), store.DefaultConfig(cfg.Store.URL))
			if err != nil {
				return fmt.Errorf("failed to open the history store: %w", err)
			}
			defer st.Close()

			outcomes, err := st.Recent(cmd.Context(), only, limit)
			if err != nil {
				return err
			}
			return formatter.Format(outcomes)
		},
	}
	cmd.Flags().StringVar(&only, "scenario", "", "only this scenario")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of outcomes")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json, csv or xlsx")
	return cmd
}

func newBuilder(cfg config.Config) (*sqlgen.Builder, error) {
	sqlCfg, err := cfg.SQL()
	if err != nil {
		return nil, err
	}
	return sqlgen.NewBuilder(sqlCfg)
}

// rowOutcome reports a sheet row that never became a scenario
func rowOutcome(err error) outcome.Outcome {
	spec := &scenario.Spec{}
	var cfgErr *scenario.ConfigError
	if errors.As(err, &cfgErr) {
		spec.Name, spec.Row = cfgErr.Scenario, cfgErr.Row
	}
	if spec.Name == "" && spec.Row > 0 {
		spec.Name = fmt.Sprintf("row %d", spec.Row)
	}
	return outcome.Failed(outcome.New(spec), outcome.ErrorConfig, err)
}
