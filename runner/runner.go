package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vegasq/mapcheck/outcome"
	"github.com/vegasq/mapcheck/scenario"
	"github.com/vegasq/mapcheck/sqlgen"
)

// Sink receives every outcome once its scenario has finished
type Sink interface {
	Save(ctx context.Context, o outcome.Outcome) error
}

// Options tune a Runner
type Options struct {
	// Timeout bounds each scenario's query; 0 means no limit beyond ctx
	Timeout time.Duration
	Logger  *slog.Logger
	Sink    Sink
}

// Runner builds scenarios, runs them one at a time and rates the results.
// Scenarios share no state, so a failing one never affects the next.
type Runner struct {
	builder *sqlgen.Builder
	exec    Executor
	opts    Options
	logger  *slog.Logger
}

// New creates a runner
func New(builder *sqlgen.Builder, exec Executor, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{builder: builder, exec: exec, opts: opts, logger: logger}
}

// RunAll runs specs in order. Once ctx is done the remaining scenarios are
// reported as errors without being sent.
func (r *Runner) RunAll(ctx context.Context, specs []scenario.Spec) []outcome.Outcome {
	outcomes := make([]outcome.Outcome, 0, len(specs))
	for i := range specs {
		if err := ctx.Err(); err != nil {
			o := outcome.Failed(outcome.New(&specs[i]), outcome.ErrorExecution, fmt.Errorf("not run: %w", err))
			outcomes = append(outcomes, o)
			continue
		}
		outcomes = append(outcomes, r.Run(ctx, &specs[i]))
	}
	return outcomes
}

// Run validates and executes one scenario. It never returns an error: every
// failure becomes an ERROR or TIMEOUT outcome carrying the reason and, once
// built, the SQL.
func (r *Runner) Run(ctx context.Context, spec *scenario.Spec) outcome.Outcome {
	start := time.Now()
	log := r.logger.With(slog.String("scenario", spec.Name))

	o := r.run(ctx, spec, log)
	o.Duration = time.Since(start)

	switch o.Status {
	case outcome.StatusError, outcome.StatusTimeout:
		log.Error("scenario failed",
			slog.String("status", string(o.Status)),
			slog.String("kind", string(o.ErrorKind)),
			slog.String("error", o.Error),
			slog.Duration("duration", o.Duration))
	default:
		log.Info("scenario finished",
			slog.String("status", string(o.Status)),
			slog.Int64("total_rows", o.TotalRows),
			slog.Int64("match_count", o.MatchCount),
			slog.Float64("match_percentage", o.MatchPercentage),
			slog.Duration("duration", o.Duration))
	}

	if r.opts.Sink != nil {
		if err := r.opts.Sink.Save(ctx, o); err != nil {
			log.Error("failed to save outcome", slog.String("error", err.Error()))
		}
	}

	return o
}

func (r *Runner) run(ctx context.Context, spec *scenario.Spec, log *slog.Logger) outcome.Outcome {
	o := outcome.New(spec)

	plan, err := r.builder.Plan(spec)
	if err != nil {
		return outcome.Failed(o, outcome.ErrorConfig, err)
	}
	o.SQL = plan.SQL
	if plan.Expression != nil && plan.Expression.Fallback {
		o.Fallback = true
		o.FallbackReason = plan.Expression.Err.Error()
		log.Warn("derivation logic passed through untranslated",
			slog.String("logic", spec.DerivationLogic),
			slog.String("reason", o.FallbackReason))
	}
	log.Debug("running scenario", slog.String("mode", plan.Mode.String()), slog.String("sql", plan.SQL))

	rows, err := r.query(ctx, spec.Name, plan.SQL)
	if err != nil {
		var timeout *TimeoutError
		if errors.As(err, &timeout) {
			return outcome.Failed(o, outcome.ErrorTimeout, err)
		}
		return outcome.Failed(o, outcome.ErrorExecution, err)
	}

	res, err := decode(rows)
	if err != nil {
		return outcome.Failed(o, outcome.ErrorExecution, &ExecutionError{
			Scenario: spec.Name,
			SQL:      plan.SQL,
			Message:  "unexpected result: " + err.Error(),
			Err:      err,
		})
	}

	o.TotalRows = res.total
	o.MatchCount = res.match
	o.MismatchCount = res.mismatch
	o.SourceNullCount = res.sourceNull
	o.TargetNullCount = res.targetNull
	o.BothNullCount = res.bothNull
	o.MatchPercentage = outcome.MatchPercentage(res.match, res.total)
	o.Status = outcome.DeriveStatus(res.match, res.total, r.builder.Config().WarnPercent)
	o.Samples = res.samples

	if res.status != "" && res.status != string(o.Status) {
		log.Warn("warehouse status differs from recomputed status",
			slog.String("warehouse", res.status),
			slog.String("recomputed", string(o.Status)))
	}

	return o
}

// query runs sql under the scenario timeout and classifies failures
func (r *Runner) query(ctx context.Context, name, sql string) ([]map[string]interface{}, error) {
	qctx := ctx
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	rows, err := r.exec.Query(qctx, sql)
	if err == nil {
		return rows, nil
	}

	// only the scenario deadline is a timeout; a cancelled parent is not
	if errors.Is(qctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, &TimeoutError{Scenario: name, SQL: sql, Timeout: r.opts.Timeout, Err: err}
	}
	return nil, &ExecutionError{
		Scenario:  name,
		SQL:       sql,
		Message:   err.Error(),
		Retryable: retryable(err),
		Err:       err,
	}
}
