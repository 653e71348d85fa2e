// Package runner executes generated comparison queries and turns their
// result sets into outcomes.
//
// Each scenario is one blocking query. Configuration problems are caught
// before anything is sent; warehouse failures and timeouts are reported as
// ExecutionError and TimeoutError and are never retried.
//
//	exec, err := runner.Open(ctx, runner.Config{Driver: runner.DriverBigQuery, DSN: "bigquery://proj/ds"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	r := runner.New(builder, exec, runner.Options{Timeout: 5 * time.Minute})
//	outcomes := r.RunAll(ctx, specs)
package runner
