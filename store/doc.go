// Package store keeps the history of scenario outcomes in Postgres.
//
// A Store satisfies runner.Sink, so every outcome of a run can be recorded
// as it is produced:
//
//	st, err := store.Open(ctx, store.DefaultConfig(url))
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//	if err := st.Migrate(ctx); err != nil {
//	    return err
//	}
//	r := runner.New(builder, exec, runner.Options{Sink: st})
//
// Outcomes are never updated; every run adds rows and Recent reads them
// back newest first.
package store
