// Package shared holds helpers used across the dashboard's packages.
//
// The testutil subpackage provides a capturing slog handler so tests can
// assert on structured log output:
//
//	logger, logs := testutil.NewTestLogger(t)
//	sched := scheduler.New(fetcher, st, tasks, nil, logger)
//	...
//	testutil.AssertLogContains(t, logs, slog.LevelWarn, "snapshot fetch failed")
package shared
