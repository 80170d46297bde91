// Package scheduler drives the recommendation pipeline on a fixed cadence:
// intraday strategies during market hours, long-term after close, plus
// weekly history cleanup. The scoring engine itself has no cron awareness.
package scheduler
