// Package progress holds core.ProgressStore implementations. Every backend
// appends: recording a report twice for the same learner and role yields two
// records.
//
// Sub-packages provide durable backends (redis, sqlstore) and a decorator
// that publishes every appended record to NATS (natspub).
package progress
