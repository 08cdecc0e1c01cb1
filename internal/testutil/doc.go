// Package testutil contains fluent builders for sessions and transcript
// messages used across tests. Not intended for production usage.
package testutil
