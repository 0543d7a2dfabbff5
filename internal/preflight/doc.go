// Package preflight provides startup readiness checks.
//
// Every check runs before the capture goroutines start: a bad resolution
// label, an unparsable endpoint, or a full session-database disk is a fatal
// configuration error, not something to discover mid-burst. The daemon runs
// RunAll once at startup; the CLI reuses the individual check functions for
// status display.
package preflight
