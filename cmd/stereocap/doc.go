// Command stereocap is the operator CLI for the stereocap daemon.
//
// It serves the control endpoint the daemon dials into (console), inspects
// recorded capture sessions (sessions), and manages configuration files
// (config init, config show).
package main
