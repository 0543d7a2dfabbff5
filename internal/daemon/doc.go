// Package daemon coordinates the long-running stereocap process.
//
// It wires the control channel, the capture controller, the capture loop, the
// session store, and the camera hotplug monitor into a single lifecycle with
// flock-based locking to prevent multiple instances. Keep orchestration logic
// here: capture and control semantics live in their own packages while the
// daemon focuses on startup, shutdown, and wiring.
package daemon
