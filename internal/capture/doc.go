// Package capture runs the gate-driven capture loop.
//
// The loop owns the camera device for the life of the process: the device is
// opened and its raw stream configured on the first activation only, because
// reconfiguration is expensive. Every activation after that reuses the open
// device with a fresh sink and a fresh encode pipeline, so start/stop cycles
// stay cheap.
package capture
