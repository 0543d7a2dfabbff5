package main

import (
	"time"

	"stereocap/internal/camera"
	"stereocap/internal/config"
	"stereocap/internal/geometry"
)

// newDevice builds the camera device for the configured rig.
//
// The hardware camera lives behind the external camera stack and is attached
// here; the simulated device keeps the daemon runnable on a bench without the
// sensor.
func newDevice(cfg *config.Config) (camera.Device, error) {
	entry, err := geometry.Lookup(cfg.Camera.Resolution)
	if err != nil {
		return nil, err
	}
	return camera.NewSim(entry, 33*time.Millisecond), nil
}
