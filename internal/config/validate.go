package config

import (
	"errors"
	"fmt"

	"stereocap/internal/control"
	"stereocap/internal/geometry"
)

// Validate ensures the configuration is usable. Every failure here is a
// startup error: capture never begins with a configuration that would fail
// later.
func (c *Config) Validate() error {
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if c.Sessions.Dir == "" {
		return errors.New("sessions.dir must be set")
	}
	return nil
}

func (c *Config) validateCamera() error {
	if _, err := geometry.Lookup(c.Camera.Resolution); err != nil {
		return fmt.Errorf("camera.resolution: %w", err)
	}
	if c.Camera.EncodeWorkers <= 0 {
		return errors.New("camera.encode_workers must be positive")
	}
	if c.Camera.DefaultExposureUS == 0 {
		return errors.New("camera.default_exposure_us must be positive")
	}
	return nil
}

func (c *Config) validateNetwork() error {
	if _, err := control.ParseAddress(c.Network.ControlAddress); err != nil {
		return fmt.Errorf("network.control_address: %w", err)
	}
	if _, err := control.ParseAddress(c.Network.FrameAddress); err != nil {
		return fmt.Errorf("network.frame_address: %w", err)
	}
	if c.Network.ConnectTimeout <= 0 {
		return errors.New("network.connect_timeout must be positive")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.DeadlineSeconds < 0 {
		return errors.New("capture.deadline_seconds must not be negative")
	}
	return nil
}
