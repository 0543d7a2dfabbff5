package config

// Default returns the configuration used when no file overrides a value.
// The network defaults match the rig's point-to-point link, where the
// workstation always takes 10.42.0.1.
func Default() Config {
	return Config{
		Camera: Camera{
			Resolution:        "MEDIUM",
			Device:            "/dev/video0",
			EncodeWorkers:     4,
			DefaultExposureUS: 20000,
		},
		Network: Network{
			ControlAddress: "tcp://10.42.0.1:32211",
			FrameAddress:   "tcp://10.42.0.1:32233",
			ConnectTimeout: 10,
		},
		Capture: Capture{
			DeadlineSeconds: 0,
		},
		Sessions: Sessions{
			Dir: "~/.local/share/stereocap",
		},
		Logging: Logging{
			Format: "auto",
			Level:  "info",
		},
	}
}
