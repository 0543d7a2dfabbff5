package preflight

import (
	"stereocap/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every startup check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckResolution(cfg.Camera.Resolution),
		CheckAddress("Control endpoint", cfg.Network.ControlAddress),
		CheckAddress("Frame endpoint", cfg.Network.FrameAddress),
		CheckDirectoryAccess("Sessions directory", cfg.Sessions.Dir),
		CheckDiskSpace("Sessions disk space", cfg.Sessions.Dir),
	}
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
