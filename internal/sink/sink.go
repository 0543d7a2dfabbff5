// Package sink delivers ordered encoded frames to their destination.
//
// A fresh sink is constructed for every capture burst and closed when the
// burst ends, mirroring how the workstation side opens a receiving socket per
// burst. The TCP sink streams raw image bytes; the memory sink backs tests.
package sink

import (
	"time"

	"stereocap/internal/camera"
)

// Output accepts ordered encoded buffers. Deliver is called in strict
// capture order and takes ownership of the buffer.
type Output interface {
	Deliver(data []byte, timestamp time.Time) error
	OnMetadata(info camera.StreamInfo)
	Close() error
}

// Factory constructs a fresh Output for one capture burst.
type Factory func() (Output, error)
