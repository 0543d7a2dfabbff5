// Package camera defines the interface to the external camera stack.
//
// Device acquisition, stream configuration, and buffer completion all belong
// to the camera stack; this package only names the calls the capture loop
// makes against it and the events it delivers back. A simulated device is
// provided for tests and bench-top development.
package camera

import (
	"context"
	"time"
)

// StreamKind selects which stream of the device is configured.
type StreamKind int

const (
	// StreamRaw is the unprocessed sensor stream the stereo rig records.
	StreamRaw StreamKind = iota
)

// StreamInfo describes the configured raw stream. The encode pipeline
// carries it opaquely; sinks may forward it as metadata.
type StreamInfo struct {
	Width       int
	Height      int
	Stride      int
	PixelFormat string
}

// EventKind discriminates events from WaitEvent.
type EventKind int

const (
	// EventFrame signals a completed raw frame.
	EventFrame EventKind = iota
	// EventTimeout signals a device timeout; the caller restarts the stream.
	EventTimeout
)

// Frame is a completed raw capture. Data is a borrowed reference into the
// device's buffer pool, valid until the frame is returned via ReturnBuffer.
type Frame struct {
	Data      []byte
	Info      StreamInfo
	Timestamp time.Time
}

// Event is one occurrence delivered by WaitEvent.
type Event struct {
	Kind  EventKind
	Frame Frame
}

// Device is the camera collaborator consumed by the capture loop.
//
// Open and ConfigureStream run once per process: device reconfiguration is
// expensive and must not be repeated across start/stop cycles. SetExposure
// is only called between bursts, never while streaming.
type Device interface {
	Open() error
	ConfigureStream(kind StreamKind) (StreamInfo, error)
	SetExposure(micros uint64) error
	StartStreaming() error
	StopStreaming() error
	// WaitEvent blocks until the device produces an event or ctx is done.
	WaitEvent(ctx context.Context) (Event, error)
	// ReturnBuffer recycles the oldest outstanding raw buffer slot. The
	// encode pipeline calls it once per frame after copying the data out.
	ReturnBuffer()
	Close() error
}
