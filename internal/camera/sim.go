package camera

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"stereocap/internal/geometry"
)

// Sim is an in-process Device that synthesizes raw frames at a fixed rate.
// It exists for tests and bench-top development without the sensor attached;
// the real device is provided by the external camera stack.
type Sim struct {
	entry    geometry.Entry
	interval time.Duration

	mu          sync.Mutex
	open        bool
	configured  bool
	streaming   bool
	exposure    uint64
	frameNum    uint16
	outstanding int
	openCalls   int

	// TimeoutEvery injects an EventTimeout instead of every n-th frame when
	// positive. Tests use it to exercise the stream restart path.
	TimeoutEvery int
	produced     int
}

// NewSim builds a simulated device for the given geometry. Interval defaults
// to 10ms when non-positive.
func NewSim(entry geometry.Entry, interval time.Duration) *Sim {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	return &Sim{entry: entry, interval: interval}
}

func (s *Sim) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return errors.New("sim camera already open")
	}
	s.open = true
	s.openCalls++
	return nil
}

func (s *Sim) ConfigureStream(kind StreamKind) (StreamInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return StreamInfo{}, errors.New("sim camera not open")
	}
	if kind != StreamRaw {
		return StreamInfo{}, errors.New("sim camera only provides the raw stream")
	}
	s.configured = true
	return StreamInfo{
		Width:       s.entry.FileWidth,
		Height:      s.entry.FileHeight,
		Stride:      s.entry.FileWidth * 2,
		PixelFormat: "R16",
	}, nil
}

func (s *Sim) SetExposure(micros uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streaming {
		return errors.New("sim camera cannot change exposure while streaming")
	}
	s.exposure = micros
	return nil
}

func (s *Sim) StartStreaming() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.configured {
		return errors.New("sim camera stream not configured")
	}
	s.streaming = true
	return nil
}

func (s *Sim) StopStreaming() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = false
	return nil
}

// WaitEvent produces a synthetic frame per interval while streaming. The
// frame number is stamped into the first sample of band 1 so tests can trace
// delivery order end to end.
func (s *Sim) WaitEvent(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case <-time.After(s.interval):
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.streaming {
		return Event{}, errors.New("sim camera not streaming")
	}

	s.produced++
	if s.TimeoutEvery > 0 && s.produced%s.TimeoutEvery == 0 {
		return Event{Kind: EventTimeout}, nil
	}

	raw := make([]byte, s.entry.RawSamples()*2)
	binary.LittleEndian.PutUint16(raw, s.frameNum)
	s.frameNum++
	s.outstanding++

	return Event{
		Kind: EventFrame,
		Frame: Frame{
			Data: raw,
			Info: StreamInfo{
				Width:       s.entry.FileWidth,
				Height:      s.entry.FileHeight,
				Stride:      s.entry.FileWidth * 2,
				PixelFormat: "R16",
			},
			Timestamp: time.Now(),
		},
	}, nil
}

func (s *Sim) ReturnBuffer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outstanding > 0 {
		s.outstanding--
	}
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.streaming = false
	return nil
}

// OpenCalls reports how many times Open ran; tests use it to prove the
// device is opened once across start/stop cycles.
func (s *Sim) OpenCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openCalls
}

// Outstanding reports raw buffers not yet recycled.
func (s *Sim) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstanding
}

// Exposure reports the last applied exposure in microseconds.
func (s *Sim) Exposure() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exposure
}
