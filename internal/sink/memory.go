package sink

import (
	"sync"
	"time"

	"stereocap/internal/camera"
)

// Memory records delivered frames in order. It backs tests and local
// dry runs where no workstation is listening.
type Memory struct {
	mu       sync.Mutex
	frames   [][]byte
	stamps   []time.Time
	metadata []camera.StreamInfo
	closed   bool
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Deliver(data []byte, timestamp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, data)
	m.stamps = append(m.stamps, timestamp)
	return nil
}

func (m *Memory) OnMetadata(info camera.StreamInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata = append(m.metadata, info)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Frames returns a snapshot of delivered frames in delivery order.
func (m *Memory) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.frames...)
}

// Metadata returns every stream description the sink has seen.
func (m *Memory) Metadata() []camera.StreamInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]camera.StreamInfo(nil), m.metadata...)
}

// Closed reports whether the sink was closed.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
