package capture_test

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"stereocap/internal/camera"
	"stereocap/internal/capture"
	"stereocap/internal/control"
	"stereocap/internal/geometry"
	"stereocap/internal/logging"
	"stereocap/internal/sessions"
	"stereocap/internal/sink"
)

var testEntry = geometry.Entry{FileWidth: 8, FileHeight: 4, ImageWidth: 6, ImageHeight: 4}

type fixedExposure uint64

func (f fixedExposure) ExposureMicros() uint64 { return uint64(f) }

// sinkRecorder hands out memory sinks and remembers every one it created.
type sinkRecorder struct {
	mu    sync.Mutex
	sinks []*sink.Memory
}

func (r *sinkRecorder) factory() (sink.Output, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := sink.NewMemory()
	r.sinks = append(r.sinks, m)
	return m, nil
}

func (r *sinkRecorder) all() []*sink.Memory {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*sink.Memory(nil), r.sinks...)
}

func newLoop(t *testing.T, device camera.Device, gate *control.Gate, rec *sinkRecorder, opts capture.Config) *capture.Loop {
	t.Helper()
	opts.Device = device
	opts.Gate = gate
	opts.Sink = rec.factory
	if opts.Exposure == nil {
		opts.Exposure = fixedExposure(20000)
	}
	if opts.Entry == (geometry.Entry{}) {
		opts.Entry = testEntry
	}
	if opts.Resolution == "" {
		opts.Resolution = "TEST"
	}
	opts.Logger = logging.NewNop()
	loop, err := capture.NewLoop(opts)
	if err != nil {
		t.Fatalf("NewLoop failed: %v", err)
	}
	return loop
}

func runLoop(t *testing.T, loop *capture.Loop) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()
	return done
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("capture loop did not exit")
		return nil
	}
}

func TestBurstDeliversFramesInOrder(t *testing.T) {
	device := camera.NewSim(testEntry, time.Millisecond)
	gate := control.NewGate()
	rec := &sinkRecorder{}
	loop := newLoop(t, device, gate, rec, capture.Config{Workers: 4})
	done := runLoop(t, loop)

	gate.Activate()
	waitFor(t, "frames", func() bool {
		sinks := rec.all()
		return len(sinks) == 1 && len(sinks[0].Frames()) >= 20
	})
	gate.Deactivate()
	waitFor(t, "sink close", func() bool { return rec.all()[0].Closed() })
	gate.Shutdown()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	out := rec.all()[0]
	frames := out.Frames()
	for i, frame := range frames {
		if len(frame) != testEntry.ImageBytes() {
			t.Fatalf("frame %d has %d bytes, want %d", i, len(frame), testEntry.ImageBytes())
		}
		if got := binary.LittleEndian.Uint16(frame); got != uint16(i) {
			t.Fatalf("frame %d carries number %d; delivery out of order", i, got)
		}
	}
	meta := out.Metadata()
	if len(meta) != 1 || meta[0].Width != testEntry.FileWidth {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if device.Outstanding() != 0 {
		t.Fatalf("%d camera buffers never returned", device.Outstanding())
	}
}

func TestDeviceOpenedOnceAcrossBursts(t *testing.T) {
	device := camera.NewSim(testEntry, time.Millisecond)
	gate := control.NewGate()
	rec := &sinkRecorder{}
	loop := newLoop(t, device, gate, rec, capture.Config{Exposure: fixedExposure(4500)})
	done := runLoop(t, loop)

	for burst := 0; burst < 2; burst++ {
		gate.Activate()
		waitFor(t, "frames", func() bool {
			sinks := rec.all()
			return len(sinks) == burst+1 && len(sinks[burst].Frames()) >= 5
		})
		gate.Deactivate()
		waitFor(t, "sink close", func() bool { return rec.all()[burst].Closed() })
	}
	gate.Shutdown()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if calls := device.OpenCalls(); calls != 1 {
		t.Fatalf("device opened %d times, want 1", calls)
	}
	if len(rec.all()) != 2 {
		t.Fatalf("expected one sink per burst, got %d", len(rec.all()))
	}
	if device.Exposure() != 4500 {
		t.Fatalf("exposure = %d, want 4500", device.Exposure())
	}

	// Frame numbering continues across bursts; each burst must still be
	// internally ordered.
	var expected uint16
	for _, out := range rec.all() {
		for i, frame := range out.Frames() {
			if got := binary.LittleEndian.Uint16(frame); got != expected {
				t.Fatalf("frame %d carries number %d, want %d", i, got, expected)
			}
			expected++
		}
	}
}

func TestTimeoutRestartsStream(t *testing.T) {
	device := camera.NewSim(testEntry, time.Millisecond)
	device.TimeoutEvery = 3
	gate := control.NewGate()
	rec := &sinkRecorder{}
	loop := newLoop(t, device, gate, rec, capture.Config{})
	done := runLoop(t, loop)

	gate.Activate()
	waitFor(t, "frames after timeouts", func() bool {
		sinks := rec.all()
		return len(sinks) == 1 && len(sinks[0].Frames()) >= 10
	})
	gate.Shutdown()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	frames := rec.all()[0].Frames()
	for i, frame := range frames {
		if got := binary.LittleEndian.Uint16(frame); got != uint16(i) {
			t.Fatalf("frame %d carries number %d after restarts", i, got)
		}
	}
}

func TestDeadlineTerminatesLoop(t *testing.T) {
	device := camera.NewSim(testEntry, time.Millisecond)
	gate := control.NewGate()
	rec := &sinkRecorder{}
	loop := newLoop(t, device, gate, rec, capture.Config{Deadline: 50 * time.Millisecond})
	done := runLoop(t, loop)

	gate.Activate()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !rec.all()[0].Closed() {
		t.Fatal("sink not closed after deadline")
	}
}

func TestSessionRecorded(t *testing.T) {
	store, err := sessions.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	device := camera.NewSim(testEntry, time.Millisecond)
	gate := control.NewGate()
	rec := &sinkRecorder{}
	loop := newLoop(t, device, gate, rec, capture.Config{Store: store, Resolution: "MEDIUM"})
	done := runLoop(t, loop)

	gate.Activate()
	waitFor(t, "frames", func() bool {
		sinks := rec.all()
		return len(sinks) == 1 && len(sinks[0].Frames()) >= 5
	})
	gate.Deactivate()
	waitFor(t, "sink close", func() bool { return rec.all()[0].Closed() })
	gate.Shutdown()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	listed, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("recorded %d sessions, want 1", len(listed))
	}
	session := listed[0]
	if session.Resolution != "MEDIUM" {
		t.Fatalf("resolution = %q", session.Resolution)
	}
	if session.EndReason != sessions.EndStop {
		t.Fatalf("end reason = %q, want %q", session.EndReason, sessions.EndStop)
	}
	if session.Frames == 0 {
		t.Fatal("no frames recorded")
	}
	if session.EndedAt == nil {
		t.Fatal("session never finished")
	}
}

func TestShutdownWhileIdle(t *testing.T) {
	device := camera.NewSim(testEntry, time.Millisecond)
	gate := control.NewGate()
	rec := &sinkRecorder{}
	loop := newLoop(t, device, gate, rec, capture.Config{})
	done := runLoop(t, loop)

	gate.Shutdown()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if device.OpenCalls() != 0 {
		t.Fatal("device opened without an activation")
	}
}
