package daemon_test

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"stereocap/internal/camera"
	"stereocap/internal/config"
	"stereocap/internal/daemon"
	"stereocap/internal/geometry"
	"stereocap/internal/logging"
	"stereocap/internal/sink"
)

func lowEntry(t *testing.T) geometry.Entry {
	t.Helper()
	entry, err := geometry.Lookup("LOW")
	if err != nil {
		t.Fatalf("lookup LOW: %v", err)
	}
	return entry
}

// controlServer is a minimal stand-in for the workstation control endpoint.
type controlServer struct {
	t        *testing.T
	listener net.Listener

	mu   sync.Mutex
	conn net.Conn
}

func newControlServer(t *testing.T) *controlServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = listener.Close() })
	s := &controlServer{t: t, listener: listener}
	go s.accept()
	return s
}

func (s *controlServer) accept() {
	conn, err := s.listener.Accept()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

func (s *controlServer) address() string {
	return "tcp://" + s.listener.Addr().String()
}

func (s *controlServer) send(key string, value uint64) {
	s.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			if _, err := fmt.Fprintf(conn, "%s = %d\n", key, value); err != nil {
				s.t.Fatalf("send %s: %v", key, err)
			}
			// One read parses as one message, so back-to-back writes must
			// not coalesce into a single TCP segment.
			time.Sleep(50 * time.Millisecond)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.t.Fatal("daemon never connected to control endpoint")
}

type memoryFactory struct {
	mu    sync.Mutex
	sinks []*sink.Memory
}

func (f *memoryFactory) factory() (sink.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := sink.NewMemory()
	f.sinks = append(f.sinks, m)
	return m, nil
}

func (f *memoryFactory) all() []*sink.Memory {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*sink.Memory(nil), f.sinks...)
}

func testConfig(t *testing.T, controlAddress string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Camera.Resolution = "LOW"
	cfg.Sessions.Dir = t.TempDir()
	cfg.Network.ControlAddress = controlAddress
	cfg.Network.FrameAddress = "tcp://127.0.0.1:1"
	cfg.Network.ConnectTimeout = 2
	return &cfg
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

func TestDaemonCaptureCycle(t *testing.T) {
	server := newControlServer(t)
	cfg := testConfig(t, server.address())
	device := camera.NewSim(lowEntry(t), time.Millisecond)
	sinks := &memoryFactory{}

	d, err := daemon.New(daemon.Options{
		Config:      cfg,
		Device:      device,
		Logger:      logging.NewNop(),
		SinkFactory: sinks.factory,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	server.send("START", 0)
	waitFor(t, "frames", func() bool {
		all := sinks.all()
		return len(all) == 1 && len(all[0].Frames()) >= 10
	})
	server.send("STOP", 0)
	waitFor(t, "burst end", func() bool { return sinks.all()[0].Closed() })
	server.send("CLOSE", 0)

	if err := d.Wait(); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	d.Stop()

	frames := sinks.all()[0].Frames()
	for i, frame := range frames {
		if got := binary.LittleEndian.Uint16(frame); got != uint16(i) {
			t.Fatalf("frame %d carries number %d; delivery out of order", i, got)
		}
	}
	if device.OpenCalls() != 1 {
		t.Fatalf("device opened %d times, want 1", device.OpenCalls())
	}
}

func TestDaemonExposureAppliedAtBurstStart(t *testing.T) {
	server := newControlServer(t)
	cfg := testConfig(t, server.address())
	device := camera.NewSim(lowEntry(t), time.Millisecond)
	sinks := &memoryFactory{}

	d, err := daemon.New(daemon.Options{
		Config:      cfg,
		Device:      device,
		Logger:      logging.NewNop(),
		SinkFactory: sinks.factory,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	server.send("EXPOSURE", 7500)
	server.send("START", 0)
	waitFor(t, "exposure applied", func() bool { return device.Exposure() == 7500 })
	server.send("CLOSE", 0)
	if err := d.Wait(); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
}

func TestDaemonControlDisconnectShutsDown(t *testing.T) {
	server := newControlServer(t)
	cfg := testConfig(t, server.address())
	device := camera.NewSim(lowEntry(t), time.Millisecond)
	sinks := &memoryFactory{}

	d, err := daemon.New(daemon.Options{
		Config:      cfg,
		Device:      device,
		Logger:      logging.NewNop(),
		SinkFactory: sinks.factory,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Dropping the workstation link must terminate the daemon.
	server.send("START", 0)
	waitFor(t, "frames", func() bool {
		all := sinks.all()
		return len(all) == 1 && len(all[0].Frames()) >= 3
	})
	server.mu.Lock()
	conn := server.conn
	server.mu.Unlock()
	_ = conn.Close()

	if err := d.Wait(); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
}

func TestDaemonSecondInstanceRefused(t *testing.T) {
	server := newControlServer(t)
	cfg := testConfig(t, server.address())
	sinks := &memoryFactory{}

	first, err := daemon.New(daemon.Options{
		Config:      cfg,
		Device:      camera.NewSim(lowEntry(t), time.Millisecond),
		Logger:      logging.NewNop(),
		SinkFactory: sinks.factory,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = first.Close() })
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	second, err := daemon.New(daemon.Options{
		Config:      cfg,
		Device:      camera.NewSim(lowEntry(t), time.Millisecond),
		Logger:      logging.NewNop(),
		SinkFactory: sinks.factory,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}
}

func TestDaemonUnreachableControlEndpointFatal(t *testing.T) {
	cfg := testConfig(t, "tcp://127.0.0.1:1")
	cfg.Network.ConnectTimeout = 1

	d, err := daemon.New(daemon.Options{
		Config: cfg,
		Device: camera.NewSim(lowEntry(t), time.Millisecond),
		Logger: logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		d.Stop()
		t.Fatal("expected start to fail without a control endpoint")
	}
}
