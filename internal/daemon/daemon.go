package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"stereocap/internal/camera"
	"stereocap/internal/capture"
	"stereocap/internal/config"
	"stereocap/internal/control"
	"stereocap/internal/geometry"
	"stereocap/internal/logging"
	"stereocap/internal/sessions"
	"stereocap/internal/sink"
)

// Options assembles a Daemon.
type Options struct {
	Config *config.Config
	Device camera.Device
	// Store records capture sessions. May be nil for dry runs.
	Store  *sessions.Store
	Logger *slog.Logger
	// SinkFactory overrides the per-burst TCP frame sink. Tests substitute
	// an in-memory sink here.
	SinkFactory sink.Factory
}

// Daemon owns the capture process lifecycle and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	device camera.Device
	store  *sessions.Store
	logger *slog.Logger
	sinkFn sink.Factory

	lockPath string
	lock     *flock.Flock

	channel    *control.Channel
	controller *control.Controller
	gate       *control.Gate
	loop       *capture.Loop
	hotplug    *hotplugMonitor

	running  atomic.Bool
	cancel   context.CancelFunc
	loopDone chan error
	ctlWG    sync.WaitGroup

	stopOnce sync.Once
}

// New constructs a daemon with initialized dependencies.
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil || opts.Device == nil {
		return nil, errors.New("daemon requires config and camera device")
	}

	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	sinkFn := opts.SinkFactory
	if sinkFn == nil {
		sinkFn = func() (sink.Output, error) {
			return sink.DialTCP(cfg.Network.FrameAddress, cfg.ConnectTimeout(), logger)
		}
	}

	lockPath := filepath.Join(cfg.Sessions.Dir, "stereocapd.lock")
	return &Daemon{
		cfg:      cfg,
		device:   opts.Device,
		store:    opts.Store,
		logger:   logger,
		sinkFn:   sinkFn,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, dials the control endpoint, and launches
// the receiver, controller, and capture goroutines. A control connect failure
// is fatal, matching the startup error taxonomy: nothing capture-related runs
// until the workstation link is up.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another stereocap daemon instance is already running")
	}

	entry, err := geometry.Lookup(d.cfg.Camera.Resolution)
	if err != nil {
		_ = d.lock.Unlock()
		return err
	}

	channel, err := control.Dial(d.cfg.Network.ControlAddress, d.cfg.ConnectTimeout(), d.logger)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("dial control endpoint: %w", err)
	}

	d.gate = control.NewGate()
	d.channel = channel
	d.controller = control.NewController(d.gate, d.cfg.Camera.DefaultExposureUS, d.logger)

	loop, err := capture.NewLoop(capture.Config{
		Device:     d.device,
		Gate:       d.gate,
		Exposure:   d.controller,
		Sink:       d.sinkFn,
		Entry:      entry,
		Resolution: d.cfg.Camera.Resolution,
		Workers:    d.cfg.Camera.EncodeWorkers,
		Deadline:   d.cfg.Deadline(),
		Store:      d.store,
		Logger:     d.logger,
	})
	if err != nil {
		_ = channel.Close()
		_ = d.lock.Unlock()
		return err
	}
	d.loop = loop

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.loopDone = make(chan error, 1)

	d.hotplug = newHotplugMonitor(d.cfg.Camera.Device, d.logger)
	d.hotplug.Start(runCtx)

	d.ctlWG.Add(2)
	go func() {
		defer d.ctlWG.Done()
		d.channel.Run()
	}()
	go func() {
		defer d.ctlWG.Done()
		d.controller.Run(d.channel.Messages())
	}()
	go func() {
		d.loopDone <- d.loop.Run(runCtx)
	}()
	// The gate wait is not context-aware, so cancellation must flow through
	// the shutdown flag or an idle capture loop would never wake.
	go func() {
		<-runCtx.Done()
		d.gate.Shutdown()
	}()

	d.running.Store(true)
	d.logger.Info("stereocap daemon started",
		logging.String("lock", d.lockPath),
		logging.String("control", d.cfg.Network.ControlAddress),
		logging.String("resolution", d.cfg.Camera.Resolution),
	)
	return nil
}

// Wait blocks until the capture loop exits: CLOSE, control disconnect, burst
// deadline, or context cancellation all end up here.
func (d *Daemon) Wait() error {
	if !d.running.Load() {
		return errors.New("daemon not running")
	}
	return <-d.loopDone
}

// Stop shuts down every goroutine and releases the daemon lock. Idempotent.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.stopOnce.Do(func() {
		// The gate shutdown ends the capture loop; closing the channel ends
		// the receiver, which in turn ends the controller.
		d.gate.Shutdown()
		_ = d.channel.Close()
		if d.cancel != nil {
			d.cancel()
		}
		d.hotplug.Stop()

		d.ctlWG.Wait()
		<-d.controller.Done()

		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
		d.running.Store(false)
		d.logger.Info("stereocap daemon stopped")
	})
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
