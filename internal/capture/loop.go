package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stereocap/internal/camera"
	"stereocap/internal/control"
	"stereocap/internal/encode"
	"stereocap/internal/geometry"
	"stereocap/internal/logging"
	"stereocap/internal/sessions"
	"stereocap/internal/sink"
)

// eventWait bounds each blocking device wait so gate transitions and
// shutdown are noticed promptly even when no frames arrive.
const eventWait = 200 * time.Millisecond

// ExposureSource supplies the exposure applied when a burst starts. The
// controller is the production implementation.
type ExposureSource interface {
	ExposureMicros() uint64
}

// Config assembles a Loop.
type Config struct {
	Device     camera.Device
	Gate       *control.Gate
	Exposure   ExposureSource
	Sink       sink.Factory
	Entry      geometry.Entry
	Resolution string
	Workers    int
	// Deadline bounds a single burst; exceeding it ends the burst and
	// terminates the loop. Zero means no deadline.
	Deadline time.Duration
	// Store records capture sessions. May be nil.
	Store  *sessions.Store
	Logger *slog.Logger
}

// Loop pumps camera events into the encode pipeline whenever the gate is
// open. One Loop runs per process.
type Loop struct {
	device   camera.Device
	gate     *control.Gate
	exposure ExposureSource
	sinkFn   sink.Factory
	entry    geometry.Entry
	label    string
	workers  int
	deadline time.Duration
	store    *sessions.Store
	logger   *slog.Logger

	opened bool
	info   camera.StreamInfo
}

// NewLoop validates the configuration and builds a loop.
func NewLoop(cfg Config) (*Loop, error) {
	if cfg.Device == nil {
		return nil, errors.New("capture loop requires a camera device")
	}
	if cfg.Gate == nil {
		return nil, errors.New("capture loop requires a gate")
	}
	if cfg.Exposure == nil {
		return nil, errors.New("capture loop requires an exposure source")
	}
	if cfg.Sink == nil {
		return nil, errors.New("capture loop requires a sink factory")
	}
	return &Loop{
		device:   cfg.Device,
		gate:     cfg.Gate,
		exposure: cfg.Exposure,
		sinkFn:   cfg.Sink,
		entry:    cfg.Entry,
		label:    cfg.Resolution,
		workers:  cfg.Workers,
		deadline: cfg.Deadline,
		store:    cfg.Store,
		logger:   logging.NewComponentLogger(cfg.Logger, "capture"),
	}, nil
}

// Run blocks until the gate shuts down, the burst deadline fires, or ctx is
// canceled. Errors from the camera or the sink factory are fatal; transient
// device timeouts restart the stream in place.
func (l *Loop) Run(ctx context.Context) error {
	defer l.closeDevice()

	for {
		if !l.gate.WaitActive() {
			l.logger.Info("capture loop terminating")
			return nil
		}
		if err := l.ensureOpen(); err != nil {
			return err
		}
		terminate, err := l.runBurst(ctx)
		if err != nil {
			return err
		}
		if terminate {
			return nil
		}
	}
}

// ensureOpen opens and configures the device on the first activation.
func (l *Loop) ensureOpen() error {
	if l.opened {
		return nil
	}
	if err := l.device.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	info, err := l.device.ConfigureStream(camera.StreamRaw)
	if err != nil {
		return fmt.Errorf("configure raw stream: %w", err)
	}
	l.opened = true
	l.info = info
	l.logger.Info("camera opened",
		logging.Int("width", info.Width),
		logging.Int("height", info.Height),
		logging.Int("stride", info.Stride),
		logging.String("pixel_format", info.PixelFormat),
	)
	return nil
}

func (l *Loop) closeDevice() {
	if !l.opened {
		return
	}
	if err := l.device.Close(); err != nil {
		l.logger.Warn("camera close failed", logging.Error(err))
	}
	l.opened = false
}

// runBurst streams one capture burst. The returned bool reports whether the
// loop should terminate instead of going back to the gate wait.
func (l *Loop) runBurst(ctx context.Context) (bool, error) {
	exposure := l.exposure.ExposureMicros()
	if err := l.device.SetExposure(exposure); err != nil {
		return false, fmt.Errorf("set exposure: %w", err)
	}

	out, err := l.sinkFn()
	if err != nil {
		return false, fmt.Errorf("open sink: %w", err)
	}
	out.OnMetadata(l.info)

	pipe, err := encode.New(encode.Config{
		Entry:         l.entry,
		Workers:       l.workers,
		Sink:          out,
		FrameReturned: l.device.ReturnBuffer,
		Logger:        l.logger,
	})
	if err != nil {
		_ = out.Close()
		return false, err
	}
	if err := pipe.Start(); err != nil {
		_ = out.Close()
		return false, err
	}

	session := l.beginSession(ctx, exposure)

	if err := l.device.StartStreaming(); err != nil {
		pipe.Close()
		_ = out.Close()
		return false, fmt.Errorf("start streaming: %w", err)
	}

	l.logger.Info("capture burst started", logging.Uint64("exposure_us", exposure))

	started := time.Now()
	terminate := false
	reason := sessions.EndStop
	var fatal error

pump:
	for {
		switch {
		case l.gate.ShuttingDown():
			terminate = true
			reason = sessions.EndClose
			break pump
		case !l.gate.Active():
			reason = sessions.EndStop
			break pump
		case l.deadline > 0 && time.Since(started) >= l.deadline:
			l.logger.Warn("capture deadline exceeded, terminating",
				logging.Duration("deadline", l.deadline),
			)
			terminate = true
			reason = sessions.EndDeadline
			break pump
		}

		event, err := l.waitEvent(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				terminate = true
				reason = sessions.EndClose
				break pump
			}
			terminate = true
			reason = sessions.EndClose
			fatal = fmt.Errorf("camera wait: %w", err)
			break pump
		}

		switch event.Kind {
		case camera.EventFrame:
			pipe.Submit(event.Frame.Data, event.Frame.Info, event.Frame.Timestamp)
		case camera.EventTimeout:
			l.restartStream()
		}
	}

	if err := l.device.StopStreaming(); err != nil {
		l.logger.Warn("stop streaming failed", logging.Error(err))
	}
	pipe.Close()
	frames := pipe.Submitted()
	if err := out.Close(); err != nil {
		l.logger.Warn("sink close failed", logging.Error(err))
	}
	l.finishSession(ctx, session, frames, reason)

	l.logger.Info("capture burst ended",
		logging.Uint64("frames", frames),
		logging.Duration("elapsed", time.Since(started)),
		logging.String("reason", reason),
	)
	return terminate, fatal
}

// waitEvent bounds the device wait so the pump re-checks the gate at least
// every eventWait.
func (l *Loop) waitEvent(ctx context.Context) (camera.Event, error) {
	waitCtx, cancel := context.WithTimeout(ctx, eventWait)
	defer cancel()
	return l.device.WaitEvent(waitCtx)
}

// restartStream recovers from a device timeout. Only the stream flips; the
// device stays open and configured.
func (l *Loop) restartStream() {
	l.logger.Warn("camera timeout, restarting stream")
	if err := l.device.StopStreaming(); err != nil {
		l.logger.Error("stream stop during restart failed", logging.Error(err))
		return
	}
	if err := l.device.StartStreaming(); err != nil {
		l.logger.Error("stream start during restart failed", logging.Error(err))
	}
}

func (l *Loop) beginSession(ctx context.Context, exposure uint64) *sessions.Session {
	if l.store == nil {
		return nil
	}
	session, err := l.store.Begin(ctx, l.label, exposure)
	if err != nil {
		l.logger.Warn("session record not created", logging.Error(err))
		return nil
	}
	return session
}

func (l *Loop) finishSession(ctx context.Context, session *sessions.Session, frames uint64, reason string) {
	if session == nil {
		return
	}
	if err := l.store.Finish(ctx, session.ID, frames, reason); err != nil {
		l.logger.Warn("session record not finished",
			logging.Error(err),
			logging.String(logging.FieldSession, session.ID),
		)
	}
}
