package control

import (
	"log/slog"
	"sync"

	"stereocap/internal/logging"
)

// Controller drives the capture state machine from dequeued control
// messages. It is intentionally flat: START and STOP are idempotent gate
// flips, EXPOSURE is guarded by the gate rather than tracked as a state of
// its own, and CLOSE is terminal.
type Controller struct {
	gate   *Gate
	logger *slog.Logger

	mu       sync.Mutex
	exposure uint64

	done chan struct{}
}

// NewController creates a controller writing to the given gate. The initial
// exposure is the configured default, in microseconds.
func NewController(gate *Gate, exposureMicros uint64, logger *slog.Logger) *Controller {
	return &Controller{
		gate:     gate,
		logger:   logging.NewComponentLogger(logger, "controller"),
		exposure: exposureMicros,
		done:     make(chan struct{}),
	}
}

// ExposureMicros returns the pending exposure setting. The capture loop reads
// it when a burst starts; the controller is the only writer.
func (c *Controller) ExposureMicros() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exposure
}

// Done is closed once the controller has terminated, whether by CLOSE or by
// losing the control channel.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Run consumes messages until CLOSE arrives or the message stream closes.
// Either way the gate is shut down on exit so the capture loop cannot be left
// waiting on state that will never change.
//
// After CLOSE the stream keeps being drained until the receiver closes it: a
// peer that holds the connection open and keeps writing must not be able to
// fill the channel and wedge the receiver on a blocked send.
func (c *Controller) Run(msgs <-chan Message) {
	defer func() {
		for range msgs {
		}
	}()
	defer close(c.done)
	defer c.gate.Shutdown()

	for msg := range msgs {
		switch msg.Key {
		case KeyStart:
			c.logger.Info("capture start requested")
			c.gate.Activate()
		case KeyStop:
			c.logger.Info("capture stop requested")
			c.gate.Deactivate()
		case KeyExposure:
			c.applyExposure(msg.Value)
		case KeyClose:
			c.logger.Info("close requested, shutting down")
			return
		default:
			c.logger.Warn("unrecognized control message dropped", logging.String("key", msg.Key))
		}
	}
	c.logger.Warn("control channel closed, shutting down")
}

// applyExposure updates the pending exposure, but never mid-burst: camera
// parameters must not change while frames are streaming.
func (c *Controller) applyExposure(micros uint64) {
	if c.gate.Active() {
		c.logger.Warn("exposure change rejected while capturing", logging.Uint64("exposure_us", micros))
		return
	}
	c.mu.Lock()
	c.exposure = micros
	c.mu.Unlock()
	c.logger.Info("exposure updated", logging.Uint64("exposure_us", micros))
}
