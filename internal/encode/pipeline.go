package encode

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"stereocap/internal/camera"
	"stereocap/internal/geometry"
	"stereocap/internal/logging"
)

// queueWait bounds every condition-variable wait in the pipeline. Abort and
// enqueue paths broadcast explicitly; the timeout is only a safety net.
const queueWait = 200 * time.Millisecond

// Sink receives ordered encoded buffers. Deliver is called from the
// reassembler goroutine in strict submission order; ownership of the buffer
// transfers to the sink.
type Sink interface {
	Deliver(data []byte, timestamp time.Time) error
}

// Item is one unit of encode work. Raw is a borrowed view into a camera
// buffer, valid only until the worker has copied the samples out. Info is
// opaque to the pipeline.
type Item struct {
	Raw       []byte
	Info      camera.StreamInfo
	Timestamp time.Time
	Seq       uint64
}

// Encoded is the owned result of deinterleaving one frame.
type Encoded struct {
	Data      []byte
	Timestamp time.Time
	Seq       uint64
}

// Config assembles a Pipeline.
type Config struct {
	Entry   geometry.Entry
	Workers int
	Sink    Sink
	// FrameReturned is invoked once per delivered frame, after the encoded
	// buffer has been handed to the sink, so the camera can recycle the
	// originating raw buffer slot. May be nil.
	FrameReturned func()
	Logger        *slog.Logger
}

// Pipeline deinterleaves raw frames across a worker pool and restores strict
// submission order on the output side. Construct with New, then Start; Close
// drains every submitted frame before returning.
type Pipeline struct {
	entry   geometry.Entry
	workers int
	sink    Sink
	frameFn func()
	logger  *slog.Logger

	inMu       sync.Mutex
	inCond     *sync.Cond
	input      []Item
	abortInput bool
	nextSeq    uint64

	outMu       sync.Mutex
	outCond     *sync.Cond
	outputs     [][]Encoded
	abortOutput bool

	workerWG sync.WaitGroup
	outputWG sync.WaitGroup

	startMu sync.Mutex
	started bool
	closed  bool
}

// New constructs a pipeline. Workers defaults to 4 when non-positive,
// matching the worker count the sensor rig was tuned with.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Sink == nil {
		return nil, errors.New("encode pipeline requires a sink")
	}
	if cfg.Entry.ImageWidth <= 0 || cfg.Entry.ImageHeight <= 0 {
		return nil, errors.New("encode pipeline requires resolved geometry")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	p := &Pipeline{
		entry:   cfg.Entry,
		workers: workers,
		sink:    cfg.Sink,
		frameFn: cfg.FrameReturned,
		logger:  logging.NewComponentLogger(cfg.Logger, "encode"),
		outputs: make([][]Encoded, workers),
	}
	p.inCond = sync.NewCond(&p.inMu)
	p.outCond = sync.NewCond(&p.outMu)
	return p, nil
}

// Start launches the worker pool and the reassembler.
func (p *Pipeline) Start() error {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.started {
		return errors.New("encode pipeline already started")
	}
	p.started = true

	p.outputWG.Add(1)
	go p.reassemble()

	p.workerWG.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker(i)
	}

	p.logger.Debug("encode pipeline started",
		logging.Int("workers", p.workers),
		logging.String("geometry", p.entry.String()),
	)
	return nil
}

// Submit queues a raw frame and returns its sequence index. The index is
// assigned under the queue lock, so submission order defines delivery order.
// Submitting after Close is a programming error; the frame is dropped.
func (p *Pipeline) Submit(raw []byte, info camera.StreamInfo, timestamp time.Time) uint64 {
	p.inMu.Lock()
	if p.abortInput {
		seq := p.nextSeq
		p.inMu.Unlock()
		p.logger.Warn("frame submitted after pipeline close; dropped",
			logging.Uint64("seq", seq),
		)
		return seq
	}
	seq := p.nextSeq
	p.nextSeq++
	p.input = append(p.input, Item{Raw: raw, Info: info, Timestamp: timestamp, Seq: seq})
	p.inMu.Unlock()
	p.inCond.Broadcast()
	return seq
}

// Close stops the pipeline, draining every submitted frame through the sink
// before returning. Safe to call once; later calls are no-ops.
func (p *Pipeline) Close() {
	p.startMu.Lock()
	if p.closed || !p.started {
		p.closed = true
		p.startMu.Unlock()
		return
	}
	p.closed = true
	p.startMu.Unlock()

	p.inMu.Lock()
	p.abortInput = true
	p.inMu.Unlock()
	p.inCond.Broadcast()
	p.workerWG.Wait()

	p.outMu.Lock()
	p.abortOutput = true
	p.outMu.Unlock()
	p.outCond.Broadcast()
	p.outputWG.Wait()

	p.logger.Debug("encode pipeline closed")
}

// Submitted reports how many frames have been assigned a sequence index.
func (p *Pipeline) Submitted() uint64 {
	p.inMu.Lock()
	defer p.inMu.Unlock()
	return p.nextSeq
}

func (p *Pipeline) worker(num int) {
	defer p.workerWG.Done()

	var frames uint64
	var encodeTime time.Duration

	for {
		item, ok := p.nextItem()
		if !ok {
			if frames > 0 {
				p.logger.Debug("encode worker finished",
					logging.Int("worker", num),
					logging.Uint64("frames", frames),
					logging.Duration("mean_encode_time", encodeTime/time.Duration(frames)),
				)
			}
			return
		}

		start := time.Now()
		data, err := Deinterleave(item.Raw, p.entry)
		encodeTime += time.Since(start)
		frames++
		if err != nil {
			// Geometry was validated at construction, so only a truncated
			// camera buffer can land here. The slot must still flow through
			// reassembly or the expected-index chain would stall, so an
			// empty buffer takes its place.
			p.logger.Error("deinterleave failed", logging.Error(err), logging.Uint64("seq", item.Seq))
			data = make([]byte, 0)
		}

		p.outMu.Lock()
		p.outputs[num] = append(p.outputs[num], Encoded{Data: data, Timestamp: item.Timestamp, Seq: item.Seq})
		p.outMu.Unlock()
		p.outCond.Broadcast()
	}
}

// nextItem blocks until a frame is queued or shutdown drains the queue dry.
// The second return is false only when the abort flag is set and the queue
// is empty, so frames submitted before Close are never dropped.
func (p *Pipeline) nextItem() (Item, bool) {
	p.inMu.Lock()
	defer p.inMu.Unlock()
	for {
		if len(p.input) > 0 {
			item := p.input[0]
			p.input = p.input[1:]
			return item, true
		}
		if p.abortInput {
			return Item{}, false
		}
		waitWithTimeout(p.inCond, queueWait)
	}
}

func (p *Pipeline) reassemble() {
	defer p.outputWG.Done()

	var expected uint64
	for {
		item, ok := p.nextOrdered(expected)
		if !ok {
			return
		}

		if p.frameFn != nil {
			p.frameFn()
		}
		if err := p.sink.Deliver(item.Data, item.Timestamp); err != nil {
			p.logger.Warn("sink rejected frame",
				logging.Error(err),
				logging.Uint64("seq", item.Seq),
			)
		}
		expected++
	}
}

// nextOrdered scans every worker queue for the frame with the expected index.
// Shutdown completes only when the abort flag and the emptiness of all queues
// are observed in the same pass; a queue that received a final frame
// concurrently with the abort keeps the reassembler alive until it drains.
func (p *Pipeline) nextOrdered(expected uint64) (Encoded, bool) {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	for {
		abort := p.abortOutput
		for i := range p.outputs {
			queue := p.outputs[i]
			if len(queue) == 0 {
				continue
			}
			abort = false
			if queue[0].Seq == expected {
				item := queue[0]
				p.outputs[i] = queue[1:]
				return item, true
			}
		}
		if abort {
			return Encoded{}, false
		}
		waitWithTimeout(p.outCond, queueWait)
	}
}

// waitWithTimeout waits on cond, waking after at most d even if no broadcast
// arrives. Abort and enqueue paths broadcast explicitly; the timer only
// guards against a missed wakeup.
func waitWithTimeout(cond *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, cond.Broadcast)
	defer timer.Stop()
	cond.Wait()
}
