// Package encode turns raw stereo sensor buffers into ordered, corrected
// image buffers.
//
// A Pipeline owns a shared input queue, a fixed pool of worker goroutines,
// and one output queue per worker. Workers pull frames in whatever order they
// become free, deinterleave the four quadrant bands, and append the result to
// their own output queue. A single reassembler goroutine merges the per-worker
// queues back into strict submission order before handing buffers to the sink.
//
// The per-worker output queues are deliberate: they keep the worker hot path
// free of cross-worker contention, at the cost of an explicit reassembly scan.
// Do not collapse them into a single shared priority queue without re-checking
// the ordering and shutdown-drain guarantees covered by the package tests.
package encode
