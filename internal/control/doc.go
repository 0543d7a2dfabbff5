// Package control implements the capture control plane: the TCP message
// channel, the line protocol, and the state machine that gates capture.
//
// The daemon dials the operator's control endpoint once at startup and reads
// line-oriented "KEY = VALUE" messages from it. A Controller consumes those
// messages and is the sole writer of the capture Gate and the pending
// exposure value; the capture loop only ever reads them. Losing the control
// connection is treated the same as CLOSE: capture winds down rather than
// spinning forever against a dead channel.
package control
