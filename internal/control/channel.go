package control

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"stereocap/internal/logging"
)

// minMessageBytes is the smallest read treated as a real message. Shorter
// reads are how the peer's close (or a dead socket) shows up, matching the
// wire behavior the operator console has always had.
const minMessageBytes = 3

// Channel reads control messages from a TCP connection and hands them to a
// consumer. The receive loop owns the connection; once it observes an error
// or a short read it closes the message stream, which the Controller treats
// as an instruction to shut everything down.
type Channel struct {
	conn   net.Conn
	logger *slog.Logger
	msgs   chan Message
}

// Dial connects to the control endpoint. Connection failure is fatal for the
// caller: capture must not start without a working control channel.
func Dial(address string, timeout time.Duration, logger *slog.Logger) (*Channel, error) {
	hostPort, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialTimeout("tcp", hostPort, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect control channel %s: %w", hostPort, err)
	}
	return NewChannel(conn, logger), nil
}

// NewChannel wraps an established connection. Used directly by tests and by
// Dial.
func NewChannel(conn net.Conn, logger *slog.Logger) *Channel {
	return &Channel{
		conn:   conn,
		logger: logging.NewComponentLogger(logger, "control-channel"),
		msgs:   make(chan Message, 16),
	}
}

// Messages returns the stream of parsed control messages. The channel is
// closed when the connection dies.
func (c *Channel) Messages() <-chan Message {
	return c.msgs
}

// Run blocks reading the connection until it fails or closes. Each
// successful read of at least minMessageBytes is parsed as exactly one
// message; the peer writes one message per segment.
func (c *Channel) Run() {
	defer close(c.msgs)

	buf := make([]byte, 1024)
	for {
		n, err := c.conn.Read(buf)
		if err != nil || n < minMessageBytes {
			if err != nil {
				c.logger.Warn("control connection lost", logging.Error(err))
			} else {
				c.logger.Warn("control connection closed by peer", logging.Int("bytes", n))
			}
			return
		}
		msg := ParseMessage(string(buf[:n]))
		c.logger.Debug("control message received",
			logging.String("key", msg.Key),
			logging.Uint64("value", msg.Value),
		)
		c.msgs <- msg
	}
}

// Close tears down the connection, unblocking Run.
func (c *Channel) Close() error {
	return c.conn.Close()
}
