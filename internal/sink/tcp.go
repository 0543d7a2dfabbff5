package sink

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"stereocap/internal/camera"
	"stereocap/internal/control"
	"stereocap/internal/logging"
)

// TCP streams encoded frames to a workstation over a single connection. The
// receiver knows the frame byte length from the negotiated resolution, so
// frames are written back to back without framing.
type TCP struct {
	conn   net.Conn
	logger *slog.Logger
	frames uint64
}

// DialTCP connects to a tcp://host:port frame endpoint.
func DialTCP(address string, timeout time.Duration, logger *slog.Logger) (*TCP, error) {
	hostPort, err := control.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialTimeout("tcp", hostPort, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect frame sink %s: %w", hostPort, err)
	}
	return &TCP{conn: conn, logger: logging.NewComponentLogger(logger, "sink")}, nil
}

// Deliver writes the whole buffer to the connection. net.Conn.Write only
// returns short on error, so no manual write loop is needed.
func (t *TCP) Deliver(data []byte, timestamp time.Time) error {
	if _, err := t.conn.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	t.frames++
	t.logger.Debug("frame delivered",
		logging.Uint64("frame", t.frames-1),
		logging.Int("bytes", len(data)),
		logging.Duration("age", time.Since(timestamp)),
	)
	return nil
}

// OnMetadata logs the raw stream geometry once it is known.
func (t *TCP) OnMetadata(info camera.StreamInfo) {
	t.logger.Info("raw stream configured",
		logging.Int("width", info.Width),
		logging.Int("height", info.Height),
		logging.Int("stride", info.Stride),
		logging.String("format", info.PixelFormat),
	)
}

// Close terminates the burst connection.
func (t *TCP) Close() error {
	return t.conn.Close()
}
