package control

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrUnsupportedScheme indicates an address whose scheme is not tcp.
var ErrUnsupportedScheme = errors.New("unsupported address scheme")

// ParseAddress validates a scheme://host:port string and returns the host:port
// part. Only the tcp scheme is supported; anything else is a configuration
// error surfaced at startup, before any thread runs.
func ParseAddress(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return "", errors.New("address is required")
	}
	scheme, hostPort, found := strings.Cut(trimmed, "://")
	if !found {
		return "", fmt.Errorf("address %q missing scheme, expected tcp://host:port", trimmed)
	}
	if !strings.EqualFold(scheme, "tcp") {
		return "", fmt.Errorf("%w: %q (only tcp is supported)", ErrUnsupportedScheme, scheme)
	}
	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		return "", fmt.Errorf("address %q: %w", trimmed, err)
	}
	if host == "" {
		return "", fmt.Errorf("address %q missing host", trimmed)
	}
	if port == "" {
		return "", fmt.Errorf("address %q missing port", trimmed)
	}
	return hostPort, nil
}
