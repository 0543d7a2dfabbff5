package main

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stereocap/internal/config"
	"stereocap/internal/control"
)

// newConsoleCommand serves the control endpoint and forwards operator
// commands to the connected daemon. The CLI side listens; the daemon dials
// in from the rig at startup.
func newConsoleCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	var listenFlag string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Serve the control endpoint and drive a connected daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			address := listenFlag
			if address == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				address = cfg.Network.ControlAddress
			}
			hostPort, err := control.ParseAddress(address)
			if err != nil {
				return err
			}

			listener, err := net.Listen("tcp", hostPort)
			if err != nil {
				return fmt.Errorf("listen on control endpoint: %w", err)
			}
			defer listener.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Listening on %s, waiting for the daemon...\n", hostPort)
			conn, err := listener.Accept()
			if err != nil {
				return fmt.Errorf("accept daemon connection: %w", err)
			}
			defer conn.Close()
			fmt.Fprintf(out, "Daemon connected from %s\n", conn.RemoteAddr())
			fmt.Fprintln(out, "Commands: start, stop, exposure <us>, close, quit")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprint(out, "> ")
			for scanner.Scan() {
				msg, done, err := parseConsoleLine(scanner.Text())
				if err != nil {
					fmt.Fprintln(out, err)
					fmt.Fprint(out, "> ")
					continue
				}
				if msg != nil {
					if _, err := fmt.Fprintf(conn, "%s\n", msg.Line()); err != nil {
						return fmt.Errorf("send %s: %w", msg.Key, err)
					}
				}
				if done {
					return nil
				}
				fmt.Fprint(out, "> ")
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&listenFlag, "listen", "", "Control endpoint to serve (default from config)")
	return cmd
}

// parseConsoleLine maps an operator line to a wire message. The returned bool
// reports whether the console should exit.
func parseConsoleLine(line string) (*control.Message, bool, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(line)))
	if len(fields) == 0 {
		return nil, false, nil
	}
	switch fields[0] {
	case "start":
		return &control.Message{Key: control.KeyStart}, false, nil
	case "stop":
		return &control.Message{Key: control.KeyStop}, false, nil
	case "close":
		return &control.Message{Key: control.KeyClose}, true, nil
	case "quit", "exit":
		return nil, true, nil
	case "exposure":
		if len(fields) != 2 {
			return nil, false, fmt.Errorf("usage: exposure <microseconds>")
		}
		micros, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("invalid exposure %q", fields[1])
		}
		return &control.Message{Key: control.KeyExposure, Value: micros}, false, nil
	default:
		return nil, false, fmt.Errorf("unknown command %q", fields[0])
	}
}
