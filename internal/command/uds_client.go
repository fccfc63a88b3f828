package command

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"firestige.xyz/netmon/internal/gmcp"
)

// UDSClient sends command envelopes to a running monitor over its control socket.
type UDSClient struct {
	socketPath string
	timeout    time.Duration
}

// NewUDSClient creates a new UDS client.
func NewUDSClient(socketPath string, timeout time.Duration) *UDSClient {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &UDSClient{
		socketPath: socketPath,
		timeout:    timeout,
	}
}

// Send writes all commands as envelopes on a single line and returns once the
// server has queued it.
func (c *UDSClient) Send(ctx context.Context, cmds ...gmcp.Command) error {
	line, err := EncodeLine(cmds...)
	if err != nil {
		return err
	}

	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to socket %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	if _, err := conn.Write(line); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}

	ack, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read command ack: %w", err)
	}
	if strings.TrimSpace(ack) != strings.TrimSpace(ackLine) {
		return fmt.Errorf("unexpected command ack %q", ack)
	}
	return nil
}

// EncodeLine encodes commands as consecutive envelopes terminated by a newline.
func EncodeLine(cmds ...gmcp.Command) ([]byte, error) {
	var line []byte
	for _, cmd := range cmds {
		env, err := gmcp.EncodeCommand(cmd)
		if err != nil {
			return nil, err
		}
		line = append(line, env...)
	}
	return append(line, '\n'), nil
}
