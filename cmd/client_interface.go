package cmd

import (
	"context"

	"firestige.xyz/netmon/internal/gmcp"
)

// ControlClient delivers commands to a running monitor.
type ControlClient interface {
	Send(ctx context.Context, cmds ...gmcp.Command) error
}
