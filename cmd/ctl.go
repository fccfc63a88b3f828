package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/netmon/internal/command"
	"firestige.xyz/netmon/internal/gmcp"
)

var (
	ctlSocket   string
	ctlDataFile string
	ctlTimeout  time.Duration
)

var ctlCmd = &cobra.Command{
	Use:   "ctl <command> [data]",
	Short: "Send a control command to a running monitor",
	Long: `Send a command envelope over the monitor's Unix control socket.
The monitor must run with control.type=unix.

Commands: start, stop, pause, throttle, updateConfig, showDefaultConfig, showExampleConfig

Examples:
  netmon ctl pause
  netmon ctl throttle 20
  netmon ctl updateConfig --data-file filters.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data := ""
		if len(args) > 1 {
			data = args[1]
		}
		if ctlDataFile != "" {
			b, err := os.ReadFile(ctlDataFile)
			if err != nil {
				return fmt.Errorf("failed to read data file: %w", err)
			}
			data = string(b)
		}
		client := command.NewUDSClient(ctlSocket, ctlTimeout)
		return runCtl(cmd.Context(), client, args[0], data, cmd.OutOrStdout())
	},
}

func init() {
	ctlCmd.Flags().StringVarP(&ctlSocket, "socket", "s", command.DefaultSocketPath,
		"control socket path")
	ctlCmd.Flags().StringVar(&ctlDataFile, "data-file", "",
		"read the command data from a file")
	ctlCmd.Flags().DurationVar(&ctlTimeout, "timeout", 10*time.Second,
		"connect and write timeout")
}

// runCtl validates the command name and sends it.
func runCtl(ctx context.Context, client ControlClient, name, data string, out io.Writer) error {
	t := gmcp.ParseCommandType(name)
	if t == gmcp.CommandUnknown {
		return fmt.Errorf("unknown command %q", name)
	}
	if err := client.Send(ctx, gmcp.Command{Type: t, Data: strings.TrimSpace(data)}); err != nil {
		return fmt.Errorf("failed to send %s: %w", t, err)
	}
	fmt.Fprintf(out, "✓ %s sent\n", t)
	return nil
}
