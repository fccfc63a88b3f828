// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

// ErrUsage is returned when no capture target was given.
var ErrUsage = errors.New("USAGE: netmon <NETWORK INTERFACE>")

var (
	// Global flags
	configFile  string
	filtersFile string
	readFile    string
	captureType string
	bpfFilter   string
	logLevel    string
)

// rootCmd captures on the interface named by its argument.
var rootCmd = &cobra.Command{
	Use:   "netmon [interface]",
	Short: "netmon - live network traffic monitor",
	Long: `netmon captures frames from a network interface, dissects Ethernet, IPv4, IPv6,
ARP, TCP, UDP, ICMP and ICMPv6, and emits every frame matched by the active filter
set as a framed JSON event.

The filter set and the run state are controlled at runtime through command
envelopes on the control channel (stdin by default):
  start, stop, pause, throttle, updateConfig, showDefaultConfig, showExampleConfig`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		iface := ""
		if len(args) > 0 {
			iface = args[0]
		}
		return runMonitor(cmd.Context(), monitorOptions{
			Interface:   iface,
			ConfigFile:  configFile,
			FiltersFile: filtersFile,
			ReadFile:    readFile,
			CaptureType: captureType,
			BPFFilter:   bpfFilter,
			LogLevel:    logLevel,
		}, cmd.InOrStdin(), cmd.OutOrStdout())
	},
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "",
		"config file path (YAML or JSON)")
	rootCmd.Flags().StringVarP(&filtersFile, "filters", "f", "",
		"initial filter configuration (JSON)")
	rootCmd.Flags().StringVarP(&readFile, "read", "r", "",
		"read frames from a pcap file instead of an interface")
	rootCmd.Flags().StringVar(&captureType, "capture-type", "",
		"capture source: pcap, afpacket or file")
	rootCmd.Flags().StringVar(&bpfFilter, "bpf", "",
		"BPF expression applied by the capture source")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "",
		"log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(ctlCmd)
}
