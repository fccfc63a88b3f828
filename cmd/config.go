package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alecthomas/chroma/quick"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/netmon/internal/filter"
)

var (
	configFormat string
	configColor  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print built-in filter configurations",
}

var configDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the default (empty) filter configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return renderConfig(cmd.OutOrStdout(), filter.Default(), configFormat, configColor)
	},
}

var configExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print an illustrative filter configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return renderConfig(cmd.OutOrStdout(), filter.Example(), configFormat, configColor)
	},
}

func init() {
	configCmd.PersistentFlags().StringVar(&configFormat, "format", "json", "output format: json or yaml")
	configCmd.PersistentFlags().BoolVar(&configColor, "color", false, "syntax highlight the output")
	configCmd.AddCommand(configDefaultCmd)
	configCmd.AddCommand(configExampleCmd)
}

// renderConfig writes cfg in the requested format.
func renderConfig(out io.Writer, cfg *filter.Config, format string, color bool) error {
	var (
		doc []byte
		err error
	)
	switch format {
	case "", "json":
		format = "json"
		doc, err = json.MarshalIndent(cfg, "", "  ")
		doc = append(doc, '\n')
	case "yaml", "yml":
		format = "yaml"
		doc, err = yaml.Marshal(cfg)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	if color {
		return quick.Highlight(out, string(doc), format, "terminal16", "base16-snazzy")
	}
	_, err = out.Write(doc)
	return err
}
