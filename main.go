// Package main is the entry point for the netmon traffic monitor.
package main

import (
	"errors"
	"fmt"
	"os"

	"firestige.xyz/netmon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, cmd.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
