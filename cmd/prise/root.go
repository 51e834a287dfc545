package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "prise",
	Short: "prise is a scriptable terminal multiplexer server",
	Long: `prise owns one or more pseudo-terminals, attaches client processes to
them over a local Unix socket, and drives layout and input-routing
decisions through a user-supplied Lua script.`,
}

// Execute runs the CLI and returns the process exit code, mirroring
// the teacher's thin main.go-delegates-to-subcommands split.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
