package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags; "dev" otherwise.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the prise version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("prise", Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
