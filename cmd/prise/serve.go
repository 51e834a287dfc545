package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/prise-term/prise/internal/config"
	"github.com/prise-term/prise/internal/server"
)

var (
	serveConfigPath string
	serveSocketPath string
	serveScriptPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prise server",
	Long: `Start the prise server: listen on the configured Unix socket,
own PTY sessions, and run until quit() is called from the script bridge
or the process receives SIGTERM/SIGINT.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to config.yaml (default: "+config.DefaultConfigPath()+")")
	serveCmd.Flags().StringVar(&serveSocketPath, "socket", "", "override socket_path from config")
	serveCmd.Flags().StringVar(&serveScriptPath, "script", "", "override script_path from config")
	rootCmd.AddCommand(serveCmd)
}

// runServe resolves config (flags > YAML file > built-in defaults, per
// SPEC_FULL.md §6) and runs the server.
func runServe(cmd *cobra.Command, args []string) error {
	explicit := serveConfigPath != ""
	path := serveConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return fmt.Errorf("prise serve: %w", err)
	}

	if serveSocketPath != "" {
		cfg.SocketPath = serveSocketPath
	}
	if serveScriptPath != "" {
		cfg.ScriptPath = serveScriptPath
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	srv, err := server.New(cfg, log)
	if err != nil {
		return fmt.Errorf("prise serve: %w", err)
	}
	return srv.Run()
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
