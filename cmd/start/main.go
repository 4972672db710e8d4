package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/start/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "start",
		Short: "Serve a start application",
		Long: `start serves server-rendered pages, server functions and API
routes from one HTTP handler.

Pages render synchronously, after every suspense boundary resolves, or
as a stream that flushes the shell first. Server functions answer both
enhanced clients and plain HTML forms.

Configuration comes from start.yaml (or --config) and START_* variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the config file (default ./start.yaml)")

	rootCmd.AddCommand(
		serveCmd(&configPath),
		routesCmd(&configPath),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(errors.FromError(err, "E160"))
		os.Exit(1)
	}
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
