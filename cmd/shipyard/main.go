// Command shipyard serves the Starship Deets demo: streamed page renders
// and server actions over HTTP and websockets.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/shipyard"
	apperrors "github.com/vango-dev/shipyard/internal/errors"
)

// Version information set at build time.
var (
	version = shipyard.Version
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		apperrors.PrintError(err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "shipyard",
		Short: "Streaming render and server action server",
		Long: `Shipyard streams server-rendered pages as component rows and
dispatches server actions posted by the browser.

Routes:
  GET  /rsc/{id}      stream the page for a ship
  POST /action/{id}   run the action named by the rsc-action header
  GET  /live/{id}     the page stream over a websocket
  GET  /metrics       Prometheus metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				apperrors.DisableColors()
			}
		},
	}
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored error output")

	cmd.AddCommand(
		serveCmd(),
		actionsCmd(),
		configCmd(),
		versionCmd(),
	)
	return cmd
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
