package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rileyhilliard/wgjoin/internal/errors"
	"github.com/rileyhilliard/wgjoin/internal/logger"
	"github.com/rileyhilliard/wgjoin/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "wgjoin",
	Short: "Provision a WireGuard client and register it with a control plane",
	Long: `wgjoin sets up this machine as a WireGuard client.

It asks the control plane for the server's key and an address, makes sure a
local key pair exists, writes the tunnel config, registers the client, and
brings the interface up.

Examples:
  sudo wgjoin up vpn.example.com
  wgjoin doctor
  wgjoin peer`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.ConfigureColors(os.Stdout, noColor)
		if verbose {
			logger.SetDefault(logger.NewWriterLogger(os.Stderr, "wgjoin", true))
		}
	},
}

func init() {
	// Suggestions are printed by Execute in the structured error format;
	// cobra's own "Did you mean" text would repeat them.
	rootCmd.DisableSuggestions = true
	rootCmd.SuggestionsMinimumDistance = 2
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./wgjoin.yaml, ~/.config/wgjoin/config.yaml, /etc/wgjoin/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Config returns the --config flag value.
func Config() string {
	return cfgFile
}

// Execute runs the root command and exits with a non-zero code on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	if code, ok := errors.GetExitCode(err); ok {
		os.Exit(code)
	}

	if isUnknownCommandError(err) {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.ErrorStyle().Render(ui.SymbolFail), err)
		if name := extractUnknownCommand(err); name != "" {
			fmt.Fprintf(os.Stderr, "\n  '%s' isn't a wgjoin command. Run 'wgjoin --help' to see what is.\n", name)
			if similar := suggestCommands(name); len(similar) > 0 {
				fmt.Fprintf(os.Stderr, "  Did you mean: %s?\n", strings.Join(similar, ", "))
			}
		}
		os.Exit(1)
	}

	fmt.Fprint(os.Stderr, formatError(err))
	os.Exit(1)
}

// suggestCommands returns subcommands close to name, by edit distance,
// prefix, or a command's SuggestFor list.
func suggestCommands(name string) []string {
	return rootCmd.SuggestionsFor(name)
}

// formatError renders structured errors as-is and prefixes anything else.
func formatError(err error) string {
	if e, ok := err.(*errors.Error); ok {
		return e.Error()
	}
	return fmt.Sprintf("%s %v\n", ui.SymbolFail, err)
}

func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// extractUnknownCommand pulls "foo" out of `unknown command "foo" for "wgjoin"`.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
