package cli

import (
	"github.com/rileyhilliard/wgjoin/internal/ui"
	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	upOpts UpOptions

	keysJSON   bool
	keysNative bool

	peerOctet int

	statusInterface string
	statusJSON      bool

	doctorOpts DoctorOptions

	initOpts InitOptions
)

// upCmd provisions this machine as a client of the control plane
var upCmd = &cobra.Command{
	Use:        "up [control-plane]",
	SuggestFor: []string{"connect", "join"},
	Short:      "Provision the tunnel and register with the control plane",
	Long: `Fetch server info from the control plane, make sure a key pair exists,
write the tunnel config, register this client, and bring the interface up.

Only a failed server-info request stops the run. A failed registration
prints the [Peer] stanza to add on the server by hand; a failed activation
or connectivity check is reported as a warning.

Examples:
  sudo wgjoin up 203.0.113.5:8080
  sudo wgjoin up https://vpn.example.com --interface wg1
  sudo wgjoin up --no-activate --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := upOpts
		if len(args) > 0 {
			opts.ControlPlane = args[0]
		}
		opts.Interactive = ui.Interactive()
		return upCommand(cmd.Context(), cmd.OutOrStdout(), opts)
	},
}

// keysCmd ensures the local key pair
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Create the key pair if needed and print the public key",
	Long: `Make sure this machine has a WireGuard key pair and print its public key.

An existing private key is never replaced.

Examples:
  sudo wgjoin keys
  sudo wgjoin keys --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return keysCommand(cmd.OutOrStdout(), keysJSON, keysNative)
	},
}

// peerCmd prints the stanza for manual authorization on the server
var peerCmd = &cobra.Command{
	Use:   "peer",
	Short: "Print the [Peer] stanza to add on the server",
	Long: `Print the [Peer] block that authorizes this client on the server.

Use it when registration did not add the peer automatically. The address is
read from the tunnel config written by 'wgjoin up' unless --octet is given.

Examples:
  sudo wgjoin peer
  sudo wgjoin peer --octet 42`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var octet *int
		if cmd.Flags().Changed("octet") {
			octet = &peerOctet
		}
		return peerCommand(cmd.OutOrStdout(), octet)
	},
}

// statusCmd shows the live interface
var statusCmd = &cobra.Command{
	Use:        "status",
	SuggestFor: []string{"show"},
	Short:      "Show the live state of the tunnel interface",
	Long: `Read the WireGuard interface from the kernel and show its peers,
last handshake, and transfer counters.

Examples:
  sudo wgjoin status
  sudo wgjoin status --interface wg1 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusCommand(cmd.OutOrStdout(), statusInterface, statusJSON)
	},
}

// doctorCmd diagnoses configuration and connectivity issues
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose config, key, and connectivity issues",
	Long: `Run diagnostic checks to identify and fix common issues.

Checks:
  - Config file validity
  - wg, wg-quick, and systemctl availability
  - Key and tunnel config permissions
  - Interface handshake
  - Gateway, internet, and DNS reachability

Examples:
  wgjoin doctor
  sudo wgjoin doctor --fix`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand(cmd.OutOrStdout(), doctorOpts, doctorInputs(doctorOpts.NativeKeys))
	},
}

// initCmd writes a config file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a wgjoin config file",
	Long: `Write a config file so 'wgjoin up' needs no arguments.

Root writes /etc/wgjoin/config.yaml; other users write
~/.config/wgjoin/config.yaml. Guides you through the settings with
interactive prompts.

Examples:
  sudo wgjoin init
  wgjoin init --path ./wgjoin.yaml
  wgjoin init --control-plane 203.0.113.5:8080 --non-interactive`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := initOpts
		if !ui.Interactive() {
			opts.NonInteractive = true
		}
		return Init(cmd.OutOrStdout(), opts)
	},
}

func init() {
	// up command flags
	upCmd.Flags().StringVar(&upOpts.Interface, "interface", "", "WireGuard interface name (default from config, wg0)")
	upCmd.Flags().BoolVar(&upOpts.NoActivate, "no-activate", false, "write the config but leave the interface down")
	upCmd.Flags().BoolVar(&upOpts.SkipChecks, "skip-checks", false, "skip the connectivity checks")
	upCmd.Flags().BoolVar(&upOpts.JSON, "json", false, "output the run report as JSON")
	upCmd.Flags().BoolVar(&upOpts.NativeKeys, "native-keys", false, "generate keys without the wg tool")
	upCmd.Flags().BoolVarP(&upOpts.Yes, "yes", "y", false, "don't ask for confirmation")

	// keys command flags
	keysCmd.Flags().BoolVar(&keysJSON, "json", false, "output in JSON format")
	keysCmd.Flags().BoolVar(&keysNative, "native-keys", false, "generate keys without the wg tool")

	// peer command flags
	peerCmd.Flags().IntVar(&peerOctet, "octet", 0, "last octet of the assigned address (default: read from the tunnel config)")

	// status command flags
	statusCmd.Flags().StringVar(&statusInterface, "interface", "", "WireGuard interface name (default from config)")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output in JSON format")

	// doctor command flags
	doctorCmd.Flags().BoolVar(&doctorOpts.JSON, "json", false, "output in JSON format")
	doctorCmd.Flags().BoolVar(&doctorOpts.Fix, "fix", false, "attempt automatic fixes where possible")
	doctorCmd.Flags().BoolVar(&doctorOpts.NativeKeys, "native-keys", false, "don't require the wg tool")

	// init command flags
	initCmd.Flags().StringVar(&initOpts.Path, "path", "", "where to write the config")
	initCmd.Flags().StringVar(&initOpts.ControlPlane, "control-plane", "", "control plane address")
	initCmd.Flags().StringVar(&initOpts.Interface, "interface", "", "WireGuard interface name")
	initCmd.Flags().StringVar(&initOpts.Activator, "activator", "", "systemd, wg-quick, or none")
	initCmd.Flags().BoolVar(&initOpts.Overwrite, "force", false, "overwrite an existing config")
	initCmd.Flags().BoolVar(&initOpts.NonInteractive, "non-interactive", false, "skip prompts")

	rootCmd.AddCommand(upCmd, keysCmd, peerCmd, statusCmd, doctorCmd, initCmd)
}
