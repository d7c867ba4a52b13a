package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/wgjoin/internal/config"
	"github.com/rileyhilliard/wgjoin/internal/errors"
	"github.com/rileyhilliard/wgjoin/internal/ui"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Path           string // Where to write; defaults by privilege
	ControlPlane   string // Pre-specified control plane address
	Interface      string
	Activator      string
	Overwrite      bool // Overwrite existing config without asking
	NonInteractive bool // Skip prompts, use flags and defaults
}

// defaultInitPath is /etc/wgjoin/config.yaml for root and the per-user
// config file otherwise.
func defaultInitPath() (string, error) {
	if os.Geteuid() == 0 {
		return config.SystemConfigPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't find your home directory",
			"Pass the destination with --path")
	}
	return filepath.Join(home, config.UserConfigDir, config.UserConfigFile), nil
}

// Init writes a config file, prompting for the values that matter.
func Init(out io.Writer, opts InitOptions) error {
	path := opts.Path
	if path == "" {
		var err error
		if path, err = defaultInitPath(); err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", path),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", path)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	cfg.ControlPlane = opts.ControlPlane
	if opts.Interface != "" {
		cfg.Interface = opts.Interface
	}
	if opts.Activator != "" {
		cfg.Activator = opts.Activator
	}

	if opts.NonInteractive {
		if err := config.RequireControlPlane(cfg); err != nil {
			return err
		}
	} else if err := promptInit(cfg); err != nil {
		return err
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Write(path, cfg, true); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Wrote %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), path)
	fmt.Fprintf(out, "\n  Next: %s\n", ui.MutedStyle().Render("sudo wgjoin up"))
	return nil
}

func promptInit(cfg *config.Config) error {
	dns := strings.Join(cfg.DNS, ", ")

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Control plane address").
				Description("Host, host:port, or URL of the WireGuard control plane").
				Placeholder("203.0.113.5:8080").
				Value(&cfg.ControlPlane).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("an address is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("API token (optional)").
				Description("Sent as a bearer token; leave empty if the control plane is open").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Token),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Interface name").
				Value(&cfg.Interface).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("interface name is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("How should the interface be brought up?").
				Options(
					huh.NewOption("systemd (wg-quick@<iface>, survives reboots)", config.ActivatorSystemd),
					huh.NewOption("wg-quick up/down", config.ActivatorWgQuick),
					huh.NewOption("Leave it to me", config.ActivatorNone),
				).
				Value(&cfg.Activator),
			huh.NewInput().
				Title("DNS servers").
				Description("Comma-separated resolver addresses for the tunnel").
				Value(&dns),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive flag")
	}

	cfg.ControlPlane = strings.TrimSpace(cfg.ControlPlane)
	cfg.Interface = strings.TrimSpace(cfg.Interface)
	cfg.DNS = nil
	for _, d := range strings.Split(dns, ",") {
		if d = strings.TrimSpace(d); d != "" {
			cfg.DNS = append(cfg.DNS, d)
		}
	}
	return nil
}
