package config

import (
	"fmt"
	"net/netip"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rileyhilliard/wgjoin/internal/errors"
)

// Linux caps interface names at IFNAMSIZ-1 bytes.
var interfaceNameRe = regexp.MustCompile(`^[a-zA-Z0-9_=+.-]{1,15}$`)

// Validate checks the config for errors and returns structured error messages.
// It does not require a control plane; see RequireControlPlane.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but wgjoin only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade wgjoin or lower the version field")
	}

	if !interfaceNameRe.MatchString(cfg.Interface) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a usable interface name", cfg.Interface),
			"Use up to 15 letters, digits, or _=+.- characters, like wg0")
	}

	if strings.TrimSpace(cfg.KeyDir) == "" {
		return errors.New(errors.ErrConfig, "key_dir is empty", "Set key_dir, e.g. /etc/wireguard")
	}
	if strings.TrimSpace(cfg.ConfigDir) == "" {
		return errors.New(errors.ErrConfig, "config_dir is empty", "Set config_dir, e.g. /etc/wireguard")
	}

	switch cfg.Activator {
	case ActivatorSystemd, ActivatorWgQuick, ActivatorNone:
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown activator '%s'", cfg.Activator),
			"Use one of: systemd, wg-quick, none")
	}
	if cfg.Activator == ActivatorSystemd && filepath.Clean(cfg.ConfigDir) != WireGuardDir {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("The systemd activator can't use config_dir '%s'", cfg.ConfigDir),
			errors.Checklist(
				"wg-quick@<iface>.service only reads "+WireGuardDir+"/<iface>.conf",
				"Set config_dir to "+WireGuardDir,
				"Or use activator: wg-quick, which takes the config path directly"))
	}

	for _, d := range cfg.DNS {
		if _, err := netip.ParseAddr(d); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("DNS entry '%s' is not an IP address", d),
				"List resolver addresses, e.g. dns: [1.1.1.1]")
		}
	}

	if !strings.HasPrefix(cfg.Endpoints.Info, "/") || !strings.HasPrefix(cfg.Endpoints.Register, "/") {
		return errors.New(errors.ErrConfig,
			"Endpoint paths must start with '/'",
			"Check the 'endpoints' section")
	}

	timeouts := map[string]int64{
		"timeouts.connect":  int64(cfg.Timeouts.Connect),
		"timeouts.info":     int64(cfg.Timeouts.Info),
		"timeouts.register": int64(cfg.Timeouts.Register),
		"checks.timeout":    int64(cfg.Checks.Timeout),
	}
	for name, d := range timeouts {
		if d <= 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s must be positive", name),
				"Use a duration like 10s")
		}
	}

	return nil
}

// RequireControlPlane reports a CONFIG error when no control plane is set.
func RequireControlPlane(cfg *Config) error {
	if strings.TrimSpace(cfg.ControlPlane) == "" {
		return errors.New(errors.ErrConfig,
			"No control plane address configured",
			errors.Checklist(
				"Pass it as an argument: wgjoin up 203.0.113.5:8080",
				"Or set control_plane in wgjoin.yaml",
				"Or export WGJOIN_CONTROL_PLANE"))
	}
	return nil
}
