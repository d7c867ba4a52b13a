package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rileyhilliard/wgjoin/internal/errors"
	"gopkg.in/yaml.v3"
)

// fileTimeouts mirrors TimeoutsConfig with human-readable durations.
type fileTimeouts struct {
	Connect  string `yaml:"connect"`
	Info     string `yaml:"info"`
	Register string `yaml:"register"`
}

type fileChecks struct {
	Gateway  string `yaml:"gateway"`
	External string `yaml:"external"`
	Resolve  string `yaml:"resolve"`
	Timeout  string `yaml:"timeout"`
}

type fileConfig struct {
	Version      int             `yaml:"version"`
	ControlPlane string          `yaml:"control_plane"`
	Token        string          `yaml:"token,omitempty"`
	Interface    string          `yaml:"interface"`
	KeyDir       string          `yaml:"key_dir"`
	ConfigDir    string          `yaml:"config_dir"`
	Activator    string          `yaml:"activator"`
	DNS          []string        `yaml:"dns,flow"`
	Endpoints    EndpointsConfig `yaml:"endpoints"`
	Timeouts     fileTimeouts    `yaml:"timeouts"`
	Checks       fileChecks      `yaml:"checks"`
}

// Marshal renders cfg as YAML with durations written as strings ("10s").
func Marshal(cfg *Config) ([]byte, error) {
	fc := fileConfig{
		Version:      cfg.Version,
		ControlPlane: cfg.ControlPlane,
		Token:        cfg.Token,
		Interface:    cfg.Interface,
		KeyDir:       cfg.KeyDir,
		ConfigDir:    cfg.ConfigDir,
		Activator:    cfg.Activator,
		DNS:          cfg.DNS,
		Endpoints:    cfg.Endpoints,
		Timeouts: fileTimeouts{
			Connect:  cfg.Timeouts.Connect.String(),
			Info:     cfg.Timeouts.Info.String(),
			Register: cfg.Timeouts.Register.String(),
		},
		Checks: fileChecks{
			Gateway:  cfg.Checks.Gateway,
			External: cfg.Checks.External,
			Resolve:  cfg.Checks.Resolve,
			Timeout:  cfg.Checks.Timeout.String(),
		},
	}
	return yaml.Marshal(&fc)
}

// Write saves cfg to path. An existing file is kept unless overwrite is set.
// The file may carry a token, so it is created owner-only.
func Write(path string, cfg *Config, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Config file already exists: %s", path),
			"Use --force to overwrite")
	}

	data, err := Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to encode config", "")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to create %s", filepath.Dir(path)),
			"Check directory permissions")
	}

	header := []byte("# wgjoin configuration\n# Environment variables WGJOIN_<KEY> override these values.\n")
	if err := os.WriteFile(path, append(header, data...), 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write %s", path),
			"Check directory permissions")
	}
	return nil
}
