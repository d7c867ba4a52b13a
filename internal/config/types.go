package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
const CurrentConfigVersion = 1

// Config holds everything a provisioning run needs to know about the local
// machine and the control plane it registers with.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// ControlPlane is the control-plane address: host, host:port, or a full
	// http(s) URL.
	ControlPlane string `yaml:"control_plane" mapstructure:"control_plane"`

	// Token is sent as a bearer token when set.
	Token string `yaml:"token,omitempty" mapstructure:"token"`

	// Interface is the WireGuard interface name (wg-quick config basename).
	Interface string `yaml:"interface" mapstructure:"interface"`

	// KeyDir holds the private and public key files.
	KeyDir string `yaml:"key_dir" mapstructure:"key_dir"`

	// ConfigDir is where <interface>.conf is written.
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`

	// Activator selects how the interface is brought up: systemd, wg-quick, or none.
	Activator string `yaml:"activator" mapstructure:"activator"`

	// DNS resolvers written into the tunnel config.
	DNS []string `yaml:"dns" mapstructure:"dns"`

	Endpoints EndpointsConfig `yaml:"endpoints" mapstructure:"endpoints"`
	Timeouts  TimeoutsConfig  `yaml:"timeouts" mapstructure:"timeouts"`
	Checks    ChecksConfig    `yaml:"checks" mapstructure:"checks"`
}

// EndpointsConfig holds the control-plane request paths.
type EndpointsConfig struct {
	Info     string `yaml:"info" mapstructure:"info"`
	Register string `yaml:"register" mapstructure:"register"`
}

// TimeoutsConfig bounds the two network calls of a run.
type TimeoutsConfig struct {
	Connect  time.Duration `yaml:"connect" mapstructure:"connect"`
	Info     time.Duration `yaml:"info" mapstructure:"info"`
	Register time.Duration `yaml:"register" mapstructure:"register"`
}

// ChecksConfig configures the post-activation smoke tests.
type ChecksConfig struct {
	Gateway  string        `yaml:"gateway" mapstructure:"gateway"`
	External string        `yaml:"external" mapstructure:"external"`
	Resolve  string        `yaml:"resolve" mapstructure:"resolve"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Activator names.
const (
	ActivatorSystemd = "systemd"
	ActivatorWgQuick = "wg-quick"
	ActivatorNone    = "none"
)

// WireGuardDir is where wg-quick@.service looks for <iface>.conf.
const WireGuardDir = "/etc/wireguard"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:   CurrentConfigVersion,
		Interface: "wg0",
		KeyDir:    WireGuardDir,
		ConfigDir: WireGuardDir,
		Activator: ActivatorSystemd,
		DNS:       []string{"1.1.1.1"},
		Endpoints: EndpointsConfig{
			Info:     "/api/wireguard/info",
			Register: "/api/wireguard/register",
		},
		Timeouts: TimeoutsConfig{
			Connect:  10 * time.Second,
			Info:     15 * time.Second,
			Register: 30 * time.Second,
		},
		Checks: ChecksConfig{
			Gateway:  "10.0.0.1",
			External: "8.8.8.8",
			Resolve:  "google.com",
			Timeout:  3 * time.Second,
		},
	}
}
