package doctor

import (
	"github.com/rileyhilliard/wgjoin/internal/config"
	"github.com/rileyhilliard/wgjoin/internal/tunnel"
)

// Inputs is what the full diagnostic run needs to know.
type Inputs struct {
	ConfigPath string
	Config     *config.Config
	LoadErr    error

	PrivateKeyPath   string
	TunnelConfigPath string
	NativeKeys       bool

	// Runner and Inspect default to the real system when nil.
	Runner  tunnel.Runner
	Inspect func(iface string) (*tunnel.DeviceStatus, error)
}

// NewChecks assembles every check in CategoryOrder.
func NewChecks(in Inputs) []Check {
	cfg := in.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	checks := []Check{&ConfigCheck{Path: in.ConfigPath, Config: in.Config, LoadErr: in.LoadErr}}
	checks = append(checks, NewDepsChecks(cfg.Activator, in.NativeKeys)...)
	checks = append(checks, NewKeyChecks(in.PrivateKeyPath, in.TunnelConfigPath)...)
	checks = append(checks, &InterfaceCheck{Interface: cfg.Interface, Inspect: in.Inspect})
	checks = append(checks, NewConnectivityChecks(cfg.Checks, in.Runner)...)
	return checks
}
