// Package provision runs one client provisioning pass: fetch server info,
// make sure a key pair exists, write the tunnel config, register with the
// control plane, bring the interface up and smoke-test it.
//
// Only the server-info fetch (and the local writes that depend on it) can
// fail a run. Everything after that degrades to warnings on the Report so a
// working local tunnel survives an incomplete handshake with the server.
package provision

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/rileyhilliard/wgjoin/internal/controlplane"
	"github.com/rileyhilliard/wgjoin/internal/doctor"
	"github.com/rileyhilliard/wgjoin/internal/errors"
	"github.com/rileyhilliard/wgjoin/internal/keystore"
	"github.com/rileyhilliard/wgjoin/internal/logger"
	"github.com/rileyhilliard/wgjoin/internal/tunnel"
)

// ControlPlane is the part of *controlplane.Client a run uses.
type ControlPlane interface {
	FetchServerInfo(ctx context.Context) (controlplane.ServerInfo, error)
	Register(ctx context.Context, r controlplane.RegistrationRequest) controlplane.RegistrationResult
	Host() string
	InfoURL() string
}

// IdentityStore is the part of *keystore.KeyStore a run uses.
type IdentityStore interface {
	Ensure() (keystore.ClientIdentity, error)
}

// Provisioner holds everything a run needs. Zero-value hooks fall back to
// the real system.
type Provisioner struct {
	ControlPlane ControlPlane
	Keys         IdentityStore
	// Activator is nil when the interface should be left alone.
	Activator tunnel.Activator
	// Checks run after a successful activation.
	Checks []doctor.Check

	Interface string
	ConfigDir string
	DNS       []string

	Log logger.Logger
	// OnState is called after every transition.
	OnState func(State, *Report)

	Hostname func() (string, error)
	LocalIP  func(host string) string
}

// Report is the outcome of a run, including how far it got.
type Report struct {
	State        State                            `json:"state"`
	Server       *controlplane.ServerInfo         `json:"server,omitempty"`
	PublicKey    string                           `json:"public_key,omitempty"`
	Address      string                           `json:"address,omitempty"`
	Endpoint     string                           `json:"endpoint,omitempty"`
	ConfigPath   string                           `json:"config_path,omitempty"`
	Registration *controlplane.RegistrationResult `json:"registration,omitempty"`
	// PeerStanza is set when an operator has to add the peer by hand.
	PeerStanza      string               `json:"peer_stanza,omitempty"`
	Activator       string               `json:"activator,omitempty"`
	Activated       bool                 `json:"activated"`
	ActivationError string               `json:"activation_error,omitempty"`
	Checks          []doctor.CheckResult `json:"checks,omitempty"`
	Warnings        []string             `json:"warnings,omitempty"`
}

// NeedsManualPeer reports whether the server did not add the peer itself.
func (r *Report) NeedsManualPeer() bool {
	return r.PeerStanza != ""
}

func (r *Report) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (p *Provisioner) log() logger.Logger {
	if p.Log == nil {
		return logger.Noop()
	}
	return p.Log
}

func (p *Provisioner) advance(r *Report, s State) {
	r.State = s
	p.log().Debug("state %s", s)
	if p.OnState != nil {
		p.OnState(s, r)
	}
}

// Run performs one provisioning pass. The returned Report is never nil; on
// error its State tells how far the run got.
func (p *Provisioner) Run(ctx context.Context) (*Report, error) {
	log := p.log()
	report := &Report{State: StateInit}

	info, err := p.ControlPlane.FetchServerInfo(ctx)
	if err != nil {
		log.Debug("fetch server info: %v", err)
		return report, fetchError(err, p.ControlPlane.InfoURL())
	}
	report.Server = &info
	p.advance(report, StateServerInfoFetched)

	id, err := p.Keys.Ensure()
	if err != nil {
		return report, err
	}
	report.PublicKey = id.PublicKey
	p.advance(report, StateIdentityReady)

	cfg, err := tunnel.New(id, info, p.ControlPlane.Host(), p.DNS)
	if err != nil {
		return report, errors.WrapWithCode(err, errors.ErrTunnel,
			"Couldn't build the tunnel config",
			"Check the dns setting in your config")
	}
	report.Address = cfg.Interface.Address.String()
	report.Endpoint = cfg.Peer.Endpoint

	path := tunnel.ConfigPath(p.ConfigDir, p.Interface)
	if err := tunnel.WriteFile(path, cfg); err != nil {
		return report, errors.WrapWithCode(err, errors.ErrTunnel,
			fmt.Sprintf("Couldn't write %s", path),
			"Run as root, or set config_dir to a directory you own")
	}
	report.ConfigPath = path
	p.advance(report, StateConfigRendered)

	result := p.ControlPlane.Register(ctx, p.registrationRequest(id, cfg))
	report.Registration = &result
	switch {
	case !result.Accepted:
		report.warn("Registration failed: %s", result.Message)
		report.PeerStanza = tunnel.PeerStanza(id.PublicKey, info.AssignedOctet)
	case !result.PeerAutoConfigured:
		report.warn("Registered, but the server did not add the peer: %s", result.Message)
		report.PeerStanza = tunnel.PeerStanza(id.PublicKey, info.AssignedOctet)
	default:
		log.Info("control plane: %s", result.Message)
	}
	p.advance(report, StateRegistrationAttempted)

	if p.Activator != nil {
		report.Activator = p.Activator.Name()
		if err := p.Activator.Activate(ctx, p.Interface, path); err != nil {
			report.ActivationError = err.Error()
			report.warn("Couldn't bring up %s: %v", p.Interface, err)
		} else {
			report.Activated = true
		}
	}

	if report.Activated && len(p.Checks) > 0 {
		report.Checks = doctor.RunAll(p.Checks)
		for _, c := range report.Checks {
			if c.Status != doctor.StatusPass {
				report.warn("%s", c.Message)
			}
		}
	}

	p.advance(report, StateDone)
	return report, nil
}

func (p *Provisioner) registrationRequest(id keystore.ClientIdentity, cfg tunnel.Config) controlplane.RegistrationRequest {
	hostnameFn := p.Hostname
	if hostnameFn == nil {
		hostnameFn = os.Hostname
	}
	hostname, err := hostnameFn()
	if err != nil {
		p.log().Warn("hostname: %v", err)
	}

	localIPFn := p.LocalIP
	if localIPFn == nil {
		localIPFn = LocalIP
	}

	return controlplane.RegistrationRequest{
		Hostname:  hostname,
		LocalIP:   localIPFn(p.ControlPlane.Host()),
		Interface: p.Interface,
		PublicKey: id.PublicKey,
		// The private key stays on this machine.
		Config: tunnel.Render(cfg.Redacted()),
	}
}

// LocalIP returns the source address the kernel would use to reach host,
// or "" when there is no route. Dialing UDP sends no packets.
func LocalIP(host string) string {
	conn, err := net.Dial("udp", net.JoinHostPort(host, "9"))
	if err != nil {
		return ""
	}
	defer conn.Close()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return ""
}
