package tunnel

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Activator brings the tunnel interface up from a written config file.
type Activator interface {
	Name() string
	Activate(ctx context.Context, iface, confPath string) error
}

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func run(ctx context.Context, r Runner, name string, args ...string) error {
	if r == nil {
		r = ExecRunner
	}
	out, err := r(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// SystemdConfigDir is the only directory wg-quick@.service reads from.
const SystemdConfigDir = "/etc/wireguard"

// SystemdActivator enables and restarts wg-quick@<iface>.service so the
// tunnel also comes back after reboot. The unit reads
// /etc/wireguard/<iface>.conf, so confPath must be exactly that file.
type SystemdActivator struct {
	Run Runner
}

func (SystemdActivator) Name() string { return "systemd" }

func (a SystemdActivator) Activate(ctx context.Context, iface, confPath string) error {
	if want := ConfigPath(SystemdConfigDir, iface); filepath.Clean(confPath) != want {
		return fmt.Errorf("wg-quick@%s.service reads %s, not %s", iface, want, confPath)
	}
	unit := fmt.Sprintf("wg-quick@%s.service", iface)
	if err := run(ctx, a.Run, "systemctl", "enable", unit); err != nil {
		return err
	}
	// restart picks up a rewritten config when the unit was already active.
	return run(ctx, a.Run, "systemctl", "restart", unit)
}

// WgQuickActivator calls wg-quick directly with the config path.
type WgQuickActivator struct {
	Run Runner
}

func (WgQuickActivator) Name() string { return "wg-quick" }

func (a WgQuickActivator) Activate(ctx context.Context, iface, confPath string) error {
	// down fails when the interface is not up yet; that is fine.
	_ = run(ctx, a.Run, "wg-quick", "down", confPath)
	return run(ctx, a.Run, "wg-quick", "up", confPath)
}

// NoopActivator leaves the interface alone.
type NoopActivator struct{}

func (NoopActivator) Name() string { return "none" }

func (NoopActivator) Activate(context.Context, string, string) error { return nil }

// NewActivator maps a config activator name to an implementation.
func NewActivator(name string, r Runner) (Activator, error) {
	switch name {
	case "systemd", "":
		return SystemdActivator{Run: r}, nil
	case "wg-quick":
		return WgQuickActivator{Run: r}, nil
	case "none":
		return NoopActivator{}, nil
	default:
		return nil, fmt.Errorf("unknown activator %q", name)
	}
}
