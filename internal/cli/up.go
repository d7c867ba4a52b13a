package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/wgjoin/internal/config"
	"github.com/rileyhilliard/wgjoin/internal/doctor"
	"github.com/rileyhilliard/wgjoin/internal/errors"
	"github.com/rileyhilliard/wgjoin/internal/lock"
	"github.com/rileyhilliard/wgjoin/internal/logger"
	"github.com/rileyhilliard/wgjoin/internal/provision"
	"github.com/rileyhilliard/wgjoin/internal/tunnel"
	"github.com/rileyhilliard/wgjoin/internal/ui"
)

// UpOptions holds the flags of 'wgjoin up'.
type UpOptions struct {
	ControlPlane string
	Interface    string
	NoActivate   bool
	SkipChecks   bool
	JSON         bool
	NativeKeys   bool
	Yes          bool
	// Interactive allows prompts. Tests leave it off.
	Interactive bool
}

// runLockOptions bounds how long 'up' waits for a concurrent run.
var runLockOptions = lock.DefaultOptions()

// upCommand runs one provisioning pass and prints its report.
func upCommand(ctx context.Context, out io.Writer, opts UpOptions) error {
	log := logger.Default()

	cfg, _, err := loadConfig()
	if err != nil {
		return upFailed(out, opts, err, nil)
	}

	if opts.ControlPlane != "" {
		cfg.ControlPlane = opts.ControlPlane
	}
	if opts.Interface != "" {
		cfg.Interface = opts.Interface
	}
	if opts.NoActivate {
		cfg.Activator = config.ActivatorNone
	}

	prompt := opts.Interactive && !opts.JSON && !opts.Yes
	if cfg.ControlPlane == "" && prompt {
		if err := promptControlPlane(cfg); err != nil {
			return err
		}
	}
	if err := config.RequireControlPlane(cfg); err != nil {
		return upFailed(out, opts, err, nil)
	}
	if err := config.Validate(cfg); err != nil {
		return upFailed(out, opts, err, nil)
	}

	client, err := newControlPlaneClient(cfg, log)
	if err != nil {
		return upFailed(out, opts, err, nil)
	}
	activator, err := newActivator(cfg)
	if err != nil {
		return upFailed(out, opts, err, nil)
	}

	confPath := tunnel.ConfigPath(cfg.ConfigDir, cfg.Interface)
	if prompt {
		proceed, err := confirmUp(client.BaseURL(), confPath, cfg)
		if err != nil {
			return err
		}
		if !proceed {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	lockOpts := runLockOptions
	lockOpts.Command = "up"
	runLock, err := lock.Acquire(ctx, cfg.ConfigDir, cfg.Interface, lockOpts)
	if err != nil {
		return upFailed(out, opts, err, nil)
	}
	defer func() {
		if err := runLock.Release(); err != nil {
			log.Warn("release run lock: %v", err)
		}
	}()

	prov := &provision.Provisioner{
		ControlPlane: client,
		Keys:         newKeyStore(cfg, opts.NativeKeys, log),
		Activator:    activator,
		Interface:    cfg.Interface,
		ConfigDir:    cfg.ConfigDir,
		DNS:          cfg.DNS,
		Log:          log,
	}
	if !opts.SkipChecks {
		prov.Checks = doctor.NewConnectivityChecks(cfg.Checks, nil)
	}

	var progress *runProgress
	if !opts.JSON {
		f, isFile := out.(*os.File)
		progress = newRunProgress(out, isFile && ui.IsTerminal(f))
		progress.begin(client.BaseURL(), prov)
	}

	report, err := prov.Run(ctx)
	if progress != nil {
		progress.end(report, err)
	}
	if err != nil {
		return upFailed(out, opts, err, report)
	}

	if opts.JSON {
		return WriteJSONSuccess(out, report)
	}
	renderReport(out, report)
	return nil
}

// upFailed reports err in the requested format. JSON output carries the
// partial report and exits non-zero without printing the error twice.
func upFailed(out io.Writer, opts UpOptions, err error, report *provision.Report) error {
	if !opts.JSON {
		return err
	}
	if werr := WriteJSONFromError(out, err, report); werr != nil {
		return werr
	}
	return errors.NewExitError(1)
}

func promptControlPlane(cfg *config.Config) error {
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
		),
	)
	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Pass the address as an argument: wgjoin up <host>")
	}
	cfg.ControlPlane = strings.TrimSpace(cfg.ControlPlane)
	return nil
}

func confirmUp(base, confPath string, cfg *config.Config) (bool, error) {
	proceed := true
	activation := "leave the interface down"
	if cfg.Activator != config.ActivatorNone {
		activation = fmt.Sprintf("bring up %s with %s", cfg.Interface, cfg.Activator)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Register with %s?", base)).
				Description(fmt.Sprintf("This writes %s and will %s.", confPath, activation)).
				Affirmative("Yes").
				Negative("No").
				Value(&proceed),
		),
	)
	if err := form.Run(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Use --yes to skip the confirmation")
	}
	return proceed, nil
}

// runProgress shows one spinner per step of a run.
type runProgress struct {
	out      io.Writer
	animated bool
	current  *ui.Spinner
	iface    string
	activate string
}

func newRunProgress(out io.Writer, animated bool) *runProgress {
	return &runProgress{out: out, animated: animated}
}

func (p *runProgress) step(label string) {
	s := ui.NewSpinner(label)
	s.SetOutput(func(str string) { fmt.Fprint(p.out, str) })
	s.SetAnimated(p.animated)
	s.Start()
	p.current = s
}

func (p *runProgress) begin(base string, prov *provision.Provisioner) {
	p.iface = prov.Interface
	if prov.Activator != nil {
		p.activate = prov.Activator.Name()
	}
	prov.OnState = p.advance
	p.step(fmt.Sprintf("Fetching server info from %s", base))
}

func (p *runProgress) advance(s provision.State, r *provision.Report) {
	switch s {
	case provision.StateServerInfoFetched:
		p.current.SetLabel(fmt.Sprintf("Server info: address %s.%d, port %d", tunnel.SubnetPrefix, r.Server.AssignedOctet, r.Server.Port))
		p.current.Success()
		p.step("Preparing key pair")
	case provision.StateIdentityReady:
		p.current.Success()
		p.step("Writing tunnel config")
	case provision.StateConfigRendered:
		p.current.SetLabel("Wrote " + r.ConfigPath)
		p.current.Success()
		p.step("Registering with the control plane")
	case provision.StateRegistrationAttempted:
		if r.NeedsManualPeer() {
			p.current.SetLabel("Registration: " + r.Registration.Message)
			p.current.Warn()
		} else {
			p.current.SetLabel("Registered: " + r.Registration.Message)
			p.current.Success()
		}
		if p.activate == "" {
			p.current = nil
			return
		}
		p.step(fmt.Sprintf("Bringing up %s (%s)", p.iface, p.activate))
	case provision.StateDone:
		if p.current == nil {
			return
		}
		if r.Activated {
			p.current.Success()
		} else {
			p.current.Warn()
		}
		p.current = nil
	}
}

func (p *runProgress) end(_ *provision.Report, err error) {
	if p.current == nil {
		return
	}
	if err != nil {
		p.current.Fail()
	} else {
		p.current.Stop()
	}
	p.current = nil
}
