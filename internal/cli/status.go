package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/wgjoin/internal/errors"
	"github.com/rileyhilliard/wgjoin/internal/tunnel"
	"github.com/rileyhilliard/wgjoin/internal/ui"
	"github.com/rileyhilliard/wgjoin/internal/util"
)

// inspectDevice is swapped out in tests.
var inspectDevice = tunnel.Inspect

// statusCommand prints the live state of the WireGuard interface.
func statusCommand(out io.Writer, iface string, jsonOut bool) error {
	if iface == "" {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		iface = cfg.Interface
	}

	status, err := inspectDevice(iface)
	if err != nil {
		err = errors.WrapWithCode(err, errors.ErrTunnel,
			fmt.Sprintf("Couldn't read interface %s", iface),
			"Is the tunnel up? Try 'wgjoin up', or run with sudo")
		if jsonOut {
			if werr := WriteJSONFromError(out, err, nil); werr != nil {
				return werr
			}
			return errors.NewExitError(1)
		}
		return err
	}

	if jsonOut {
		return WriteJSONSuccess(out, status)
	}
	renderStatus(out, status, time.Now())
	return nil
}

func renderStatus(out io.Writer, s *tunnel.DeviceStatus, now time.Time) {
	muted := ui.MutedStyle()

	fmt.Fprintf(out, "%s %s\n", ui.HeaderStyle().Render("interface:"), s.Name)
	fmt.Fprintf(out, "  %s %s\n", muted.Render("public key: "), s.PublicKey)
	if s.ListenPort > 0 {
		fmt.Fprintf(out, "  %s %d\n", muted.Render("listen port:"), s.ListenPort)
	}

	if len(s.Peers) == 0 {
		fmt.Fprintf(out, "\n%s no peers configured\n", ui.WarningStyle().Render(ui.SymbolWarning))
		return
	}

	for _, p := range s.Peers {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s %s\n", ui.HeaderStyle().Render("peer:"), p.PublicKey)
		if p.Endpoint != "" {
			fmt.Fprintf(out, "  %s %s\n", muted.Render("endpoint:   "), p.Endpoint)
		}
		fmt.Fprintf(out, "  %s %s\n", muted.Render("allowed ips:"), util.JoinOrNone(p.AllowedIPs))
		fmt.Fprintf(out, "  %s %s\n", muted.Render("handshake:  "), handshakeText(p, now))
		fmt.Fprintf(out, "  %s %s received, %s sent\n", muted.Render("transfer:   "),
			formatBytes(p.ReceiveBytes), formatBytes(p.TransmitBytes))
	}
}

func handshakeText(p tunnel.PeerStatus, now time.Time) string {
	age := p.HandshakeAge(now)
	if age < 0 {
		return ui.WarningStyle().Render("never")
	}
	return fmt.Sprintf("%s ago", age.Truncate(time.Second))
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
