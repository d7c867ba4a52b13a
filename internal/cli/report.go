package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/rileyhilliard/wgjoin/internal/doctor"
	"github.com/rileyhilliard/wgjoin/internal/provision"
	"github.com/rileyhilliard/wgjoin/internal/ui"
	"github.com/rileyhilliard/wgjoin/internal/util"
)

// renderReport prints the summary after a completed run.
func renderReport(out io.Writer, r *provision.Report) {
	muted := ui.MutedStyle()

	fmt.Fprintln(out)
	rows := [][2]string{
		{"Address", r.Address},
		{"Endpoint", r.Endpoint},
		{"Public key", r.PublicKey},
		{"Config", r.ConfigPath},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(out, "  %s %s\n", muted.Render(fmt.Sprintf("%-11s", row[0])), row[1])
	}

	if r.NeedsManualPeer() {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s %s\n", ui.WarningStyle().Render(ui.SymbolWarning),
			"The server has not authorized this client yet. Add this peer on the server:")
		fmt.Fprintln(out)
		for _, line := range strings.Split(strings.TrimRight(r.PeerStanza, "\n"), "\n") {
			fmt.Fprintf(out, "    %s\n", line)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %s\n", muted.Render("Then apply it there with: wg syncconf <iface> <(wg-quick strip <iface>)"))
	}

	if r.ActivationError != "" {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s Interface not brought up: %s\n", ui.WarningStyle().Render(ui.SymbolWarning), r.ActivationError)
		fmt.Fprintf(out, "  %s\n", muted.Render("Try it by hand: wg-quick up "+r.ConfigPath))
	}

	if len(r.Checks) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.HeaderStyle().Render("Connectivity"))
		for _, c := range r.Checks {
			renderCheckResult(out, c)
		}
	}

	fmt.Fprintln(out)
	switch {
	case len(r.Warnings) == 0:
		fmt.Fprintf(out, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), "Tunnel provisioned")
	default:
		fmt.Fprintf(out, "%s Tunnel provisioned with %d %s\n",
			ui.WarningStyle().Render(ui.SymbolWarning), len(r.Warnings), util.Pluralize(len(r.Warnings), "warning", "warnings"))
	}
}

// renderCheckResult renders a single check result.
func renderCheckResult(out io.Writer, result doctor.CheckResult) {
	var symbol string
	var style = ui.SuccessStyle()

	switch result.Status {
	case doctor.StatusPass:
		symbol = ui.SymbolSuccess
	case doctor.StatusWarn:
		symbol = ui.SymbolWarning
		style = ui.WarningStyle()
	default:
		symbol = ui.SymbolFail
		style = ui.ErrorStyle()
	}

	fmt.Fprintf(out, "  %s %s\n", style.Render(symbol), result.Message)

	if result.Suggestion != "" && result.Status != doctor.StatusPass {
		for _, line := range strings.Split(result.Suggestion, "\n") {
			fmt.Fprintf(out, "    %s\n", ui.MutedStyle().Render(line))
		}
	}
}
