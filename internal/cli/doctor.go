package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/rileyhilliard/wgjoin/internal/config"
	"github.com/rileyhilliard/wgjoin/internal/doctor"
	"github.com/rileyhilliard/wgjoin/internal/errors"
	"github.com/rileyhilliard/wgjoin/internal/keystore"
	"github.com/rileyhilliard/wgjoin/internal/tunnel"
	"github.com/rileyhilliard/wgjoin/internal/ui"
)

// DoctorOptions holds the flags of 'wgjoin doctor'.
type DoctorOptions struct {
	JSON       bool
	Fix        bool
	NativeKeys bool
}

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	Fixable  int  `json:"fixable"`
	AllClear bool `json:"all_clear"`
}

// doctorCommand runs every diagnostic check. It exits non-zero when any
// check fails; warnings alone keep the exit code at zero.
func doctorCommand(out io.Writer, opts DoctorOptions, in doctor.Inputs) error {
	checks := doctor.NewChecks(in)
	results := doctor.RunAll(checks)

	if opts.Fix {
		results = doctor.AttemptFixes(checks, results)
	}

	var err error
	if opts.JSON {
		err = WriteJSONSuccess(out, buildDoctorOutput(checks, results))
	} else {
		outputDoctorText(out, checks, results, opts.Fix)
	}
	if err != nil {
		return err
	}

	if doctor.HasFailures(results) {
		return errors.NewExitError(1)
	}
	return nil
}

// doctorInputs collects paths from whatever config could be loaded. A
// broken config is reported by the CONFIG check instead of aborting.
func doctorInputs(native bool) doctor.Inputs {
	in := doctor.Inputs{NativeKeys: native}

	cfg, path, err := loadConfig()
	if err != nil {
		in.LoadErr = err
		in.ConfigPath, _ = config.Find(Config())
		cfg = config.DefaultConfig()
	} else {
		in.Config = cfg
		in.ConfigPath = path
	}

	in.PrivateKeyPath = keystore.New(cfg.KeyDir, nil, nil).PrivatePath()
	in.TunnelConfigPath = tunnel.ConfigPath(cfg.ConfigDir, cfg.Interface)
	return in
}

func buildDoctorOutput(checks []doctor.Check, results []doctor.CheckResult) DoctorOutput {
	grouped := make(map[string][]doctor.CheckResult)
	for i, check := range checks {
		cat := check.Category()
		grouped[cat] = append(grouped[cat], results[i])
	}

	output := DoctorOutput{Categories: make([]CategoryOutput, 0, len(grouped))}
	for _, cat := range doctor.CategoryOrder {
		if len(grouped[cat]) == 0 {
			continue
		}
		output.Categories = append(output.Categories, CategoryOutput{Name: cat, Results: grouped[cat]})
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		Fixable:  doctor.FixableCount(results),
		AllClear: !doctor.HasIssues(results),
	}
	return output
}

func outputDoctorText(out io.Writer, checks []doctor.Check, results []doctor.CheckResult, fixed bool) {
	headerStyle := ui.HeaderStyle()

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("wgjoin Diagnostic Report"))
	fmt.Fprintln(out)

	grouped := make(map[string][]int)
	for i, check := range checks {
		cat := check.Category()
		grouped[cat] = append(grouped[cat], i)
	}

	for _, category := range doctor.CategoryOrder {
		indices := grouped[category]
		if len(indices) == 0 {
			continue
		}
		fmt.Fprintln(out, headerStyle.Render(category))
		for _, idx := range indices {
			renderCheckResult(out, results[idx])
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, strings.Repeat("━", 60))
	fmt.Fprintln(out)

	if !doctor.HasIssues(results) {
		fmt.Fprintf(out, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), doctor.Summary(results))
		fmt.Fprintln(out)
		return
	}

	style, symbol := ui.WarningStyle(), ui.SymbolWarning
	if doctor.HasFailures(results) {
		style, symbol = ui.ErrorStyle(), ui.SymbolFail
	}
	fmt.Fprintf(out, "%s %s\n", style.Render(symbol), doctor.Summary(results))

	if doctor.FixableCount(results) > 0 && !fixed {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  Run with %s to attempt automatic fixes where possible.\n",
			ui.MutedStyle().Render("--fix"))
	}
	fmt.Fprintln(out)
}
