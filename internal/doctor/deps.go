package doctor

import (
	"fmt"
	"os/exec"
)

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// BinaryCheck verifies an external tool is on PATH.
type BinaryCheck struct {
	Binary     string
	Purpose    string
	Suggestion string
	// Optional tools produce a warning instead of a failure when missing.
	Optional bool
}

func (c *BinaryCheck) Name() string     { return c.Binary }
func (c *BinaryCheck) Category() string { return CategoryDependencies }

func (c *BinaryCheck) Run() CheckResult {
	path, err := lookPath(c.Binary)
	if err != nil {
		status := StatusFail
		if c.Optional {
			status = StatusWarn
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     status,
			Message:    fmt.Sprintf("%s not found (%s)", c.Binary, c.Purpose),
			Suggestion: c.Suggestion,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: %s", c.Binary, path),
	}
}

func (c *BinaryCheck) Fix() error {
	return nil // System package installation is out of scope
}

// NewDepsChecks creates checks for the tools a run shells out to.
// nativeKeys drops the wg requirement for key generation; activator decides
// whether systemctl or wg-quick is required.
func NewDepsChecks(activator string, nativeKeys bool) []Check {
	install := "Install wireguard-tools: apt install wireguard-tools (or equivalent)"

	checks := []Check{
		&BinaryCheck{
			Binary:     "wg",
			Purpose:    "key generation and interface inspection",
			Suggestion: install + ", or use --native-keys",
			Optional:   nativeKeys,
		},
		&BinaryCheck{
			Binary:     "wg-quick",
			Purpose:    "interface activation",
			Suggestion: install,
			Optional:   activator == "none",
		},
	}

	if activator == "systemd" || activator == "" {
		checks = append(checks, &BinaryCheck{
			Binary:     "systemctl",
			Purpose:    "wg-quick@ service management",
			Suggestion: "Use 'activator: wg-quick' on systems without systemd",
		})
	}

	return checks
}
