package doctor

import (
	"fmt"
	"io/fs"
	"os"
)

// SecretFileCheck verifies a secret-bearing file exists and is owner-only.
type SecretFileCheck struct {
	ID         string
	Label      string
	Path       string
	Suggestion string
	// Optional files produce a warning instead of a failure when missing.
	Optional bool
}

func (c *SecretFileCheck) Name() string     { return c.ID }
func (c *SecretFileCheck) Category() string { return CategoryKeys }

func (c *SecretFileCheck) Run() CheckResult {
	info, err := os.Stat(c.Path)
	if os.IsNotExist(err) {
		status := StatusFail
		if c.Optional {
			status = StatusWarn
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     status,
			Message:    fmt.Sprintf("%s missing: %s", c.Label, c.Path),
			Suggestion: c.Suggestion,
		}
	}
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s unreadable: %v", c.Label, err),
			Suggestion: "Run as root or with sudo",
		}
	}

	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s is readable by others (%04o): %s", c.Label, mode, c.Path),
			Suggestion: fmt.Sprintf("chmod 600 %s", c.Path),
			Fixable:    true,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: %s (owner-only)", c.Label, c.Path),
	}
}

// Fix restricts the file to its owner.
func (c *SecretFileCheck) Fix() error {
	if _, err := os.Stat(c.Path); err != nil {
		return err
	}
	return os.Chmod(c.Path, fs.FileMode(0o600))
}

// NewKeyChecks checks the private key and the rendered tunnel config.
func NewKeyChecks(privateKeyPath, tunnelConfigPath string) []Check {
	return []Check{
		&SecretFileCheck{
			ID:         "private_key",
			Label:      "Private key",
			Path:       privateKeyPath,
			Suggestion: "Run 'wgjoin keys' to create one",
		},
		&SecretFileCheck{
			ID:         "tunnel_config",
			Label:      "Tunnel config",
			Path:       tunnelConfigPath,
			Suggestion: "Run 'wgjoin up' to write it",
			Optional:   true,
		},
	}
}
