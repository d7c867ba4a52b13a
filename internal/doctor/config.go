package doctor

import (
	"fmt"

	"github.com/rileyhilliard/wgjoin/internal/config"
	"github.com/rileyhilliard/wgjoin/internal/errors"
)

// ConfigCheck reports on the loaded configuration. The caller loads it so
// the check sees exactly what the other commands would use.
type ConfigCheck struct {
	Path    string
	Config  *config.Config
	LoadErr error
}

func (c *ConfigCheck) Name() string     { return "config" }
func (c *ConfigCheck) Category() string { return CategoryConfig }

func (c *ConfigCheck) Run() CheckResult {
	if c.LoadErr != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Failed to load config: %v", c.LoadErr),
			Suggestion: "Check the YAML syntax, or run 'wgjoin init --force' to rewrite it",
		}
	}
	if c.Config == nil {
		return CheckResult{Name: c.Name(), Status: StatusFail, Message: "No configuration loaded"}
	}

	if err := config.Validate(c.Config); err != nil {
		result := CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Invalid config: %v", err),
			Suggestion: "Fix the reported field in your config file or environment",
		}
		if e, ok := err.(*errors.Error); ok {
			result.Message = "Invalid config: " + e.Message
			result.Suggestion = e.Suggestion
		}
		return result
	}

	source := c.Path
	if source == "" {
		source = "defaults and environment"
	}

	if c.Config.ControlPlane == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("No control plane configured (%s)", source),
			Suggestion: "Run 'wgjoin init' or set WGJOIN_CONTROL_PLANE",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Control plane %s (%s)", c.Config.ControlPlane, source),
	}
}

func (c *ConfigCheck) Fix() error {
	return nil // 'wgjoin init' writes a config interactively
}
