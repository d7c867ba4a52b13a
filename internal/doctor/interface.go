package doctor

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/wgjoin/internal/tunnel"
)

// StaleHandshake is how old a handshake may be before the peer is
// considered silent. WireGuard rekeys every two minutes under traffic.
const StaleHandshake = 3 * time.Minute

// InterfaceCheck inspects the live interface through wgctrl.
type InterfaceCheck struct {
	Interface string
	Inspect   func(iface string) (*tunnel.DeviceStatus, error)
	Now       func() time.Time
}

func (c *InterfaceCheck) Name() string     { return "interface" }
func (c *InterfaceCheck) Category() string { return CategoryInterface }

func (c *InterfaceCheck) Run() CheckResult {
	inspect := c.Inspect
	if inspect == nil {
		inspect = tunnel.Inspect
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	st, err := inspect(c.Interface)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Interface %s not available: %v", c.Interface, err),
			Suggestion: "Run 'wgjoin up' (as root) to bring it up",
		}
	}

	if len(st.Peers) == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Interface %s is up but has no peers", c.Interface),
			Suggestion: "Re-run 'wgjoin up' to rewrite the tunnel config",
		}
	}

	age := st.Peers[0].HandshakeAge(now())
	for _, p := range st.Peers[1:] {
		if a := p.HandshakeAge(now()); a >= 0 && (age < 0 || a < age) {
			age = a
		}
	}

	switch {
	case age < 0:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Interface %s is up, no handshake yet", c.Interface),
			Suggestion: "The server may not know this peer yet. Run 'wgjoin peer' for the stanza to add",
		}
	case age > StaleHandshake:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Interface %s: last handshake %s ago", c.Interface, age.Round(time.Second)),
			Suggestion: "Check that the server is running and UDP traffic to its port is allowed",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Interface %s: last handshake %s ago", c.Interface, age.Round(time.Second)),
	}
}

func (c *InterfaceCheck) Fix() error { return nil }
