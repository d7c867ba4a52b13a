package doctor

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/wgjoin/internal/config"
	"github.com/rileyhilliard/wgjoin/internal/tunnel"
)

// Connectivity checks only ever warn: a failed probe says something about
// the network, not about the provisioning run.

// PingCheck sends one ICMP echo through the system ping tool.
type PingCheck struct {
	ID      string
	Label   string
	Target  string
	Timeout time.Duration
	Exec    tunnel.Runner
}

func (c *PingCheck) Name() string     { return c.ID }
func (c *PingCheck) Category() string { return CategoryConnectivity }

func (c *PingCheck) Run() CheckResult {
	r := c.Exec
	if r == nil {
		r = tunnel.ExecRunner
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	// ping's own -W bounds the wait; the context is a backstop.
	ctx, cancel := context.WithTimeout(context.Background(), timeout+2*time.Second)
	defer cancel()

	secs := int(timeout.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	out, err := r(ctx, "ping", "-c", "1", "-W", strconv.Itoa(secs), c.Target)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if i := strings.LastIndexByte(msg, '\n'); i >= 0 {
			msg = msg[i+1:]
		}
		if msg == "" {
			msg = err.Error()
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%s %s unreachable: %s", c.Label, c.Target, msg),
			Suggestion: "Check that the peer is authorized on the server and the tunnel is up ('wgjoin status')",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s %s reachable", c.Label, c.Target),
	}
}

func (c *PingCheck) Fix() error { return nil }

// Resolver is the part of *net.Resolver used by DNSCheck.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNSCheck resolves a well-known name.
type DNSCheck struct {
	Host     string
	Timeout  time.Duration
	Resolver Resolver
}

func (c *DNSCheck) Name() string     { return "dns" }
func (c *DNSCheck) Category() string { return CategoryConnectivity }

func (c *DNSCheck) Run() CheckResult {
	res := c.Resolver
	if res == nil {
		res = net.DefaultResolver
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	addrs, err := res.LookupHost(ctx, c.Host)
	if err != nil || len(addrs) == 0 {
		reason := "no addresses"
		if err != nil {
			reason = err.Error()
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Could not resolve %s: %s", c.Host, reason),
			Suggestion: "Check the DNS setting in the tunnel config",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s resolves to %s", c.Host, addrs[0]),
	}
}

func (c *DNSCheck) Fix() error { return nil }

// NewConnectivityChecks builds the post-activation smoke tests. Empty
// targets are skipped.
func NewConnectivityChecks(cfg config.ChecksConfig, r tunnel.Runner) []Check {
	var checks []Check
	if cfg.Gateway != "" {
		checks = append(checks, &PingCheck{ID: "gateway", Label: "Gateway", Target: cfg.Gateway, Timeout: cfg.Timeout, Exec: r})
	}
	if cfg.External != "" {
		checks = append(checks, &PingCheck{ID: "external", Label: "External host", Target: cfg.External, Timeout: cfg.Timeout, Exec: r})
	}
	if cfg.Resolve != "" {
		checks = append(checks, &DNSCheck{Host: cfg.Resolve, Timeout: cfg.Timeout})
	}
	return checks
}
