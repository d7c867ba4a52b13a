package cli

import (
	"bytes"
	"testing"

	"github.com/rileyhilliard/wgjoin/internal/controlplane"
	"github.com/rileyhilliard/wgjoin/internal/doctor"
	"github.com/rileyhilliard/wgjoin/internal/provision"
	"github.com/rileyhilliard/wgjoin/internal/tunnel"
	"github.com/stretchr/testify/assert"
)

func TestRenderReport_Clean(t *testing.T) {
	r := &provision.Report{
		State:        provision.StateDone,
		PublicKey:    "xTIBA5rboUvnH4htodjb6e697QjLERt1NAB4mZqp8Dg=",
		Address:      "10.0.0.42/24",
		Endpoint:     "203.0.113.5:51820",
		ConfigPath:   "/etc/wireguard/wg0.conf",
		Registration: &controlplane.RegistrationResult{Accepted: true, PeerAutoConfigured: true, Message: "peer added"},
		Activated:    true,
	}

	var buf bytes.Buffer
	renderReport(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "10.0.0.42/24")
	assert.Contains(t, out, "/etc/wireguard/wg0.conf")
	assert.Contains(t, out, "Tunnel provisioned")
	assert.NotContains(t, out, "[Peer]")
	assert.NotContains(t, out, "warning")
}

func TestRenderReport_Warnings(t *testing.T) {
	r := &provision.Report{
		State:           provision.StateDone,
		ConfigPath:      "/etc/wireguard/wg0.conf",
		PeerStanza:      tunnel.PeerStanza("xTIBA5rboUvnH4htodjb6e697QjLERt1NAB4mZqp8Dg=", 42),
		ActivationError: "systemctl restart wg-quick@wg0: exit status 1",
		Checks: []doctor.CheckResult{
			{Name: "gateway", Status: doctor.StatusPass, Message: "Gateway 10.0.0.1 reachable"},
			{Name: "dns", Status: doctor.StatusWarn, Message: "Can't resolve google.com", Suggestion: "Check DNS"},
		},
		Warnings: []string{"registration", "activation", "dns"},
	}

	var buf bytes.Buffer
	renderReport(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "    [Peer]")
	assert.Contains(t, out, "    AllowedIPs = 10.0.0.42/32")
	assert.Contains(t, out, "wg syncconf")
	assert.Contains(t, out, "Interface not brought up: systemctl restart")
	assert.Contains(t, out, "wg-quick up /etc/wireguard/wg0.conf")
	assert.Contains(t, out, "Connectivity")
	assert.Contains(t, out, "Check DNS")
	assert.Contains(t, out, "Tunnel provisioned with 3 warnings")
}
