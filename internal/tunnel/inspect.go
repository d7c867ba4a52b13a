package tunnel

import (
	"sort"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// DeviceStatus is a snapshot of a live WireGuard interface.
type DeviceStatus struct {
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	PublicKey  string       `json:"public_key"`
	ListenPort int          `json:"listen_port"`
	Peers      []PeerStatus `json:"peers"`
}

// PeerStatus is one peer of a live interface.
type PeerStatus struct {
	PublicKey     string    `json:"public_key"`
	Endpoint      string    `json:"endpoint,omitempty"`
	AllowedIPs    []string  `json:"allowed_ips"`
	LastHandshake time.Time `json:"last_handshake"`
	ReceiveBytes  int64     `json:"rx_bytes"`
	TransmitBytes int64     `json:"tx_bytes"`
}

// HandshakeAge returns how long ago the last handshake happened, or -1 if
// there has been none.
func (p PeerStatus) HandshakeAge(now time.Time) time.Duration {
	if p.LastHandshake.IsZero() {
		return -1
	}
	return now.Sub(p.LastHandshake)
}

// deviceReader is the part of *wgctrl.Client used here.
type deviceReader interface {
	Device(name string) (*wgtypes.Device, error)
	Close() error
}

// Inspect reads the state of iface from the kernel (or userspace) WireGuard
// implementation.
func Inspect(iface string) (*DeviceStatus, error) {
	c, err := wgctrl.New()
	if err != nil {
		return nil, err
	}
	return inspectWith(c, iface)
}

func inspectWith(c deviceReader, iface string) (*DeviceStatus, error) {
	defer c.Close()

	dev, err := c.Device(iface)
	if err != nil {
		return nil, err
	}
	return statusFromDevice(dev), nil
}

func statusFromDevice(dev *wgtypes.Device) *DeviceStatus {
	st := &DeviceStatus{
		Name:       dev.Name,
		Type:       dev.Type.String(),
		PublicKey:  dev.PublicKey.String(),
		ListenPort: dev.ListenPort,
		Peers:      make([]PeerStatus, 0, len(dev.Peers)),
	}
	for _, p := range dev.Peers {
		ps := PeerStatus{
			PublicKey:     p.PublicKey.String(),
			LastHandshake: p.LastHandshakeTime,
			ReceiveBytes:  p.ReceiveBytes,
			TransmitBytes: p.TransmitBytes,
		}
		if p.Endpoint != nil {
			ps.Endpoint = p.Endpoint.String()
		}
		for _, ip := range p.AllowedIPs {
			ps.AllowedIPs = append(ps.AllowedIPs, ip.String())
		}
		st.Peers = append(st.Peers, ps)
	}
	sort.Slice(st.Peers, func(i, j int) bool { return st.Peers[i].PublicKey < st.Peers[j].PublicKey })
	return st
}
