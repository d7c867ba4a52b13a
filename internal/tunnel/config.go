package tunnel

import (
	"bufio"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/wgjoin/internal/controlplane"
	"github.com/rileyhilliard/wgjoin/internal/keystore"
)

// Fixed parts of every client config.
const (
	SubnetPrefix = "10.0.0"
	PrefixLength = 24
	Keepalive    = 25 * time.Second
)

// CatchAll routes all IPv4 traffic through the tunnel.
var CatchAll = netip.MustParsePrefix("0.0.0.0/0")

// Config is the wg-quick configuration for a single-peer client.
type Config struct {
	Interface Interface
	Peer      Peer
}

// Interface is the [Interface] section.
type Interface struct {
	PrivateKey string
	Address    netip.Prefix
	DNS        []netip.Addr
}

// Peer is the [Peer] section describing the server.
type Peer struct {
	PublicKey           string
	Endpoint            string
	AllowedIPs          []netip.Prefix
	PersistentKeepalive time.Duration
}

// AssignedAddress returns 10.0.0.<octet>/24.
func AssignedAddress(octet int) (netip.Prefix, error) {
	if octet < 0 || octet > 255 {
		return netip.Prefix{}, fmt.Errorf("octet %d is outside 0-255", octet)
	}
	addr, err := netip.ParseAddr(fmt.Sprintf("%s.%d", SubnetPrefix, octet))
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, PrefixLength), nil
}

// New assembles the client config from the local identity and what the
// control plane announced. host is the control plane host without port.
func New(id keystore.ClientIdentity, info controlplane.ServerInfo, host string, dns []string) (Config, error) {
	addr, err := AssignedAddress(info.AssignedOctet)
	if err != nil {
		return Config{}, err
	}
	if host == "" {
		return Config{}, fmt.Errorf("endpoint host is empty")
	}

	var resolvers []netip.Addr
	for _, d := range dns {
		a, err := netip.ParseAddr(d)
		if err != nil {
			return Config{}, fmt.Errorf("dns %q: %w", d, err)
		}
		resolvers = append(resolvers, a)
	}

	return Config{
		Interface: Interface{
			PrivateKey: id.PrivateKey,
			Address:    addr,
			DNS:        resolvers,
		},
		Peer: Peer{
			PublicKey:           info.PublicKey,
			Endpoint:            net.JoinHostPort(host, strconv.Itoa(info.Port)),
			AllowedIPs:          []netip.Prefix{CatchAll},
			PersistentKeepalive: Keepalive,
		},
	}, nil
}

// Render formats cfg as wg-quick text. Same input, same bytes.
func Render(cfg Config) string {
	var b strings.Builder

	b.WriteString("[Interface]\n")
	fmt.Fprintf(&b, "PrivateKey = %s\n", cfg.Interface.PrivateKey)
	fmt.Fprintf(&b, "Address = %s\n", cfg.Interface.Address)
	if len(cfg.Interface.DNS) > 0 {
		fmt.Fprintf(&b, "DNS = %s\n", joinAddrs(cfg.Interface.DNS))
	}
	b.WriteString("\n")

	b.WriteString("[Peer]\n")
	fmt.Fprintf(&b, "PublicKey = %s\n", cfg.Peer.PublicKey)
	fmt.Fprintf(&b, "Endpoint = %s\n", cfg.Peer.Endpoint)
	if len(cfg.Peer.AllowedIPs) > 0 {
		fmt.Fprintf(&b, "AllowedIPs = %s\n", joinPrefixes(cfg.Peer.AllowedIPs))
	}
	if cfg.Peer.PersistentKeepalive > 0 {
		fmt.Fprintf(&b, "PersistentKeepalive = %d\n", int(cfg.Peer.PersistentKeepalive/time.Second))
	}

	return b.String()
}

// Redacted returns a copy without the private key, suitable for sending
// off the machine or printing.
func (c Config) Redacted() Config {
	out := c
	out.Interface.PrivateKey = "(hidden)"
	out.Interface.DNS = append([]netip.Addr(nil), c.Interface.DNS...)
	out.Peer.AllowedIPs = append([]netip.Prefix(nil), c.Peer.AllowedIPs...)
	return out
}

// PeerStanza is the [Peer] block an operator adds on the server to
// authorize this client by hand.
func PeerStanza(clientPublicKey string, octet int) string {
	return fmt.Sprintf("[Peer]\nPublicKey = %s\nAllowedIPs = %s.%d/32\n", clientPublicKey, SubnetPrefix, octet)
}

// Parse reads text produced by Render (or a hand-written single-peer
// wg-quick file) back into a Config.
func Parse(text string) (Config, error) {
	var cfg Config
	section := ""
	peers := 0

	sc := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			switch section {
			case "interface":
			case "peer":
				peers++
				if peers > 1 {
					return Config{}, fmt.Errorf("line %d: more than one [Peer] section", lineNo)
				}
			default:
				return Config{}, fmt.Errorf("line %d: unknown section [%s]", lineNo, section)
			}
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Config{}, fmt.Errorf("line %d: expected key = value", lineNo)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		var err error
		switch section {
		case "interface":
			err = parseInterfaceKey(&cfg.Interface, key, value)
		case "peer":
			err = parsePeerKey(&cfg.Peer, key, value)
		default:
			err = fmt.Errorf("key outside of a section")
		}
		if err != nil {
			return Config{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseInterfaceKey(iface *Interface, key, value string) error {
	switch key {
	case "privatekey":
		iface.PrivateKey = value
	case "address":
		p, err := netip.ParsePrefix(value)
		if err != nil {
			return fmt.Errorf("address: %w", err)
		}
		iface.Address = p
	case "dns":
		for _, part := range splitList(value) {
			a, err := netip.ParseAddr(part)
			if err != nil {
				return fmt.Errorf("dns: %w", err)
			}
			iface.DNS = append(iface.DNS, a)
		}
	default:
		return fmt.Errorf("unsupported interface key %q", key)
	}
	return nil
}

func parsePeerKey(peer *Peer, key, value string) error {
	switch key {
	case "publickey":
		peer.PublicKey = value
	case "endpoint":
		peer.Endpoint = value
	case "allowedips":
		for _, part := range splitList(value) {
			p, err := netip.ParsePrefix(part)
			if err != nil {
				return fmt.Errorf("allowedips: %w", err)
			}
			peer.AllowedIPs = append(peer.AllowedIPs, p)
		}
	case "persistentkeepalive":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("persistentkeepalive: %w", err)
		}
		peer.PersistentKeepalive = time.Duration(n) * time.Second
	default:
		return fmt.Errorf("unsupported peer key %q", key)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinAddrs(addrs []netip.Addr) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

func joinPrefixes(prefixes []netip.Prefix) string {
	parts := make([]string, len(prefixes))
	for i, p := range prefixes {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}
