package cli

import (
	"fmt"
	"io"
	"net/netip"
	"os"

	"github.com/rileyhilliard/wgjoin/internal/config"
	"github.com/rileyhilliard/wgjoin/internal/errors"
	"github.com/rileyhilliard/wgjoin/internal/keystore"
	"github.com/rileyhilliard/wgjoin/internal/logger"
	"github.com/rileyhilliard/wgjoin/internal/tunnel"
	"github.com/rileyhilliard/wgjoin/internal/ui"
)

// KeysOutput is the --json shape of 'wgjoin keys'.
type KeysOutput struct {
	PublicKey      string `json:"public_key"`
	PrivateKeyPath string `json:"private_key_path"`
	PublicKeyPath  string `json:"public_key_path"`
}

// keysCommand makes sure the key pair exists and prints the public key.
func keysCommand(out io.Writer, jsonOut, native bool) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Default()

	store := newKeyStore(cfg, native, log)
	id, err := store.Ensure()
	if err != nil {
		return err
	}

	if jsonOut {
		return WriteJSONSuccess(out, KeysOutput{
			PublicKey:      id.PublicKey,
			PrivateKeyPath: store.PrivatePath(),
			PublicKeyPath:  store.PublicPath(),
		})
	}

	fmt.Fprintln(out, id.PublicKey)
	fmt.Fprintf(os.Stderr, "%s\n", ui.MutedStyle().Render("private key: "+store.PrivatePath()))
	return nil
}

// peerCommand prints the [Peer] stanza an operator adds on the server.
// A nil octet means: read it from the tunnel config written by 'wgjoin up'.
func peerCommand(out io.Writer, octet *int) error {
	if octet != nil && (*octet < 0 || *octet > 255) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%d isn't a valid address octet", *octet),
			"Use a value between 0 and 255")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	id, err := keystore.New(cfg.KeyDir, nil, logger.Default()).Load()
	if err != nil {
		return err
	}

	var last int
	if octet != nil {
		last = *octet
	} else if last, err = assignedOctet(cfg); err != nil {
		return err
	}

	fmt.Fprint(out, tunnel.PeerStanza(id.PublicKey, last))
	return nil
}

// assignedOctet reads the address the server handed out from the existing
// tunnel config.
func assignedOctet(cfg *config.Config) (int, error) {
	path := tunnel.ConfigPath(cfg.ConfigDir, cfg.Interface)
	tc, err := tunnel.ReadFile(path)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrTunnel,
			fmt.Sprintf("Couldn't read %s", path),
			"Run 'wgjoin up' first, or pass the address with --octet")
	}

	addr := tc.Interface.Address.Addr()
	if !addr.Is4() || !tunnelSubnet.Contains(addr) {
		return 0, errors.New(errors.ErrTunnel,
			fmt.Sprintf("%s has address %s, outside %s", path, tc.Interface.Address, tunnelSubnet),
			"Pass the address with --octet")
	}
	return int(addr.As4()[3]), nil
}

var tunnelSubnet = netip.MustParsePrefix(fmt.Sprintf("%s.0/%d", tunnel.SubnetPrefix, tunnel.PrefixLength))
