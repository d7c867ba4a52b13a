package keystore

import (
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/crypto/curve25519"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// KeyGenerator creates and derives WireGuard keys. Implementations return
// keys in the base64 form used by wg(8) and wg-quick config files.
type KeyGenerator interface {
	GenerateKeyPair() (privateKey, publicKey string, err error)
	DerivePublicKey(privateKey string) (string, error)
}

// CommandKeyGenerator shells out to the wg binary.
type CommandKeyGenerator struct {
	// Binary defaults to "wg".
	Binary string
}

func (g CommandKeyGenerator) binary() string {
	if g.Binary == "" {
		return "wg"
	}
	return g.Binary
}

// GenerateKeyPair runs "wg genkey" and derives the public half with "wg pubkey".
func (g CommandKeyGenerator) GenerateKeyPair() (string, string, error) {
	out, err := exec.Command(g.binary(), "genkey").Output()
	if err != nil {
		return "", "", fmt.Errorf("wg genkey: %w", err)
	}
	priv := strings.TrimSpace(string(out))

	pub, err := g.DerivePublicKey(priv)
	if err != nil {
		return "", "", err
	}
	return priv, pub, nil
}

// DerivePublicKey pipes the private key into "wg pubkey".
func (g CommandKeyGenerator) DerivePublicKey(privateKey string) (string, error) {
	cmd := exec.Command(g.binary(), "pubkey")
	cmd.Stdin = strings.NewReader(privateKey + "\n")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("wg pubkey: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// NativeKeyGenerator generates keys in-process, for hosts without wireguard-tools.
type NativeKeyGenerator struct{}

// GenerateKeyPair creates a clamped Curve25519 private key.
func (NativeKeyGenerator) GenerateKeyPair() (string, string, error) {
	priv, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return "", "", fmt.Errorf("generate private key: %w", err)
	}
	pub, err := NativeKeyGenerator{}.DerivePublicKey(priv.String())
	if err != nil {
		return "", "", err
	}
	return priv.String(), pub, nil
}

// DerivePublicKey computes X25519(priv, basepoint).
func (NativeKeyGenerator) DerivePublicKey(privateKey string) (string, error) {
	priv, err := wgtypes.ParseKey(strings.TrimSpace(privateKey))
	if err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return "", fmt.Errorf("derive public key: %w", err)
	}
	var key wgtypes.Key
	copy(key[:], pub)
	return key.String(), nil
}

// ValidKey reports whether s is a base64 WireGuard key.
func ValidKey(s string) bool {
	_, err := wgtypes.ParseKey(s)
	return err == nil
}
