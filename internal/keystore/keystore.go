package keystore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/wgjoin/internal/errors"
	"github.com/rileyhilliard/wgjoin/internal/logger"
)

// File names inside the key directory, matching the wg(8) man page examples.
const (
	PrivateKeyFile = "privatekey"
	PublicKeyFile  = "publickey"
)

// ClientIdentity is the local WireGuard key pair.
type ClientIdentity struct {
	PrivateKey string `json:"-"`
	PublicKey  string `json:"public_key"`
}

// String never includes the private key.
func (id ClientIdentity) String() string {
	return fmt.Sprintf("ClientIdentity{PublicKey: %s}", id.PublicKey)
}

// KeyStore persists a ClientIdentity in a directory.
type KeyStore struct {
	Dir string
	Gen KeyGenerator
	Log logger.Logger
}

// New creates a KeyStore over dir. A nil logger discards messages.
func New(dir string, gen KeyGenerator, log logger.Logger) *KeyStore {
	if log == nil {
		log = logger.Noop()
	}
	return &KeyStore{Dir: dir, Gen: gen, Log: log}
}

// PrivatePath returns the private key file path.
func (s *KeyStore) PrivatePath() string { return filepath.Join(s.Dir, PrivateKeyFile) }

// PublicPath returns the public key file path.
func (s *KeyStore) PublicPath() string { return filepath.Join(s.Dir, PublicKeyFile) }

// Load reads an existing identity. Both files must exist.
func (s *KeyStore) Load() (ClientIdentity, error) {
	priv, err := readKey(s.PrivatePath())
	if err != nil {
		return ClientIdentity{}, keyReadError(err, s.PrivatePath())
	}
	pub, err := readKey(s.PublicPath())
	if err != nil {
		return ClientIdentity{}, keyReadError(err, s.PublicPath())
	}
	return ClientIdentity{PrivateKey: priv, PublicKey: pub}, nil
}

// Ensure returns the stored identity, creating whatever is missing.
// An existing private key is never replaced. A missing public key is derived
// from it. The private key file ends up owner-only either way.
func (s *KeyStore) Ensure() (ClientIdentity, error) {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return ClientIdentity{}, errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Failed to create key directory %s", s.Dir),
			"Run as root or set key_dir to a writable directory")
	}

	priv, err := readKey(s.PrivatePath())
	if os.IsNotExist(err) {
		return s.generate()
	}
	if err != nil {
		return ClientIdentity{}, keyReadError(err, s.PrivatePath())
	}

	if !ValidKey(priv) {
		return ClientIdentity{}, errors.New(errors.ErrKeys,
			fmt.Sprintf("%s does not contain a valid WireGuard key", s.PrivatePath()),
			"Move the file aside to have a new key generated")
	}
	if err := s.restrict(s.PrivatePath()); err != nil {
		return ClientIdentity{}, err
	}

	pub, err := readKey(s.PublicPath())
	if err == nil && ValidKey(pub) {
		s.Log.Debug("reusing key pair in %s", s.Dir)
		return ClientIdentity{PrivateKey: priv, PublicKey: pub}, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return ClientIdentity{}, keyReadError(err, s.PublicPath())
	}

	s.Log.Info("public key missing in %s, deriving it from the private key", s.Dir)
	pub, err = s.Gen.DerivePublicKey(priv)
	if err != nil {
		return ClientIdentity{}, errors.WrapWithCode(err, errors.ErrKeys,
			"Failed to derive public key",
			"Install wireguard-tools or use --native-keys")
	}
	if err := writePublic(s.PublicPath(), pub); err != nil {
		return ClientIdentity{}, err
	}
	return ClientIdentity{PrivateKey: priv, PublicKey: pub}, nil
}

// Save writes a new identity. It refuses to replace an existing private key.
func (s *KeyStore) Save(id ClientIdentity) error {
	if !ValidKey(id.PrivateKey) || !ValidKey(id.PublicKey) {
		return errors.New(errors.ErrKeys, "Refusing to save malformed key pair", "")
	}
	if err := writePrivate(s.PrivatePath(), id.PrivateKey); err != nil {
		return err
	}
	return writePublic(s.PublicPath(), id.PublicKey)
}

func (s *KeyStore) generate() (ClientIdentity, error) {
	s.Log.Info("generating new key pair in %s", s.Dir)
	priv, pub, err := s.Gen.GenerateKeyPair()
	if err != nil {
		return ClientIdentity{}, errors.WrapWithCode(err, errors.ErrKeys,
			"Failed to generate WireGuard key pair",
			"Install wireguard-tools or use --native-keys")
	}
	id := ClientIdentity{PrivateKey: priv, PublicKey: pub}
	if err := s.Save(id); err != nil {
		return ClientIdentity{}, err
	}
	return id, nil
}

// restrict drops group/other bits from a secret file.
func (s *KeyStore) restrict(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return keyReadError(err, path)
	}
	if info.Mode().Perm()&0o077 == 0 {
		return nil
	}
	s.Log.Warn("%s had mode %04o, tightening to 0600", path, info.Mode().Perm())
	if err := os.Chmod(path, 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Failed to restrict permissions on %s", path),
			"Run: chmod 600 "+path)
	}
	return nil
}

func readKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// writePrivate creates the file exclusively with mode 0600 so the key is
// never readable by others, not even between create and chmod.
func writePrivate(path, key string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return errors.New(errors.ErrKeys,
				fmt.Sprintf("Private key already exists at %s", path),
				"Existing keys are never overwritten")
		}
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Failed to create %s", path),
			"Run as root or set key_dir to a writable directory")
	}
	if _, err := f.WriteString(key + "\n"); err != nil {
		f.Close()
		os.Remove(path)
		return errors.WrapWithCode(err, errors.ErrKeys, "Failed to write private key", "Check free disk space")
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return errors.WrapWithCode(err, errors.ErrKeys, "Failed to write private key", "Check free disk space")
	}
	return nil
}

func writePublic(path, key string) error {
	if err := os.WriteFile(path, []byte(key+"\n"), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("Failed to write %s", path),
			"Run as root or set key_dir to a writable directory")
	}
	return nil
}

func keyReadError(err error, path string) error {
	if os.IsNotExist(err) {
		return errors.WrapWithCode(err, errors.ErrKeys,
			fmt.Sprintf("No key found at %s", path),
			"Run 'wgjoin keys' to create one")
	}
	return errors.WrapWithCode(err, errors.ErrKeys,
		fmt.Sprintf("Failed to read %s", path),
		"Run as root or check file permissions")
}
