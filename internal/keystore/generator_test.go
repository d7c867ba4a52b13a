package keystore

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

func TestNativeKeyGenerator_MatchesWgtypes(t *testing.T) {
	priv, pub, err := NativeKeyGenerator{}.GenerateKeyPair()
	require.NoError(t, err)

	key, err := wgtypes.ParseKey(priv)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey().String(), pub)
}

func TestNativeKeyGenerator_Deterministic(t *testing.T) {
	priv, _, err := NativeKeyGenerator{}.GenerateKeyPair()
	require.NoError(t, err)

	a, err := NativeKeyGenerator{}.DerivePublicKey(priv)
	require.NoError(t, err)
	b, err := NativeKeyGenerator{}.DerivePublicKey(priv + "\n")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNativeKeyGenerator_RejectsGarbage(t *testing.T) {
	_, err := NativeKeyGenerator{}.DerivePublicKey("definitely not base64!")
	assert.Error(t, err)
}

func TestValidKey(t *testing.T) {
	assert.True(t, ValidKey("YAnz6qWkbXDYwaG6ZW8PFNIGVVSCWjNQNrSJ4fJTJFI="))
	assert.False(t, ValidKey(""))
	assert.False(t, ValidKey("abc"))
	assert.False(t, ValidKey("YAnz6qWkbXDYwaG6ZW8PFNIGVVSCWjNQNrSJ4fJT"))
}

func TestCommandKeyGenerator_AgreesWithNative(t *testing.T) {
	if _, err := exec.LookPath("wg"); err != nil {
		t.Skip("wg not installed")
	}

	priv, pub, err := CommandKeyGenerator{}.GenerateKeyPair()
	require.NoError(t, err)

	native, err := NativeKeyGenerator{}.DerivePublicKey(priv)
	require.NoError(t, err)
	assert.Equal(t, native, pub)
}

func TestCommandKeyGenerator_MissingBinary(t *testing.T) {
	_, _, err := CommandKeyGenerator{Binary: "wgjoin-no-such-binary"}.GenerateKeyPair()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wg genkey")
}
