package cli

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/wgjoin/internal/config"
	"github.com/stretchr/testify/require"
)

const (
	testServerKey = "HIgo9xNzJMWLKASShiTqIybxZ0U3wGLiUeJ1PKf8ykw="
	testInfoOK    = `{"ok": true, "server_public_key": "` + testServerKey + `", "ip_last_octet": 42}`
)

// useConfig writes a config file into a temp dir with keys and tunnel
// config kept in that dir, and points --config at it.
func useConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.KeyDir = filepath.Join(dir, "keys")
	cfg.ConfigDir = filepath.Join(dir, "wireguard")
	cfg.Activator = config.ActivatorNone
	if mutate != nil {
		mutate(cfg)
	}

	path := filepath.Join(dir, "wgjoin.yaml")
	require.NoError(t, config.Write(path, cfg, false))

	orig := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = orig })
	return cfg
}

// fakeControlPlane serves both endpoints with fixed responses.
func fakeControlPlane(t *testing.T, infoStatus int, info string, registerStatus int, register string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/wireguard/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(infoStatus)
		io.WriteString(w, info)
	})
	mux.HandleFunc("/api/wireguard/register", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(registerStatus)
		io.WriteString(w, register)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
