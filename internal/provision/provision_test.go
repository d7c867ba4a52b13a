package provision

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/wgjoin/internal/controlplane"
	"github.com/rileyhilliard/wgjoin/internal/doctor"
	wjerrors "github.com/rileyhilliard/wgjoin/internal/errors"
	"github.com/rileyhilliard/wgjoin/internal/keystore"
	"github.com/rileyhilliard/wgjoin/internal/logger"
	"github.com/rileyhilliard/wgjoin/internal/tunnel"
)

const (
	serverKey = "HIgo9xNzJMWLKASShiTqIybxZ0U3wGLiUeJ1PKf8ykw="
	infoOK    = `{"ok": true, "server_public_key": "` + serverKey + `", "server_port": "51820", "ip_last_octet": 42}`
)

// controlPlane fakes both endpoints and records what was registered.
type controlPlane struct {
	info     http.HandlerFunc
	register http.HandlerFunc

	mu         sync.Mutex
	registered []controlplane.RegistrationRequest
}

func (cp *controlPlane) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/wireguard/info":
		cp.info(w, r)
	case "/api/wireguard/register":
		var req controlplane.RegistrationRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		cp.mu.Lock()
		cp.registered = append(cp.registered, req)
		cp.mu.Unlock()
		cp.register(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (cp *controlPlane) requests() []controlplane.RegistrationRequest {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return append([]controlplane.RegistrationRequest(nil), cp.registered...)
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

type fakeActivator struct {
	err   error
	calls []string
}

func (a *fakeActivator) Name() string { return "fake" }

func (a *fakeActivator) Activate(_ context.Context, iface, confPath string) error {
	a.calls = append(a.calls, iface+" "+confPath)
	return a.err
}

type staticCheck struct {
	status doctor.CheckStatus
	msg    string
}

func (c staticCheck) Name() string     { return "static" }
func (c staticCheck) Category() string { return doctor.CategoryConnectivity }
func (c staticCheck) Run() doctor.CheckResult {
	return doctor.CheckResult{Status: c.status, Message: c.msg}
}
func (c staticCheck) Fix() error { return nil }

type fixture struct {
	cp        *controlPlane
	prov      *Provisioner
	activator *fakeActivator
	keyDir    string
	confDir   string
	log       *logger.BufferLogger
}

func newFixture(t *testing.T, cp *controlPlane) *fixture {
	t.Helper()
	srv := httptest.NewServer(cp)
	t.Cleanup(srv.Close)
	return newFixtureAt(t, cp, srv.URL, 2*time.Second)
}

func newFixtureAt(t *testing.T, cp *controlPlane, address string, registerTimeout time.Duration) *fixture {
	t.Helper()
	log := logger.NewBufferLogger()

	client, err := controlplane.NewClient(controlplane.Options{
		Address:         address,
		InfoPath:        "/api/wireguard/info",
		RegisterPath:    "/api/wireguard/register",
		ConnectTimeout:  time.Second,
		InfoTimeout:     2 * time.Second,
		RegisterTimeout: registerTimeout,
		Log:             log,
	})
	require.NoError(t, err)

	keyDir := filepath.Join(t.TempDir(), "keys")
	confDir := filepath.Join(t.TempDir(), "conf")
	activator := &fakeActivator{}

	return &fixture{
		cp:        cp,
		activator: activator,
		keyDir:    keyDir,
		confDir:   confDir,
		log:       log,
		prov: &Provisioner{
			ControlPlane: client,
			Keys:         keystore.New(keyDir, keystore.NativeKeyGenerator{}, log),
			Activator:    activator,
			Interface:    "wg0",
			ConfigDir:    confDir,
			DNS:          []string{"1.1.1.1"},
			Log:          log,
			Hostname:     func() (string, error) { return "edge-7", nil },
			LocalIP:      func(string) string { return "192.168.1.20" },
		},
	}
}

func TestRun_PeerAutoConfigured(t *testing.T) {
	cp := &controlPlane{
		info:     respond(200, infoOK),
		register: respond(200, `{"wg_configured": true, "message": "peer added"}`),
	}
	f := newFixture(t, cp)

	report, err := f.prov.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, report.State)
	require.NotNil(t, report.Registration)
	assert.True(t, report.Registration.Accepted)
	assert.True(t, report.Registration.PeerAutoConfigured)
	assert.Equal(t, "peer added", report.Registration.Message)
	assert.False(t, report.NeedsManualPeer())
	assert.True(t, report.Activated)
	assert.Empty(t, report.Warnings)

	assert.Equal(t, "10.0.0.42/24", report.Address)
	assert.Equal(t, filepath.Join(f.confDir, "wg0.conf"), report.ConfigPath)
	assert.Equal(t, []string{"wg0 " + report.ConfigPath}, f.activator.calls)

	info, err := os.Stat(report.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRun_RegistrationCarriesNoPrivateKey(t *testing.T) {
	cp := &controlPlane{
		info:     respond(200, infoOK),
		register: respond(200, `{"wg_configured": true}`),
	}
	f := newFixture(t, cp)

	report, err := f.prov.Run(context.Background())
	require.NoError(t, err)

	id, err := keystore.New(f.keyDir, nil, nil).Load()
	require.NoError(t, err)

	reqs := cp.requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, "edge-7", req.Hostname)
	assert.Equal(t, "192.168.1.20", req.LocalIP)
	assert.Equal(t, "wg0", req.Interface)
	assert.Equal(t, report.PublicKey, req.PublicKey)
	assert.Equal(t, id.PublicKey, req.PublicKey)
	assert.NotContains(t, req.Config, id.PrivateKey)
	assert.Contains(t, req.Config, "Address = 10.0.0.42/24")

	// The file on disk does carry the key.
	data, err := os.ReadFile(report.ConfigPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "PrivateKey = "+id.PrivateKey)
	assert.Contains(t, string(data), "Endpoint = 127.0.0.1:51820")
}

func TestRun_RegistrationNotAutoConfigured(t *testing.T) {
	cp := &controlPlane{
		info:     respond(200, infoOK),
		register: respond(200, `{"wg_configured": false, "warning": "wg set failed on server"}`),
	}
	f := newFixture(t, cp)

	report, err := f.prov.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Registration.Accepted)
	assert.False(t, report.Registration.PeerAutoConfigured)
	assert.True(t, report.NeedsManualPeer())
	assert.Equal(t, tunnel.PeerStanza(report.PublicKey, 42), report.PeerStanza)
	assert.Contains(t, strings.Join(report.Warnings, "\n"), "wg set failed on server")
	assert.True(t, report.Activated)
}

func TestRun_RegistrationServerErrorStillActivates(t *testing.T) {
	cp := &controlPlane{
		info:     respond(200, infoOK),
		register: respond(500, `internal error`),
	}
	f := newFixture(t, cp)

	report, err := f.prov.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, report.State)
	assert.False(t, report.Registration.Accepted)
	assert.Equal(t, 500, report.Registration.StatusCode)
	assert.True(t, report.NeedsManualPeer())
	assert.Contains(t, report.PeerStanza, "AllowedIPs = 10.0.0.42/32")
	assert.Len(t, f.activator.calls, 1)
	assert.True(t, report.Activated)
}

func TestRun_RegistrationTimeoutStillActivates(t *testing.T) {
	cp := &controlPlane{
		info: respond(200, infoOK),
		register: func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(3 * time.Second):
			}
		},
	}
	srv := httptest.NewServer(cp)
	t.Cleanup(srv.Close)
	f := newFixtureAt(t, cp, srv.URL, 200*time.Millisecond)

	report, err := f.prov.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Registration.Accepted)
	assert.True(t, report.NeedsManualPeer())
	assert.True(t, report.Activated)
	assert.Equal(t, StateDone, report.State)
}

func TestRun_ServerRejected(t *testing.T) {
	cp := &controlPlane{
		info:     respond(200, `{"ok": false, "error": "quota exceeded"}`),
		register: respond(200, `{}`),
	}
	f := newFixture(t, cp)

	report, err := f.prov.Run(context.Background())
	require.Error(t, err)

	assert.True(t, wjerrors.IsCode(err, wjerrors.ErrRejected))
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, StateInit, report.State)
	assert.Empty(t, f.activator.calls)
	assert.Empty(t, cp.requests())

	_, statErr := os.Stat(filepath.Join(f.keyDir, keystore.PrivateKeyFile))
	assert.True(t, os.IsNotExist(statErr), "no key is generated before server info is known")
}

func TestRun_Malformed(t *testing.T) {
	cp := &controlPlane{
		info:     respond(200, `{"ok": true, "ip_last_octet": 3}`),
		register: respond(200, `{}`),
	}
	f := newFixture(t, cp)

	_, err := f.prov.Run(context.Background())
	require.Error(t, err)
	assert.True(t, wjerrors.IsCode(err, wjerrors.ErrMalformed))
	assert.Contains(t, err.Error(), "server_public_key")
}

func TestRun_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	address := srv.URL
	srv.Close()

	f := newFixtureAt(t, &controlPlane{}, address, time.Second)

	report, err := f.prov.Run(context.Background())
	require.Error(t, err)
	assert.True(t, wjerrors.IsCode(err, wjerrors.ErrUnreachable))
	assert.Contains(t, err.Error(), "Is the control-plane service running")
	assert.Contains(t, err.Error(), address+"/api/wireguard/info")
	assert.Equal(t, StateInit, report.State)
	assert.Empty(t, f.activator.calls)
}

func TestRun_ActivationFailureIsAWarning(t *testing.T) {
	cp := &controlPlane{
		info:     respond(200, infoOK),
		register: respond(200, `{"wg_configured": true}`),
	}
	f := newFixture(t, cp)
	f.activator.err = errors.New("systemctl restart: exit status 1")
	f.prov.Checks = []doctor.Check{staticCheck{status: doctor.StatusPass}}

	report, err := f.prov.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, report.State)
	assert.False(t, report.Activated)
	assert.Contains(t, report.ActivationError, "exit status 1")
	assert.Empty(t, report.Checks, "checks only run on an active tunnel")
	assert.Len(t, report.Warnings, 1)
}

func TestRun_ChecksAreInformational(t *testing.T) {
	cp := &controlPlane{
		info:     respond(200, infoOK),
		register: respond(200, `{"wg_configured": true}`),
	}
	f := newFixture(t, cp)
	f.prov.Checks = []doctor.Check{
		staticCheck{status: doctor.StatusPass, msg: "gateway reachable"},
		staticCheck{status: doctor.StatusWarn, msg: "8.8.8.8 unreachable"},
	}

	report, err := f.prov.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Checks, 2)
	assert.Equal(t, []string{"8.8.8.8 unreachable"}, report.Warnings)
}

func TestRun_NoActivator(t *testing.T) {
	cp := &controlPlane{
		info:     respond(200, infoOK),
		register: respond(200, `{"wg_configured": true}`),
	}
	f := newFixture(t, cp)
	f.prov.Activator = nil
	f.prov.Checks = []doctor.Check{staticCheck{status: doctor.StatusWarn}}

	report, err := f.prov.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Activated)
	assert.Empty(t, report.Activator)
	assert.Empty(t, report.Checks)
}

func TestRun_KeyFailureIsFatal(t *testing.T) {
	cp := &controlPlane{
		info:     respond(200, infoOK),
		register: respond(200, `{"wg_configured": true}`),
	}
	f := newFixture(t, cp)
	f.prov.Keys = failingStore{}

	report, err := f.prov.Run(context.Background())
	require.Error(t, err)
	assert.True(t, wjerrors.IsCode(err, wjerrors.ErrKeys))
	assert.Equal(t, StateServerInfoFetched, report.State)
	assert.Empty(t, cp.requests())
}

type failingStore struct{}

func (failingStore) Ensure() (keystore.ClientIdentity, error) {
	return keystore.ClientIdentity{}, wjerrors.New(wjerrors.ErrKeys, "no keys", "")
}

func TestRun_StateSequence(t *testing.T) {
	cp := &controlPlane{
		info:     respond(200, infoOK),
		register: respond(500, ``),
	}
	f := newFixture(t, cp)

	var seen []string
	f.prov.OnState = func(s State, _ *Report) { seen = append(seen, s.String()) }

	_, err := f.prov.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"SERVER_INFO_FETCHED",
		"IDENTITY_READY",
		"CONFIG_RENDERED",
		"REGISTRATION_ATTEMPTED",
		"DONE",
	}, seen)
}

func TestRun_ReusesIdentityAcrossRuns(t *testing.T) {
	cp := &controlPlane{
		info:     respond(200, infoOK),
		register: respond(200, `{"wg_configured": true}`),
	}
	f := newFixture(t, cp)

	first, err := f.prov.Run(context.Background())
	require.NoError(t, err)
	second, err := f.prov.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.PublicKey, second.PublicKey)
	assert.Len(t, cp.requests(), 2)
}

func TestReport_JSON(t *testing.T) {
	data, err := json.Marshal(&Report{State: StateRegistrationAttempted})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state": "REGISTRATION_ATTEMPTED", "activated": false}`, string(data))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "INIT", StateInit.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}

func TestState_UnmarshalText(t *testing.T) {
	var s State
	require.NoError(t, s.UnmarshalText([]byte("CONFIG_RENDERED")))
	assert.Equal(t, StateConfigRendered, s)
	assert.Error(t, s.UnmarshalText([]byte("LAUNCHED")))
}

func TestLocalIP_Loopback(t *testing.T) {
	assert.Equal(t, "127.0.0.1", LocalIP("127.0.0.1"))
}
