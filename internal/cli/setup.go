package cli

import (
	"os/exec"

	"github.com/rileyhilliard/wgjoin/internal/config"
	"github.com/rileyhilliard/wgjoin/internal/controlplane"
	"github.com/rileyhilliard/wgjoin/internal/errors"
	"github.com/rileyhilliard/wgjoin/internal/keystore"
	"github.com/rileyhilliard/wgjoin/internal/logger"
	"github.com/rileyhilliard/wgjoin/internal/tunnel"
)

// loadConfig resolves the effective config from --config, dotenv files and
// the environment. Validation is left to the caller so flag overrides can be
// applied first.
func loadConfig() (*config.Config, string, error) {
	return config.LoadOrDefault(Config())
}

// keyGenerator prefers the wg tool and falls back to the built-in
// implementation when it is not installed.
func keyGenerator(native bool, log logger.Logger) keystore.KeyGenerator {
	if native {
		return keystore.NativeKeyGenerator{}
	}
	if _, err := exec.LookPath("wg"); err != nil {
		log.Debug("wg not on PATH, generating keys natively")
		return keystore.NativeKeyGenerator{}
	}
	return keystore.CommandKeyGenerator{}
}

func newKeyStore(cfg *config.Config, native bool, log logger.Logger) *keystore.KeyStore {
	return keystore.New(cfg.KeyDir, keyGenerator(native, log), log)
}

func newControlPlaneClient(cfg *config.Config, log logger.Logger) (*controlplane.Client, error) {
	client, err := controlplane.NewClient(controlplane.Options{
		Address:         cfg.ControlPlane,
		InfoPath:        cfg.Endpoints.Info,
		RegisterPath:    cfg.Endpoints.Register,
		ConnectTimeout:  cfg.Timeouts.Connect,
		InfoTimeout:     cfg.Timeouts.Info,
		RegisterTimeout: cfg.Timeouts.Register,
		Token:           cfg.Token,
		UserAgent:       userAgent(),
		Log:             log,
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Control plane address isn't usable",
			"Use host, host:port, or http(s)://host[:port]")
	}
	return client, nil
}

// newActivator returns nil when the interface should be left alone.
func newActivator(cfg *config.Config) (tunnel.Activator, error) {
	if cfg.Activator == config.ActivatorNone {
		return nil, nil
	}
	a, err := tunnel.NewActivator(cfg.Activator, nil)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Unknown activator",
			"Use systemd, wg-quick, or none")
	}
	return a, nil
}
