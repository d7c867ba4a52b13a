package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rileyhilliard/wgjoin/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the config file name looked up in the current directory.
	ConfigFileName = "wgjoin.yaml"
	// UserConfigDir is the per-user config directory under $HOME.
	UserConfigDir = ".config/wgjoin"
	// UserConfigFile is the per-user config file name.
	UserConfigFile = "config.yaml"
	// SystemConfigPath is the machine-wide config file.
	SystemConfigPath = "/etc/wgjoin/config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. WGJOIN_CONTROL_PLANE.
	EnvPrefix = "WGJOIN"
)

// envFiles are dotenv files loaded before the environment is consulted.
// Variables already present in the process environment win.
var envFiles = []string{"/etc/wgjoin/wgjoin.env", ".env"}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. wgjoin.yaml in the current directory
// 3. ~/.config/wgjoin/config.yaml
// 4. /etc/wgjoin/config.yaml
//
// Returns an empty path when no file exists; defaults and environment
// overrides still apply in that case.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ConfigFileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, UserConfigDir, UserConfigFile))
	}
	candidates = append(candidates, SystemConfigPath)

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// Load builds the effective config from defaults, the file at path (if
// non-empty), dotenv files, and WGJOIN_* environment variables.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'wgjoin init' to create one, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	// WGJOIN_DNS arrives as one comma-separated string.
	if len(cfg.DNS) == 1 && strings.Contains(cfg.DNS[0], ",") {
		cfg.DNS = splitList(cfg.DNS[0])
	}

	return cfg, nil
}

// LoadOrDefault finds and loads the config, falling back to defaults plus
// environment overrides when no file exists.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("control_plane", "")
	v.SetDefault("token", "")
	v.SetDefault("interface", d.Interface)
	v.SetDefault("key_dir", d.KeyDir)
	v.SetDefault("config_dir", d.ConfigDir)
	v.SetDefault("activator", d.Activator)
	v.SetDefault("dns", d.DNS)
	v.SetDefault("endpoints.info", d.Endpoints.Info)
	v.SetDefault("endpoints.register", d.Endpoints.Register)
	v.SetDefault("timeouts.connect", d.Timeouts.Connect)
	v.SetDefault("timeouts.info", d.Timeouts.Info)
	v.SetDefault("timeouts.register", d.Timeouts.Register)
	v.SetDefault("checks.gateway", d.Checks.Gateway)
	v.SetDefault("checks.external", d.Checks.External)
	v.SetDefault("checks.resolve", d.Checks.Resolve)
	v.SetDefault("checks.timeout", d.Checks.Timeout)
}

// loadEnvFiles loads each dotenv file that exists. Missing files are skipped.
func loadEnvFiles(paths []string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read environment file "+p,
				"Each line should look like KEY=value")
		}
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
