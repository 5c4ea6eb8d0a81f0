package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDriver = "driver"
	cfgKeyDSN    = "dsn"

	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	defaultDBFile = "marginalia.db"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# Marginalia configuration

# Storage driver: sqlite or postgres
driver: sqlite

# Data source name. For sqlite this is a file path; for postgres a
# connection URL, e.g. postgres://localhost/marginalia?sslmode=disable
# dsn:
`

// config is the resolved CLI configuration.
type config struct {
	Driver string
	DSN    string
}

// loadConfig reads config.yaml from the config directory using Viper,
// creating the directory and a default file on first run. Environment
// variables MARGINALIA_DRIVER and MARGINALIA_DSN override file values.
func loadConfig(configDir string) (config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return config{}, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return config{}, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyDriver, driverSQLite)
	v.SetDefault(cfgKeyDSN, filepath.Join(configDir, defaultDBFile))
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("marginalia")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config{}, fmt.Errorf("read config: %w", err)
		}
		// A missing config.yaml is not an error; defaults apply.
	}

	cfg := config{
		Driver: v.GetString(cfgKeyDriver),
		DSN:    v.GetString(cfgKeyDSN),
	}
	if cfg.DSN == "" {
		cfg.DSN = filepath.Join(configDir, defaultDBFile)
	}
	return cfg, nil
}

// ensureDefaultConfigFile creates a default config.yaml if none exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
