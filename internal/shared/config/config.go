// Package config loads walletd settings from defaults, an optional TOML
// file, WALLETD_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "walletd"
	FileName  = "walletd"
	FileType  = "toml"

	permConfig    = 0600
	permConfigDir = 0700
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server" toml:"server"`
	Proxy         ProxyConfig         `mapstructure:"proxy" toml:"proxy"`
	Store         StoreConfig         `mapstructure:"store" toml:"store"`
	Pin           PinConfig           `mapstructure:"pin" toml:"pin"`
	Observability ObservabilityConfig `mapstructure:"observability" toml:"observability"`
	Log           LogConfig           `mapstructure:"log" toml:"log"`
}

// ServerConfig enables HTTPS when both TLSCert and TLSKey are set; missing
// files are created with a self-signed certificate.
type ServerConfig struct {
	Addr      string `mapstructure:"addr" toml:"addr"`
	AdminAddr string `mapstructure:"admin_addr" toml:"admin_addr"`
	TLSCert   string `mapstructure:"tls_cert" toml:"tls_cert"`
	TLSKey    string `mapstructure:"tls_key" toml:"tls_key"`
}

type ProxyConfig struct {
	Timeout         time.Duration `mapstructure:"timeout" toml:"timeout"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps" toml:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst" toml:"rate_limit_burst"`
	BalanceURL      string        `mapstructure:"balance_url" toml:"balance_url"`
	BTCTxsURL       string        `mapstructure:"btc_txs_url" toml:"btc_txs_url"`
	ETHTxsURL       string        `mapstructure:"eth_txs_url" toml:"eth_txs_url"`
	EtherscanAPIKey string        `mapstructure:"etherscan_api_key" toml:"etherscan_api_key"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" toml:"driver"`
	Path   string `mapstructure:"path" toml:"path"`
}

type PinConfig struct {
	MinLength  int  `mapstructure:"min_length" toml:"min_length"`
	MaxLength  int  `mapstructure:"max_length" toml:"max_length"`
	DigitsOnly bool `mapstructure:"digits_only" toml:"digits_only"`
}

type ObservabilityConfig struct {
	DSN         string `mapstructure:"dsn" toml:"dsn"`
	Environment string `mapstructure:"environment" toml:"environment"`
}

type LogConfig struct {
	Level string `mapstructure:"level" toml:"level"`
}

// Defaults returns every known key with its default value. Keys missing
// here are invisible to environment lookups.
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":               ":8080",
		"server.admin_addr":         "",
		"proxy.timeout":             "5s",
		"proxy.rate_limit_rps":      0.0,
		"proxy.rate_limit_burst":    0,
		"proxy.balance_url":         "https://api.blockcypher.com/v1/btc/main/addrs/{address}/balance",
		"proxy.btc_txs_url":         "https://blockchain.info/rawaddr/{address}",
		"proxy.eth_txs_url":         "https://api.etherscan.io/api?module=account&action=txlist&address={address}&startblock=0&endblock=99999999&page=1&offset=50&sort=desc",
		"proxy.etherscan_api_key":   "",
		"store.driver":              "toml",
		"store.path":                DefaultStorePath(),
		"pin.min_length":            1,
		"pin.max_length":            0,
		"pin.digits_only":           false,
		"observability.dsn":         "",
		"observability.environment": "",
		"log.level":                 "info",
	}
}

// FlagKeys maps command line flag names to config keys.
var FlagKeys = map[string]string{
	"addr":       "server.addr",
	"admin-addr": "server.admin_addr",
	"tls-cert":   "server.tls_cert",
	"tls-key":    "server.tls_key",
	"store":      "store.driver",
	"store-path": "store.path",
	"log-level":  "log.level",
	"timeout":    "proxy.timeout",
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, "walletd"), nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName+"."+FileType), nil
}

func DefaultStorePath() string {
	dir, err := Dir()
	if err != nil {
		return FileName + "-store.toml"
	}
	return filepath.Join(dir, "store.toml")
}

// Load resolves the configuration. file, when non-empty, must exist; the
// default locations are optional. cmd may be nil.
func Load(cmd *cobra.Command, file string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigType(FileType)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return c, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		for name, key := range FlagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Proxy.Timeout <= 0 {
		return errors.New("proxy.timeout must be positive")
	}
	if c.Pin.MinLength < 1 {
		return errors.New("pin.min_length must be at least 1")
	}
	if c.Pin.MaxLength != 0 && c.Pin.MaxLength < c.Pin.MinLength {
		return errors.New("pin.max_length must be 0 or at least pin.min_length")
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return errors.New("server.tls_cert and server.tls_key must be set together")
	}
	if c.Proxy.RateLimitRPS < 0 || c.Proxy.RateLimitBurst < 0 {
		return errors.New("proxy rate limit must not be negative")
	}
	return nil
}

// Write stores c as TOML at path, creating parent directories. The file
// may hold API keys and DSNs, so it is private to the user.
func Write(c *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), permConfigDir); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, permConfig)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
