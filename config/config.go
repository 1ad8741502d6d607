// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads wallet settings from a key = value file and MCM_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcutil"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bitfsorg/libmcm-go/network"
	"github.com/bitfsorg/libmcm-go/spend"
	"github.com/bitfsorg/libmcm-go/tx"
)

// Configuration keys. Each is also read from the environment as MCM_<KEY>.
const (
	DataDirKey        = "datadir"
	NetworkKey        = "network"
	MeshURLKey        = "meshurl"
	MeshNetworkKey    = "meshnetwork"
	MeshDomainKey     = "meshdomain"
	DNSUpstreamKey    = "dnsupstream"
	LogLevelKey       = "loglevel"
	LogFileKey        = "logfile"
	MinimumFeeKey     = "minimumfee"
	RequestTimeoutKey = "requesttimeout"

	envPrefix  = "MCM"
	configType = "properties"
	configFile = "config"
	dbFile     = "wallet.db"
)

// Config holds the wallet settings.
type Config struct {
	DataDir        string        `mapstructure:"datadir"`
	Network        string        `mapstructure:"network"`
	MeshURL        string        `mapstructure:"meshurl"`
	MeshNetwork    string        `mapstructure:"meshnetwork"`
	MeshDomain     string        `mapstructure:"meshdomain"`
	DNSUpstream    string        `mapstructure:"dnsupstream"` // Validating resolver for MeshDomain lookups
	LogLevel       string        `mapstructure:"loglevel"`
	LogFile        string        `mapstructure:"logfile"`
	MinimumFee     uint64        `mapstructure:"minimumfee"`
	RequestTimeout time.Duration `mapstructure:"requesttimeout"`
}

// DefaultDataDir returns the per-user application data directory.
func DefaultDataDir() string {
	return btcutil.AppDataDir("mcm-wallet", false)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DataDir:        DefaultDataDir(),
		Network:        "mainnet",
		MeshNetwork:    "mainnet",
		LogLevel:       "info",
		MinimumFee:     tx.MinimumFee,
		RequestTimeout: network.DefaultTimeout,
	}
}

// ConfigPath returns the path to the config file within dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFile)
}

// DBPath returns the path of the wallet database within cfg.DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFile)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault(DataDirKey, def.DataDir)
	v.SetDefault(NetworkKey, def.Network)
	v.SetDefault(MeshURLKey, def.MeshURL)
	v.SetDefault(MeshNetworkKey, def.MeshNetwork)
	v.SetDefault(MeshDomainKey, def.MeshDomain)
	v.SetDefault(DNSUpstreamKey, def.DNSUpstream)
	v.SetDefault(LogLevelKey, def.LogLevel)
	v.SetDefault(LogFileKey, def.LogFile)
	v.SetDefault(MinimumFeeKey, def.MinimumFee)
	v.SetDefault(RequestTimeoutKey, def.RequestTimeout)
	return v
}

// LoadConfig reads the key = value file at path. Keys missing from the file
// keep their defaults; MCM_* environment variables override both. Unknown
// keys are ignored.
func LoadConfig(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return decode(v)
}

// FromEnv returns the defaults overridden by MCM_* environment variables.
func FromEnv() (Config, error) {
	return decode(newViper())
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.Set(DataDirKey, cfg.DataDir)
	v.Set(NetworkKey, cfg.Network)
	v.Set(MeshURLKey, cfg.MeshURL)
	v.Set(MeshNetworkKey, cfg.MeshNetwork)
	v.Set(MeshDomainKey, cfg.MeshDomain)
	v.Set(DNSUpstreamKey, cfg.DNSUpstream)
	v.Set(LogLevelKey, cfg.LogLevel)
	v.Set(LogFileKey, cfg.LogFile)
	v.Set(MinimumFeeKey, cfg.MinimumFee)
	v.Set(RequestTimeoutKey, cfg.RequestTimeout.String())

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return os.Chmod(path, 0600)
}

// Mesh resolves the gateway configuration. An explicit MeshURL wins, then
// SRV discovery on MeshDomain, then MCM_MESHURL, then the network preset.
// A nil resolver uses DNSSEC validation through DNSUpstream when it is set
// and the system DNS otherwise.
func (c Config) Mesh(resolver network.DNSResolver) (*network.MeshConfig, error) {
	if c.MeshURL == "" && c.MeshDomain != "" {
		if resolver == nil && c.DNSUpstream != "" {
			resolver = network.NewDNSSECResolver(c.DNSUpstream)
		}
		return network.DiscoverConfig(c.MeshDomain, c.MeshNetwork, resolver)
	}
	env := make(map[string]string)
	for _, key := range []string{network.EnvMeshURL, network.EnvMeshNetwork} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return network.ResolveConfig(&network.MeshConfig{URL: c.MeshURL, Network: c.MeshNetwork}, env, c.Network)
}

// MeshClient resolves the gateway and returns a client bounded by
// RequestTimeout. opts are applied after the timeout.
func (c Config) MeshClient(resolver network.DNSResolver, opts ...network.ClientOption) (*network.MeshClient, error) {
	mc, err := c.Mesh(resolver)
	if err != nil {
		return nil, err
	}
	opts = append([]network.ClientOption{network.WithTimeout(c.RequestTimeout)}, opts...)
	return network.NewMeshClient(*mc, opts...)
}

// SpendOptions returns the spender options implied by c: the fee floor and
// the logger.
func (c Config) SpendOptions(logger *zap.Logger) []spend.Option {
	return []spend.Option{
		spend.WithMinimumFee(c.MinimumFee),
		spend.WithLogger(logger),
	}
}
