// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

/*
Package config handles the gossipmesh configuration: defaults, an optional
config file under the root directory, environment variable overrides, and
bindings for command-line flags.
*/
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sourcenetwork/gossipmesh/errors"
	"github.com/sourcenetwork/gossipmesh/logging"
)

const (
	DefaultRootDirName = ".gossipmesh"
	ConfigFileName     = "config.yaml"

	envPrefix = "GOSSIPMESH"
)

// Config is the whole gossipmesh configuration.
type Config struct {
	Rootdir string `mapstructure:"-"`
	Net     *NetConfig
	API     *APIConfig
	Log     *LogConfig

	v *viper.Viper
}

// NetConfig configures the gossip node.
type NetConfig struct {
	Host           string
	Port           int
	Peers          string
	GossipInterval time.Duration
}

// APIConfig configures the operator HTTP API. An empty address disables it.
type APIConfig struct {
	Address string
}

// LogConfig configures the shared logger.
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	cfg := &Config{
		Net: &NetConfig{
			Host:           "127.0.0.1",
			Port:           5000,
			Peers:          "",
			GossipInterval: time.Second,
		},
		API: &APIConfig{
			Address: "",
		},
		Log: &LogConfig{
			Level:  logging.LevelInfo,
			Format: logging.FormatJSON,
			Output: "",
		},
		v: viper.New(),
	}

	cfg.v.SetEnvPrefix(envPrefix)
	cfg.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.v.AutomaticEnv()
	cfg.v.SetConfigName("config")
	cfg.v.SetConfigType("yaml")
	cfg.setDefaults()

	return cfg
}

func (cfg *Config) setDefaults() {
	cfg.v.SetDefault("net.host", cfg.Net.Host)
	cfg.v.SetDefault("net.port", cfg.Net.Port)
	cfg.v.SetDefault("net.peers", cfg.Net.Peers)
	cfg.v.SetDefault("net.gossipinterval", cfg.Net.GossipInterval)
	cfg.v.SetDefault("api.address", cfg.API.Address)
	cfg.v.SetDefault("log.level", cfg.Log.Level)
	cfg.v.SetDefault("log.format", cfg.Log.Format)
	cfg.v.SetDefault("log.output", cfg.Log.Output)
}

// DefaultRootDir returns the default root directory path.
func DefaultRootDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultRootDirName
	}
	return filepath.Join(home, DefaultRootDirName)
}

// ConfigFilePath returns the path of the config file under the root
// directory.
func (cfg *Config) ConfigFilePath() string {
	return filepath.Join(cfg.Rootdir, ConfigFileName)
}

// ConfigFileExists returns whether a config file exists under the root
// directory.
func (cfg *Config) ConfigFileExists() bool {
	info, err := os.Stat(cfg.ConfigFilePath())
	return err == nil && !info.IsDir()
}

// LoadWithRootdir loads the configuration, reading the config file under
// the root directory when withFile is set, then applies env overrides and
// validates the result.
func (cfg *Config) LoadWithRootdir(withFile bool) error {
	if cfg.Rootdir == "" {
		cfg.Rootdir = DefaultRootDir()
	}

	if withFile {
		cfg.v.AddConfigPath(cfg.Rootdir)
		if err := cfg.v.ReadInConfig(); err != nil {
			return NewErrReadingConfigFile(err)
		}
	}

	if err := cfg.v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return NewErrLoadingConfig(err)
	}

	return cfg.validate()
}

// WriteConfigFile persists the current configuration under the root
// directory, creating the directory when needed.
func (cfg *Config) WriteConfigFile() error {
	if err := os.MkdirAll(cfg.Rootdir, 0755); err != nil {
		return NewErrWritingConfigFile(err)
	}
	if err := cfg.v.WriteConfigAs(cfg.ConfigFilePath()); err != nil {
		return NewErrWritingConfigFile(err)
	}
	return nil
}

// BindFlag binds the given config key to a command-line flag.
func (cfg *Config) BindFlag(key string, flag *pflag.Flag) error {
	return cfg.v.BindPFlag(key, flag)
}

// ToLoggingConfig converts the log section for logging.SetConfig.
func (cfg *Config) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	}
}

func (cfg *Config) validate() error {
	if cfg.Net.Port < 0 || cfg.Net.Port > 65535 {
		return ErrInvalidPort
	}
	if cfg.Net.GossipInterval <= 0 {
		return ErrInvalidGossipInterval
	}
	switch cfg.Log.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelError, logging.LevelFatal:
	default:
		return errors.New("invalid log level", errors.NewKV("Level", cfg.Log.Level))
	}
	return nil
}
