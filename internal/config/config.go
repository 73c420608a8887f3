// Package config loads the balancer's static configuration: a YAML
// file supplies defaults, an optional environment-variable layer
// overrides individual fields for operators who don't want to edit the
// file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/vrischmann/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/athebyme/linebalancer/internal/core/domain"
)

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Config is the balancer's full static configuration.
type Config struct {
	ClientAddr     string    `yaml:"clientAddr"`
	BackendAddr    string    `yaml:"backendAddr"`
	DefaultMode    string    `yaml:"defaultMode"`
	MaxPerBackend  int       `yaml:"maxPerBackend"` // -1 means unlimited
	PingIntervalMs int       `yaml:"pingIntervalMs"`
	Log            LogConfig `yaml:"log"`
}

// envOverrides mirrors the fields operators may override without
// touching the YAML file, following the same envconfig.Init pattern
// used elsewhere in the retrieval pack's agent binaries.
type envOverrides struct {
	ClientAddr     string `envconfig:"LB_CLIENT_ADDR,optional"`
	BackendAddr    string `envconfig:"LB_BACKEND_ADDR,optional"`
	PingIntervalMs int    `envconfig:"LB_PING_INTERVAL_MS,optional"`
	LogLevel       string `envconfig:"LB_LOG_LEVEL,optional"`
}

// Load reads configPath, applies environment overrides, normalizes,
// and validates the result.
func Load(configPath string) (*Config, error) {
	conf := &Config{
		ClientAddr:     ":11114",
		BackendAddr:    ":11115",
		DefaultMode:    string(domain.ModeStatic),
		MaxPerBackend:  -1,
		PingIntervalMs: 1000,
		Log:            LogConfig{Level: "info", Format: "text"},
	}

	yamlFile, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(yamlFile, conf); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", configPath, err)
	}

	var env envOverrides
	if err := envconfig.Init(&env); err != nil {
		return nil, fmt.Errorf("reading environment overrides: %w", err)
	}
	if env.ClientAddr != "" {
		conf.ClientAddr = env.ClientAddr
	}
	if env.BackendAddr != "" {
		conf.BackendAddr = env.BackendAddr
	}
	if env.PingIntervalMs != 0 {
		conf.PingIntervalMs = env.PingIntervalMs
	}
	if env.LogLevel != "" {
		conf.Log.Level = env.LogLevel
	}

	conf.Log.Level = strings.ToLower(conf.Log.Level)
	conf.Log.Format = strings.ToLower(conf.Log.Format)
	if conf.Log.Level == "" {
		conf.Log.Level = "info"
	}
	if conf.Log.Format == "" {
		conf.Log.Format = "text"
	}
	conf.DefaultMode = strings.ToLower(conf.DefaultMode)

	if conf.ClientAddr == "" {
		return nil, fmt.Errorf("config %s: clientAddr must not be empty", configPath)
	}
	if conf.BackendAddr == "" {
		return nil, fmt.Errorf("config %s: backendAddr must not be empty", configPath)
	}
	if conf.ClientAddr == conf.BackendAddr {
		return nil, fmt.Errorf("config %s: clientAddr and backendAddr must differ", configPath)
	}
	if _, ok := domain.ParseMode(conf.DefaultMode); !ok {
		return nil, fmt.Errorf("config %s: defaultMode must be static or dynamic", configPath)
	}
	if conf.PingIntervalMs < 200 {
		conf.PingIntervalMs = 200
	}
	if conf.MaxPerBackend < 0 {
		conf.MaxPerBackend = -1
	}

	return conf, nil
}
