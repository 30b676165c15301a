// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gatebot-go/internal/instrument"
)

// App captures process-wide settings: naming, metrics endpoint, and logging.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
}

// Server configures the webhook/snapshot HTTP listener.
type Server struct {
	Addr string `yaml:"addr"`
}

// Feed selects and tunes the price source.
type Feed struct {
	Provider       string   `yaml:"provider"` // stub | poll | websocket
	Symbols        []string `yaml:"symbols"`
	BaseURL        string   `yaml:"base_url"`
	WSURL          string   `yaml:"ws_url"`
	PollIntervalMs int      `yaml:"poll_interval_ms"`
}

// Paper tunes the simulated state machine.
type Paper struct {
	WindowMs int64 `yaml:"window_ms"`
}

// Live tunes the gate in front of real orders. GateMinPnl is the threshold a
// cumulative PnL must strictly exceed before live trading is allowed.
type Live struct {
	GateMinPnl float64 `yaml:"gate_min_pnl"`
	LockMs     int64   `yaml:"lock_ms"`
}

// Execution configures the broker order sidecar.
type Execution struct {
	Enabled  bool   `yaml:"enabled"`
	BaseURL  string `yaml:"base_url"`
	Quantity int    `yaml:"quantity"`
}

// History controls where trade/PnL CSV files land.
type History struct {
	Dir string `yaml:"dir"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App         App                     `yaml:"app"`
	Server      Server                  `yaml:"server"`
	Feed        Feed                    `yaml:"feed"`
	Paper       Paper                   `yaml:"paper"`
	Live        Live                    `yaml:"live"`
	Execution   Execution               `yaml:"execution"`
	History     History                 `yaml:"history"`
	Instruments []instrument.Instrument `yaml:"instruments"`
}

// Default returns a runnable configuration with the built-in instrument set.
func Default() *Config {
	return &Config{
		App: App{
			Name:        "gatebot",
			Env:         "dev",
			MetricsAddr: ":9109",
			LogLevel:    "info",
			LogFile:     "logs/fsm.log",
		},
		Server: Server{Addr: ":3000"},
		Feed: Feed{
			Provider:       "poll",
			BaseURL:        "https://api.delta.exchange",
			PollIntervalMs: 1000,
		},
		Paper:     Paper{WindowMs: 60_000},
		Live:      Live{GateMinPnl: 0, LockMs: 60_000},
		Execution: Execution{Enabled: false, BaseURL: "http://127.0.0.1:3200", Quantity: 0},
		History:   History{Dir: "logs"},
	}
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Instruments returns the configured universe, falling back to the defaults.
func (c *Config) InstrumentList() []instrument.Instrument {
	if len(c.Instruments) > 0 {
		return c.Instruments
	}
	return instrument.Defaults()
}
