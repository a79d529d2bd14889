package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ControllerConfig defines a saved controller configuration
type ControllerConfig struct {
	PortName    string `json:"portName"`
	AutoConnect bool   `json:"autoConnect"`
}

// SerialConfig defines the optional serial knob box input
type SerialConfig struct {
	Device string `json:"device,omitempty"`
	Baud   int    `json:"baud,omitempty"`
}

// CCBinding maps one MIDI CC number to a control id ("module/slot")
type CCBinding struct {
	CC      uint8  `json:"cc"`
	Control string `json:"control"`
}

// LatchConfig holds the default soft-takeover thresholds, in control
// units. Release is the guaranteed band; Pickup widens it when larger.
type LatchConfig struct {
	Pickup  float64 `json:"pickup"`
	Release float64 `json:"release"`
}

// RenderConfig stores frame loop preferences
type RenderConfig struct {
	TargetFPS    int `json:"targetFps"`
	BurstFrames  int `json:"burstFrames"`
	SwitchFrames int `json:"switchFrames"` // full frames on a mode switch
}

// Config is the main configuration structure
type Config struct {
	Controllers  []ControllerConfig `json:"controllers,omitempty"`
	Serial       SerialConfig       `json:"serial,omitempty"`
	CCMap        []CCBinding        `json:"ccMap,omitempty"`
	Latch        LatchConfig        `json:"latch"`
	Render       RenderConfig       `json:"render"`
	WorkerTickMs int                `json:"workerTickMs,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Controllers: []ControllerConfig{
			{
				PortName:    "nanoKONTROL",
				AutoConnect: true,
			},
		},
		Latch: LatchConfig{
			Pickup:  5,
			Release: 3,
		},
		Render: RenderConfig{
			TargetFPS:    60,
			BurstFrames:  2,
			SwitchFrames: 3,
		},
		WorkerTickMs: 10,
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-surface"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.fillDefaults()

	return &cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) fillDefaults() {
	if c.Render.TargetFPS <= 0 {
		c.Render.TargetFPS = 60
	}
	if c.Render.BurstFrames <= 0 {
		c.Render.BurstFrames = 2
	}
	if c.Render.SwitchFrames <= 0 {
		c.Render.SwitchFrames = 3
	}
	if c.WorkerTickMs <= 0 {
		c.WorkerTickMs = 10
	}
	if c.Latch.Release <= 0 {
		c.Latch.Release = 3
	}
}

// AutoConnectControllers returns controllers with autoConnect enabled
func (c *Config) AutoConnectControllers() []ControllerConfig {
	var result []ControllerConfig
	for _, ctrl := range c.Controllers {
		if ctrl.AutoConnect {
			result = append(result, ctrl)
		}
	}
	return result
}
