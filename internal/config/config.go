package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ViewerConfig is the contents of viewer.yaml.
type ViewerConfig struct {
	Version int `yaml:"version"`
	Viewer  struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"viewer"`
	Network struct {
		UIPort int `yaml:"ui_port"`
	} `yaml:"network"`
	Miner struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"miner"`
	Layout struct {
		DotPath string        `yaml:"dot_path"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"layout"`
	Interaction struct {
		Debounce         time.Duration `yaml:"debounce"`
		GraphWidth       float64       `yaml:"graph_width"`
		GraphHeight      float64       `yaml:"graph_height"`
		AnnotationWidth  float64       `yaml:"annotation_width"`
		AnnotationHeight float64       `yaml:"annotation_height"`
	} `yaml:"interaction"`
	MQTT struct {
		Enabled bool   `yaml:"enabled"`
		Prefix  string `yaml:"prefix"`
	} `yaml:"mqtt"`
	Postgres struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"postgres"`
}

// Default returns a configuration with every default applied.
func Default() *ViewerConfig {
	cfg := &ViewerConfig{Version: 1}
	cfg.applyDefaults()
	return cfg
}

func (c *ViewerConfig) applyDefaults() {
	if c.Viewer.Name == "" {
		c.Viewer.Name = "semzoom"
	}
	if c.Network.UIPort == 0 {
		c.Network.UIPort = 8080
	}
	if c.Miner.URL == "" {
		c.Miner.URL = "http://127.0.0.1:5000"
	}
	if c.Miner.Timeout == 0 {
		c.Miner.Timeout = 60 * time.Second
	}
	if c.Layout.DotPath == "" {
		c.Layout.DotPath = "dot"
	}
	if c.Layout.Timeout == 0 {
		c.Layout.Timeout = 10 * time.Second
	}
	if c.Interaction.Debounce == 0 {
		c.Interaction.Debounce = 400 * time.Millisecond
	}
	if c.Interaction.GraphWidth == 0 {
		c.Interaction.GraphWidth = 900
	}
	if c.Interaction.GraphHeight == 0 {
		c.Interaction.GraphHeight = 600
	}
	if c.Interaction.AnnotationWidth == 0 {
		c.Interaction.AnnotationWidth = 500
	}
	if c.Interaction.AnnotationHeight == 0 {
		c.Interaction.AnnotationHeight = 600
	}
	if c.MQTT.Prefix == "" {
		c.MQTT.Prefix = "semzoom"
	}
}

// UIPort returns the HTTP listen port.
func (c *ViewerConfig) UIPort() int {
	return c.Network.UIPort
}

// LoadViewerConfig reads and validates viewer.yaml. MINER_URL overrides the
// configured mining service.
func LoadViewerConfig(path string) (*ViewerConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ViewerConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported viewer.yaml version: %d", cfg.Version)
	}
	if v := os.Getenv("MINER_URL"); v != "" {
		cfg.Miner.URL = v
	}
	cfg.applyDefaults()

	if cfg.Interaction.Debounce < 0 || cfg.Miner.Timeout < 0 || cfg.Layout.Timeout < 0 {
		return nil, fmt.Errorf("viewer.yaml: durations must not be negative")
	}
	return &cfg, nil
}
