package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the structure of the config.yaml file.
// Seed galleries are easier to manage in a file than in env vars.
type YAMLConfig struct {
	Galleries []GalleryConfig `yaml:"galleries"`
}

// GalleryConfig defines a gallery link created at startup if missing.
type GalleryConfig struct {
	Title       string `yaml:"title"`
	Folder      string `yaml:"folder"`             // Folder ID or full folder URL
	ShortID     string `yaml:"short_id,omitempty"` // Derived from the title when empty
	PickingMode bool   `yaml:"picking_mode,omitempty"`
}

// LoadYAMLConfig loads the YAML configuration file.
// Path is determined by CONFIG_FILE env var, defaulting to "config.yaml".
// Returns nil without error if the config file doesn't exist.
func LoadYAMLConfig() (*YAMLConfig, error) {
	return LoadYAMLConfigFrom(getEnv("CONFIG_FILE", "config.yaml"))
}

// LoadYAMLConfigFrom loads the YAML configuration from an explicit path.
func LoadYAMLConfigFrom(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return nil, nil
		}
		return nil, err
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// GetGalleryByShortID finds a seeded gallery by its explicit short ID.
func (c *YAMLConfig) GetGalleryByShortID(shortID string) *GalleryConfig {
	if c == nil {
		return nil
	}
	for i := range c.Galleries {
		if c.Galleries[i].ShortID == shortID {
			return &c.Galleries[i]
		}
	}
	return nil
}
