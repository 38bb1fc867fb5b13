package entity

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes a database connection.
type Config struct {
	Driver   string            `yaml:"driver"`
	Host     string            `yaml:"host,omitempty"`
	Port     string            `yaml:"port,omitempty"`
	Database string            `yaml:"database,omitempty"`
	User     string            `yaml:"user,omitempty"`
	Password string            `yaml:"password,omitempty"`
	Path     string            `yaml:"path,omitempty"` // sqlite file
	Params   map[string]string `yaml:"params,omitempty"`
}

// LoadConfig reads a YAML connection config from path. Values of the form
// ${NAME} are expanded from the environment.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Driver == "" {
		return nil, fmt.Errorf("failed to parse config: driver is required")
	}

	return &cfg, nil
}
