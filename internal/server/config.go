package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML config for the serve command. Flags set
// explicitly on the command line win over file values.
type FileConfig struct {
	Addr     string `yaml:"addr"`
	DB       string `yaml:"db"`
	AuditLog string `yaml:"audit_log"`
}

// LoadFileConfig parses a serve config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var cfg FileConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
