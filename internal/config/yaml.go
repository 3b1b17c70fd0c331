package config

import (
	"os"

	"github.com/cigdist/huoyuan-allocator/internal/allocerr"
	"gopkg.in/yaml.v3"
)

// LoadYAML overlays a YAML document onto Default(): decoding into an
// already-populated Config leaves any field the document omits at its
// default value, so every configuration field stays optional without a
// separate pointer-overlay type.
func LoadYAML(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, allocerr.NewConfigError("LoadYAML", "invalid YAML configuration: "+err.Error())
	}
	return cfg, nil
}

// LoadYAMLFile reads and decodes a configuration override file, the
// `cmd/allocate` CLI's optional -config flag.
func LoadYAMLFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, allocerr.NewConfigError("LoadYAMLFile", "failed to read configuration file: "+err.Error())
	}
	return LoadYAML(data)
}

// ToYAML renders a Config back to YAML, for an operator to inspect or
// save the effective configuration a solve ran with.
func ToYAML(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
