//go:build !(rp2040 || rp2350)

package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"motionlink-go/errcode"
	"motionlink-go/types"
)

// LoadFile overlays the YAML file at path on base. Keys absent from the
// file keep base's values. The result is validated.
func LoadFile(path string, base types.MotionConfig) (types.MotionConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, &errcode.E{C: errcode.InvalidParams, Op: "config load", Err: err}
	}
	return Parse(raw, base)
}

// Parse is LoadFile for bytes already read.
func Parse(raw []byte, base types.MotionConfig) (types.MotionConfig, error) {
	cfg := base
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return base, &errcode.E{C: errcode.InvalidParams, Op: "config parse", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}
