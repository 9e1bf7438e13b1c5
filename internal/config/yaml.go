package config

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits YAML input to prevent memory exhaustion.
const MaxInputSize = 1 << 20

var (
	ErrEmptyData     = errors.New("empty config data")
	ErrInputTooLarge = errors.New("config input exceeds maximum size")
)

// unmarshalStrict decodes YAML into v, rejecting unknown fields.
func unmarshalStrict(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmptyData
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	return yaml.UnmarshalWithOptions(data, v, yaml.Strict())
}

// Marshal renders cfg as YAML, used by "md2doc config" to print the
// effective configuration.
func Marshal(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return out, nil
}
