package source

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"
)

// Config is the demo CLI's list of named example streams to dial,
// decoded from YAML and validated with struct tags.
type Config struct {
	Streams []StreamConfig `json:"streams" validate:"required,min=1,dive"`
}

// StreamConfig names one example endpoint and which adapter kind the
// demo should dial it as.
type StreamConfig struct {
	Name string `json:"name" validate:"required"`
	Kind string `json:"kind" validate:"required,oneof=pull-stream event-stream socket async-sequence"`
	URL  string `json:"url" validate:"required,url"`
}

// LoadConfig decodes and validates a Config from YAML bytes.
func LoadConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("source: decode config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("source: validate config: %w", err)
	}
	return &cfg, nil
}
