// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit settings loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific settings file when set.
	ConfigFilePath string
}

// Provider loads settings from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Loaded, error)
}

// Loaded pairs decoded settings with the file they came from.
type Loaded struct {
	Config *Config
	// Path is empty when no settings file was found.
	Path string
}

type fileProvider struct{}

// NewProvider creates a settings provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads settings from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Loaded, error) {
	cfg, path, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &Loaded{Config: cfg, Path: path}, nil
}
