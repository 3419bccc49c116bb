// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for phrasecue.
package config

import "gopkg.in/yaml.v3"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "gateway.http").
	Modules map[string]yaml.Node `yaml:"modules"`

	// Telemetry holds optional OpenTelemetry trace export settings.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
}

// TelemetryConfig controls OTLP trace export. Disabled when absent.
type TelemetryConfig struct {
	// Enabled turns trace export on.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/HTTP collector endpoint (host:port).
	Endpoint string `yaml:"endpoint,omitempty"`

	// ServiceName overrides the reported service.name resource attribute.
	ServiceName string `yaml:"service_name,omitempty"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure,omitempty"`
}
