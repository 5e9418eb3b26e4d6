package config

import (
	"crypto/tls"
	"reflect"
	"time"
)

// DefaultSkipDirs are directory names never descended into during a local walk.
var DefaultSkipDirs = []string{
	".git", ".venv", "venv", "env", "node_modules", "__pycache__",
	".idea", ".vscode", "lib", "site-packages", "build", "dist",
}

// BaseHTTPConfig holds common HTTP client configuration settings.
type BaseHTTPConfig struct {
	Timeout         time.Duration // Timeout for requests
	TLSClientConfig *tls.Config   // TLS configuration
	Proxy           string        // Proxy address
}

// RestyHTTPClientConfig holds additional configuration settings for the Resty HTTP client.
type RestyHTTPClientConfig struct {
	BaseHTTPConfig
	Debug bool // Flag to enable Resty debug mode
}

// DefaultHTTPConfig returns a base configuration for HTTP clients with default values.
// Fix generation is backed by a language model, so the timeout is generous.
func DefaultHTTPConfig() BaseHTTPConfig {
	return BaseHTTPConfig{
		Timeout: 120 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: false,
		},
		Proxy: "",
	}
}

// DefaultRestyConfig returns a default configuration for the Resty HTTP client, extending the base HTTP configuration.
func DefaultRestyConfig() RestyHTTPClientConfig {
	return RestyHTTPClientConfig{
		BaseHTTPConfig: DefaultHTTPConfig(),
		Debug:          false,
	}
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Logger: Logger{
			Level:  "INFO",
			Output: "stderr",
		},
		HTTPClient: HTTPClient{
			Timeout: DefaultHTTPConfig().Timeout,
		},
		Backend: Backend{
			URL: "http://localhost:8000/api",
		},
		Ingestion: Ingestion{
			WalkConcurrency: 8,
			ReadConcurrency: 8,
			SkipDirs:        append([]string(nil), DefaultSkipDirs...),
			MaxFileSize:     2 << 20,
		},
	}
}

// BoolValue dereferences an optional boolean, returning defaultValue when it is unset.
func BoolValue(value *bool, defaultValue bool) bool {
	if value == nil {
		return defaultValue
	}
	return *value
}

// SetThen provides a utility to select the first value if set, otherwise defaults.
func SetThen[T any](value T, defaultValue T) T {
	if reflect.ValueOf(value).IsZero() {
		return defaultValue
	}
	return value
}
