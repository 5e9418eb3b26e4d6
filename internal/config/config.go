package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

const (
	// DefaultConfigFile is used when neither a flag nor SCANIO_AUDIT_CONFIG names a file.
	DefaultConfigFile = "config.yml"

	envConfigPath = "SCANIO_AUDIT_CONFIG"
	envBackendURL = "SCANIO_AUDIT_BACKEND_URL"
)

type Config struct {
	Logger     Logger     `yaml:"logger"`
	HTTPClient HTTPClient `yaml:"http_client"`
	Backend    Backend    `yaml:"backend"`
	Ingestion  Ingestion  `yaml:"ingestion"`
}

type Logger struct {
	Level           string `yaml:"level"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
	DisableTime     *bool  `yaml:"disable_time"`
	// Output is "stdout", "stderr" or a file path.
	Output string `yaml:"output"`
}

type HTTPClient struct {
	Debug           *bool           `yaml:"debug"`
	Timeout         time.Duration   `yaml:"timeout"`
	TLSClientConfig TLSClientConfig `yaml:"tls_client_config"`
	Proxy           Proxy           `yaml:"proxy"`
}

type TLSClientConfig struct {
	Verify *bool `yaml:"verify"`
}

type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Backend points at the audit API.
type Backend struct {
	URL string `yaml:"url"`
}

// Ingestion tunes the local tree walk and the materialization of file sets.
type Ingestion struct {
	WalkConcurrency int      `yaml:"walk_concurrency"`
	ReadConcurrency int      `yaml:"read_concurrency"`
	SkipDirs        []string `yaml:"skip_dirs"`
	MaxFileSize     int64    `yaml:"max_file_size"`
}

// ValidateConfigPath checks that path exists and is a regular file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes the YAML file at configPath into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig reads the configuration, falling back to defaults when the default
// config file is absent. An explicitly requested file must exist.
func LoadConfig(configPath string) (*Config, error) {
	explicit := configPath != ""
	if !explicit {
		if envPath := os.Getenv(envConfigPath); envPath != "" {
			configPath, explicit = envPath, true
		} else {
			configPath = DefaultConfigFile
		}
	}

	cfg := &Config{}
	if err := LoadYAML(configPath, cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config %q: %w", configPath, err)
		}
	}

	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

// applyDefaults fills every unset value.
func applyDefaults(cfg *Config) {
	def := Default()

	cfg.Logger.Level = SetThen(cfg.Logger.Level, def.Logger.Level)
	cfg.Logger.Output = SetThen(cfg.Logger.Output, def.Logger.Output)
	cfg.HTTPClient.Timeout = SetThen(cfg.HTTPClient.Timeout, def.HTTPClient.Timeout)
	cfg.Backend.URL = SetThen(cfg.Backend.URL, def.Backend.URL)
	cfg.Ingestion.WalkConcurrency = SetThen(cfg.Ingestion.WalkConcurrency, def.Ingestion.WalkConcurrency)
	cfg.Ingestion.ReadConcurrency = SetThen(cfg.Ingestion.ReadConcurrency, def.Ingestion.ReadConcurrency)
	cfg.Ingestion.MaxFileSize = SetThen(cfg.Ingestion.MaxFileSize, def.Ingestion.MaxFileSize)
	if cfg.Ingestion.SkipDirs == nil {
		cfg.Ingestion.SkipDirs = def.Ingestion.SkipDirs
	}
}

func applyEnv(cfg *Config) {
	if url := os.Getenv(envBackendURL); url != "" {
		cfg.Backend.URL = url
	}
}
