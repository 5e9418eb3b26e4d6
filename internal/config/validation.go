package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidateConfig checks if the global configurations have valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	if err := ValidateBackendConfig(&cfg.Backend); err != nil {
		return fmt.Errorf("YAML global config: backend directive is invalid: %w", err)
	}
	if err := ValidateIngestionConfig(&cfg.Ingestion); err != nil {
		return fmt.Errorf("YAML global config: ingestion directive is invalid: %w", err)
	}
	return nil
}

// ValidateHTTPConfig checks if the HTTP configurations have valid values.
func ValidateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig == nil {
		return fmt.Errorf("HTTP configuration is nil")
	}

	if err := validateDuration(httpConfig.Timeout, "timeout", 10*time.Minute); err != nil {
		return err
	}

	if err := validateProxy(&httpConfig.Proxy); err != nil {
		return err
	}

	return nil
}

// ValidateBackendConfig checks that the backend URL is an absolute http(s) URL.
func ValidateBackendConfig(backend *Backend) error {
	if backend == nil {
		return fmt.Errorf("backend configuration is nil")
	}
	u, err := url.Parse(backend.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", backend.URL)
	}
	backend.URL = strings.TrimRight(backend.URL, "/")
	return nil
}

// ValidateIngestionConfig checks the walk and read tuning values.
func ValidateIngestionConfig(ingestion *Ingestion) error {
	if ingestion == nil {
		return fmt.Errorf("ingestion configuration is nil")
	}
	if ingestion.WalkConcurrency < 1 || ingestion.WalkConcurrency > 256 {
		return fmt.Errorf("walk_concurrency must be between 1 and 256: %d", ingestion.WalkConcurrency)
	}
	if ingestion.ReadConcurrency < 1 || ingestion.ReadConcurrency > 256 {
		return fmt.Errorf("read_concurrency must be between 1 and 256: %d", ingestion.ReadConcurrency)
	}
	if ingestion.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size cannot be negative: %d", ingestion.MaxFileSize)
	}
	for _, dir := range ingestion.SkipDirs {
		if strings.ContainsAny(dir, `/\`) {
			return fmt.Errorf("skip_dirs entry %q must be a bare directory name", dir)
		}
	}
	return nil
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %s: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%s duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

// validateProxy checks if the given Proxy settings are valid.
func validateProxy(proxy *Proxy) error {
	if proxy == nil {
		return fmt.Errorf("proxy configuration is nil")
	}

	// If host or port is not set, skip further validation
	if proxy.Host == "" || proxy.Port == 0 {
		return nil
	}

	if err := validateHost(&proxy.Host); err != nil {
		return err
	}

	return validatePort(proxy.Port)
}

// validateHost ensures the host includes a scheme, adding "http" if missing.
func validateHost(host *string) error {
	if host == nil {
		return fmt.Errorf("host string pointer is nil")
	}

	if !strings.Contains(*host, "://") {
		*host = "http://" + *host
	}
	*host = strings.TrimRight(*host, "/")

	if _, err := url.Parse(*host); err != nil {
		return fmt.Errorf("invalid host URL: %w", err)
	}

	return nil
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ProxyAddress returns the proxy URL, or an empty string when no proxy is configured.
func (p Proxy) ProxyAddress() string {
	if p.Host == "" || p.Port == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}
