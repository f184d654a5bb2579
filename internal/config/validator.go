package config

import (
	"fmt"
	"net/url"
	"strings"
)

// requiredServices must all appear in the services list.
var requiredServices = []string{"users", "products", "orders"}

// ValidateConfig checks the configuration for startup-fatal errors. A
// missing required service, a malformed URL, or an empty signing secret
// is a configuration error, not a request-time one.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", cfg.Server.Port)
	}

	if cfg.Auth.SigningSecret == "" {
		return fmt.Errorf("auth.signingSecret is required")
	}

	if cfg.Upstream.Timeout.Duration() <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}

	if err := validateServices(cfg.Services); err != nil {
		return err
	}

	for _, p := range cfg.Auth.PublicPaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("auth.publicPaths entry %q must start with /", p)
		}
	}

	return nil
}

// validateServices checks the service table.
func validateServices(services []ServiceConfig) error {
	seen := make(map[string]bool, len(services))

	for _, svc := range services {
		if svc.Name == "" {
			return fmt.Errorf("services entry has empty name")
		}
		if seen[svc.Name] {
			return fmt.Errorf("services entry %q is duplicated", svc.Name)
		}
		seen[svc.Name] = true

		u, err := url.Parse(svc.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("services entry %q has malformed baseURL %q", svc.Name, svc.BaseURL)
		}
		if svc.SearchPath == "" {
			return fmt.Errorf("services entry %q has empty searchPath", svc.Name)
		}
		if svc.QueryParam == "" {
			return fmt.Errorf("services entry %q has empty queryParam", svc.Name)
		}
	}

	for _, name := range requiredServices {
		if !seen[name] {
			return fmt.Errorf("required service %q is missing from services", name)
		}
	}

	return nil
}
