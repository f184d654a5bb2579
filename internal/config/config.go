// Package config provides configuration loading and validation for the
// gateway.
package config

import "time"

// Config is the root gateway configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Services  []ServiceConfig `yaml:"services"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	Write     WriteConfig     `yaml:"write"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address        string        `yaml:"address"`
	Port           int           `yaml:"port"`
	ReadTimeout    Duration `yaml:"readTimeout"`
	WriteTimeout   Duration `yaml:"writeTimeout"`
	IdleTimeout    Duration `yaml:"idleTimeout"`
	MaxHeaderBytes int           `yaml:"maxHeaderBytes"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AuthConfig holds token validation and issuance settings.
type AuthConfig struct {
	// SigningSecret is the shared HS256 secret.
	SigningSecret string `yaml:"signingSecret"`

	// TokenTTL is the lifetime of tokens issued by the token endpoint.
	TokenTTL Duration `yaml:"tokenTTL"`

	// PublicPaths bypass authentication entirely. Fixed configuration,
	// not request data.
	PublicPaths []string `yaml:"publicPaths"`
}

// UpstreamConfig holds outbound call settings.
type UpstreamConfig struct {
	// Timeout bounds every individual outbound call so one unresponsive
	// backend cannot stall an aggregate indefinitely.
	Timeout Duration `yaml:"timeout"`
}

// ServiceConfig describes one backend service entry.
type ServiceConfig struct {
	Name       string `yaml:"name"`
	BaseURL    string `yaml:"baseURL"`
	SearchPath string `yaml:"searchPath"`
	QueryParam string `yaml:"queryParam"`
}

// AggregateConfig holds fan-out aggregate settings.
type AggregateConfig struct {
	// QueryParam is the single parameter name the aggregate applies to
	// every service's search call.
	QueryParam string `yaml:"queryParam"`
}

// WriteConfig holds write routing settings.
type WriteConfig struct {
	// ProductPath is the product service's write endpoint path.
	ProductPath string `yaml:"productPath"`

	// OrderPath is the order service's write endpoint path used by the
	// fire-and-forget dispatcher.
	OrderPath string `yaml:"orderPath"`
}

// MetricsConfig holds metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns a Config with default values. Services have no
// default: they must come from configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    Duration(30 * time.Second),
			WriteTimeout:   Duration(30 * time.Second),
			IdleTimeout:    Duration(120 * time.Second),
			MaxHeaderBytes: 1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Auth: AuthConfig{
			TokenTTL:    Duration(2 * time.Hour),
			PublicPaths: []string{"/", "/token"},
		},
		Upstream: UpstreamConfig{
			Timeout: Duration(10 * time.Second),
		},
		Aggregate: AggregateConfig{
			QueryParam: "user_id",
		},
		Write: WriteConfig{
			ProductPath: "post_product",
			OrderPath:   "post_order",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// applyDefaults fills zero-valued fields from DefaultConfig.
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = def.Server.IdleTimeout
	}
	if c.Server.MaxHeaderBytes == 0 {
		c.Server.MaxHeaderBytes = def.Server.MaxHeaderBytes
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Log.Output == "" {
		c.Log.Output = def.Log.Output
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = def.Auth.TokenTTL
	}
	if len(c.Auth.PublicPaths) == 0 {
		c.Auth.PublicPaths = def.Auth.PublicPaths
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = def.Upstream.Timeout
	}
	if c.Aggregate.QueryParam == "" {
		c.Aggregate.QueryParam = def.Aggregate.QueryParam
	}
	if c.Write.ProductPath == "" {
		c.Write.ProductPath = def.Write.ProductPath
	}
	if c.Write.OrderPath == "" {
		c.Write.OrderPath = def.Write.OrderPath
	}
}
