package core

import (
	"fmt"
	"strings"
	"time"
)

type PollingConfig struct {
	Interval time.Duration `koanf:"interval" mapstructure:"interval"`
	Timeout  time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type AuthConfig struct {
	ServerURL string `koanf:"server_url" mapstructure:"server_url"`
	Realm     string `koanf:"realm" mapstructure:"realm"`
	ClientID  string `koanf:"client_id" mapstructure:"client_id"`
	Username  string `koanf:"username" mapstructure:"username"`
	Password  string `koanf:"password" mapstructure:"password"`
}

// Enabled reports whether the runtime should authenticate. Leaving the
// auth server empty selects unauthenticated mode.
func (c AuthConfig) Enabled() bool {
	return strings.TrimSpace(c.ServerURL) != ""
}

type Config struct {
	ServiceName     string        `koanf:"service_name" mapstructure:"service_name"`
	BaseURL         string        `koanf:"base_url" mapstructure:"base_url"`
	ClientSignature string        `koanf:"client_signature" mapstructure:"client_signature"`
	RequestTimeout  time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
	TokenLeadWindow time.Duration `koanf:"token_lead_window" mapstructure:"token_lead_window"`
	Polling         PollingConfig `koanf:"polling" mapstructure:"polling"`
	Auth            AuthConfig    `koanf:"auth" mapstructure:"auth"`
}

const (
	DefaultRequestTimeout  = 60 * time.Second
	DefaultTokenLeadWindow = 15 * time.Second
	DefaultPollInterval    = time.Second
	DefaultPollTimeout     = 15 * time.Minute
)

func DefaultConfig() Config {
	return Config{
		ServiceName:     "quantum-client",
		RequestTimeout:  DefaultRequestTimeout,
		TokenLeadWindow: DefaultTokenLeadWindow,
		Polling: PollingConfig{
			Interval: DefaultPollInterval,
			Timeout:  DefaultPollTimeout,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("core: request_timeout must not be negative")
	}
	if c.Polling.Interval < 0 || c.Polling.Timeout < 0 {
		return fmt.Errorf("core: polling interval and timeout must not be negative")
	}
	if c.Auth.Enabled() {
		if strings.TrimSpace(c.Auth.Username) == "" || strings.TrimSpace(c.Auth.Password) == "" {
			return fmt.Errorf("core: auth username and password are required when an auth server is configured")
		}
	}
	return nil
}
