// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Provider holds one OAuth2 party's credentials and endpoints.
type Provider struct {
	ClientID     string   `env:"CLIENT_ID,required"`
	ClientSecret string   `env:"CLIENT_SECRET,required"`
	RedirectURI  string   `env:"REDIRECT_URI,required"`
	AuthURL      string   `env:"AUTH_URL,required"`
	TokenURL     string   `env:"TOKEN_URL,required"`
	UserinfoURL  string   `env:"USERINFO_URL,required"`
	RevokeURL    string   `env:"REVOKE_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:" "`
}

// Config is the full service configuration.
type Config struct {
	Env           string `env:"ENV" envDefault:"DEV"`
	AppName       string `env:"APP_NAME" envDefault:"Accounts"`
	Port          string `env:"PORT" envDefault:"8080"`
	BaseURL       string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	SessionSecret string `env:"SESSION_SECRET,required"`

	Chat  Provider `envPrefix:"CHAT_"`
	Music Provider `envPrefix:"MUSIC_"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if len(cfg.Chat.Scopes) == 0 {
		cfg.Chat.Scopes = []string{"identify"}
	}
	if len(cfg.Music.Scopes) == 0 {
		cfg.Music.Scopes = []string{"user-read-private", "streaming"}
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// Dev reports whether the service runs in development mode; it controls the
// Secure attribute on the session cookie and route logging.
func (c Config) Dev() bool {
	return c.Env == "DEV"
}
