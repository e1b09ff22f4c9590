package config

import (
	"fmt"
	"time"
)

// ServerApp holds server session and challenge settings.
type ServerApp struct {
	Development     bool
	TokenSignKey    string
	TokenIssuer     string
	TokenDuration   time.Duration
	ChallengeTTL    time.Duration
	UpgradeDuration time.Duration
}

// ServerConfig is the reference server view of [StructuredConfig].
type ServerConfig struct {
	App     ServerApp
	Server  Server
	Storage Storage
}

// GetServerConfig builds and validates the server configuration.
func GetServerConfig(args []string) (*ServerConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	serverCfg := NewServerConfig(cfg)
	return serverCfg, serverCfg.validate()
}

// NewServerConfig maps the fields relevant to the server runtime.
func NewServerConfig(cfg *StructuredConfig) *ServerConfig {
	return &ServerConfig{
		App: ServerApp{
			Development:     cfg.App.Development,
			TokenSignKey:    cfg.App.TokenSignKey,
			TokenIssuer:     cfg.App.TokenIssuer,
			TokenDuration:   cfg.App.TokenDuration,
			ChallengeTTL:    cfg.App.ChallengeTTL,
			UpgradeDuration: cfg.App.UpgradeDuration,
		},
		Server:  cfg.Server,
		Storage: cfg.Storage,
	}
}
