// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container shared by the
// client and the server. Struct tags drive caarlos0/env lookups.
type StructuredConfig struct {
	// App holds application-level settings: development mode, logging and
	// session token parameters.
	App App `envPrefix:"APP_"`

	// Crypto holds password hashing and key generation settings.
	Crypto Crypto `envPrefix:"CRYPTO_"`

	// Storage holds the database settings of the local cache (client) or
	// the document store (server).
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds listen addresses and timeouts of the reference server.
	Server Server `envPrefix:"SERVER_"`

	// Adapter holds the remote API address used by the client.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds background job settings.
	Workers Workers `envPrefix:"WORKERS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Env: CONFIG, flags: -c / -config.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration.
type App struct {
	// Development enables debug logging and exposes internal crypto worker
	// status codes in error messages.
	// Env: APP_DEVELOPMENT
	Development bool `env:"DEVELOPMENT"`

	// LogDir is the directory of the client log file.
	// Env: APP_LOG_DIR
	LogDir string `env:"LOG_DIR"`

	// TokenSignKey signs the session JWT issued by the server.
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the "iss" claim of issued session tokens.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration is the lifetime of a session token.
	// Env: APP_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`

	// ChallengeTTL is how long an issued challenge may be answered.
	// Env: APP_CHALLENGE_TTL
	ChallengeTTL time.Duration `env:"CHALLENGE_TTL"`

	// UpgradeDuration is how long an elevated session stays elevated.
	// Env: APP_UPGRADE_DURATION
	UpgradeDuration time.Duration `env:"UPGRADE_DURATION"`
}

// Crypto holds password hashing and key generation settings.
type Crypto struct {
	// TargetHashTime is the wall-clock time calibration aims for.
	// Env: CRYPTO_TARGET_HASH_TIME
	TargetHashTime time.Duration `env:"TARGET_HASH_TIME"`

	// RSAKeySize is the modulus size of newly generated master keypairs.
	// Env: CRYPTO_RSA_KEY_SIZE
	RSAKeySize int `env:"RSA_KEY_SIZE"`
}

// Storage groups storage backend configuration.
type Storage struct {
	DB DB `envPrefix:"DB_"`
}

// DB holds database connection settings. A DSN starting with "postgres://"
// selects the pgx driver, anything else is treated as a SQLite file path.
type DB struct {
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Server holds network settings of the reference server.
type Server struct {
	// HTTPAddress is the HTTP listen address in "host:port" form.
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// GRPCAddress is the gRPC health service listen address.
	// Env: SERVER_GRPC_ADDRESS
	GRPCAddress string `env:"GRPC_ADDRESS"`

	// RequestTimeout bounds a single inbound request.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Adapter holds the remote API settings used by the client.
type Adapter struct {
	// HTTPAddress is the API base address, with or without scheme.
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds a single outbound request.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds background job settings.
type Workers struct {
	// SyncInterval is how often resources with failed batches are refreshed.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`
}

// defaults returns the lowest priority configuration layer.
func defaults() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			TokenIssuer:     "go-vault-sync",
			TokenDuration:   24 * time.Hour,
			ChallengeTTL:    time.Minute,
			UpgradeDuration: 5 * time.Minute,
		},
		Crypto: Crypto{
			TargetHashTime: 500 * time.Millisecond,
			RSAKeySize:     4096,
		},
		Adapter: Adapter{
			RequestTimeout: 30 * time.Second,
		},
		Server: Server{
			RequestTimeout: 30 * time.Second,
		},
		Workers: Workers{
			SyncInterval: time.Minute,
		},
	}
}

// GetStructuredConfig loads and merges configuration from env, flags, the
// optional JSON file and defaults.
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags(args).
		withJSON().
		withDefaults().
		build()
}
