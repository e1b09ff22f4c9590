// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func writeJSONFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

// ── builder ───────────────────────────────────────────────────────────────────

func TestBuild_EmptyBuilder(t *testing.T) {
	cfg, err := newConfigBuilder().build()
	require.NoError(t, err)
	assert.Equal(t, &StructuredConfig{}, cfg)
}

func TestBuild_PropagatesBuilderError(t *testing.T) {
	b := newConfigBuilder()
	b.err = assert.AnError

	cfg, err := b.build()
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestBuild_FirstLayerWins(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{App: App{TokenIssuer: "env-issuer"}},
		&StructuredConfig{App: App{TokenIssuer: "json-issuer", TokenSignKey: "json-key"}},
	)

	cfg, err := b.build()
	require.NoError(t, err)
	assert.Equal(t, "env-issuer", cfg.App.TokenIssuer)
	assert.Equal(t, "json-key", cfg.App.TokenSignKey)
}

func TestBuild_DefaultsFillGaps(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{Crypto: Crypto{RSAKeySize: 2048}})

	cfg, err := b.withDefaults().build()
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.Crypto.RSAKeySize)
	assert.Equal(t, 500*time.Millisecond, cfg.Crypto.TargetHashTime)
	assert.Equal(t, time.Minute, cfg.Workers.SyncInterval)
}

func TestWithJSON_MissingFileSetsError(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: filepath.Join(t.TempDir(), "nope.json")})

	_, err := b.withJSON().build()
	require.Error(t, err)
}

// ── env ───────────────────────────────────────────────────────────────────────

func TestParseEnv_AllFields(t *testing.T) {
	setEnvVars(t, map[string]string{
		"CONFIG":                  "/path/to/config.json",
		"APP_DEVELOPMENT":         "true",
		"APP_TOKEN_SIGN_KEY":      "jwt_secret",
		"APP_TOKEN_ISSUER":        "issuer",
		"APP_TOKEN_DURATION":      "1h",
		"APP_CHALLENGE_TTL":       "30s",
		"CRYPTO_TARGET_HASH_TIME": "750ms",
		"CRYPTO_RSA_KEY_SIZE":     "3072",
		"SERVER_ADDRESS":          "localhost:8080",
		"SERVER_GRPC_ADDRESS":     "localhost:9090",
		"ADAPTER_ADDRESS":         "http://localhost:8080",
		"ADAPTER_REQUEST_TIMEOUT": "5s",
		"STORAGE_DB_DATABASE_URI": "cache.db",
		"WORKERS_SYNC_INTERVAL":   "2m",
	})

	cfg := &StructuredConfig{}
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, "/path/to/config.json", cfg.JSONFilePath)
	assert.True(t, cfg.App.Development)
	assert.Equal(t, "jwt_secret", cfg.App.TokenSignKey)
	assert.Equal(t, time.Hour, cfg.App.TokenDuration)
	assert.Equal(t, 30*time.Second, cfg.App.ChallengeTTL)
	assert.Equal(t, 750*time.Millisecond, cfg.Crypto.TargetHashTime)
	assert.Equal(t, 3072, cfg.Crypto.RSAKeySize)
	assert.Equal(t, "localhost:8080", cfg.Server.HTTPAddress)
	assert.Equal(t, "localhost:9090", cfg.Server.GRPCAddress)
	assert.Equal(t, "http://localhost:8080", cfg.Adapter.HTTPAddress)
	assert.Equal(t, 5*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, "cache.db", cfg.Storage.DB.DSN)
	assert.Equal(t, 2*time.Minute, cfg.Workers.SyncInterval)
}

func TestParseEnv_InvalidDuration(t *testing.T) {
	setEnvVars(t, map[string]string{"APP_TOKEN_DURATION": "soon"})

	err := parseEnv(&StructuredConfig{})
	require.Error(t, err)
}

// ── flags ─────────────────────────────────────────────────────────────────────

func TestNetAddress_Set(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    NetAddress
		wantErr bool
	}{
		{name: "localhost", in: "localhost:8080", want: NetAddress{Host: "localhost", Port: 8080}},
		{name: "ip", in: "127.0.0.1:9090", want: NetAddress{Host: "127.0.0.1", Port: 9090}},
		{name: "any host", in: ":8080", want: NetAddress{Port: 8080}},
		{name: "no port", in: "localhost", wantErr: true},
		{name: "bad port", in: "localhost:http", wantErr: true},
		{name: "port out of range", in: "localhost:70000", wantErr: true},
		{name: "hostname", in: "example.com:80", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a NetAddress
			err := a.Set(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, a)
		})
	}
}

func TestNetAddress_String(t *testing.T) {
	assert.Equal(t, "", (&NetAddress{}).String())
	assert.Equal(t, "localhost:8080", (&NetAddress{Host: "localhost", Port: 8080}).String())
}

func TestParseFlags(t *testing.T) {
	cfg, err := ParseFlags([]string{
		"-a", "localhost:8080",
		"-api", "http://localhost:8080",
		"-d", "cache.db",
		"-dev",
		"-request-timeout", "3s",
		"-rsa-key-size", "2048",
		"-config", "/etc/vault.json",
	})
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.Server.HTTPAddress)
	assert.Equal(t, "http://localhost:8080", cfg.Adapter.HTTPAddress)
	assert.Equal(t, "cache.db", cfg.Storage.DB.DSN)
	assert.True(t, cfg.App.Development)
	assert.Equal(t, 3*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 3*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, 2048, cfg.Crypto.RSAKeySize)
	assert.Equal(t, "/etc/vault.json", cfg.JSONFilePath)
}

func TestParseFlags_Unknown(t *testing.T) {
	_, err := ParseFlags([]string{"-unknown"})
	require.Error(t, err)
}

// ── json ──────────────────────────────────────────────────────────────────────

func TestParseJSON_Success(t *testing.T) {
	p := writeJSONFile(t, `{
		"app": {"token_sign_key": "k", "token_duration": "1h", "challenge_ttl": 60000000000},
		"crypto": {"target_hash_time": "400ms", "rsa_key_size": 2048},
		"storage": {"db": {"dsn": "server.db"}},
		"server": {"http_address": "localhost:8080", "request_timeout": "30s"},
		"adapter": {"http_address": "localhost:8080"},
		"workers": {"sync_interval": "10s"}
	}`)

	cfg, err := parseJSON(p)
	require.NoError(t, err)

	assert.Equal(t, "k", cfg.App.TokenSignKey)
	assert.Equal(t, time.Hour, cfg.App.TokenDuration)
	assert.Equal(t, time.Minute, cfg.App.ChallengeTTL)
	assert.Equal(t, 400*time.Millisecond, cfg.Crypto.TargetHashTime)
	assert.Equal(t, "server.db", cfg.Storage.DB.DSN)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.Workers.SyncInterval)
}

func TestParseJSON_InvalidBody(t *testing.T) {
	_, err := parseJSON(writeJSONFile(t, `{"app": {"token_duration": true}}`))
	require.Error(t, err)
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := Duration(90 * time.Second).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(b))
}

// ── views and validation ──────────────────────────────────────────────────────

func validStructured() *StructuredConfig {
	cfg := defaults()
	cfg.App.TokenSignKey = "secret"
	cfg.Storage.DB.DSN = "vault.db"
	cfg.Server.HTTPAddress = "localhost:8080"
	cfg.Adapter.HTTPAddress = "http://localhost:8080"
	return cfg
}

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ClientConfig)
		wantErr error
	}{
		{name: "valid", mutate: func(c *ClientConfig) {}},
		{name: "no dsn", mutate: func(c *ClientConfig) { c.Storage.DB.DSN = "" }, wantErr: ErrInvalidStorageConfigs},
		{name: "no api", mutate: func(c *ClientConfig) { c.Adapter.HTTPAddress = "" }, wantErr: ErrInvalidAdapterConfigs},
		{name: "no interval", mutate: func(c *ClientConfig) { c.Workers.SyncInterval = 0 }, wantErr: ErrInvalidWorkerConfigs},
		{name: "weak rsa", mutate: func(c *ClientConfig) { c.Crypto.RSAKeySize = 1024 }, wantErr: ErrInvalidCryptoConfigs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClientConfig(validStructured())
			tt.mutate(c)
			err := c.validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestServerConfig_Validate(t *testing.T) {
	s := NewServerConfig(validStructured())
	require.NoError(t, s.validate())

	s.App.TokenSignKey = ""
	assert.ErrorIs(t, s.validate(), ErrInvalidAppConfigs)

	s = NewServerConfig(validStructured())
	s.Server.HTTPAddress = ""
	assert.ErrorIs(t, s.validate(), ErrInvalidServerConfigs)
}

func TestGetClientConfig_FromEnvAndFlags(t *testing.T) {
	setEnvVars(t, map[string]string{
		"STORAGE_DB_DATABASE_URI": "env.db",
	})

	cfg, err := GetClientConfig([]string{"-api", "http://localhost:9999", "-d", "flag.db"})
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Storage.DB.DSN)
	assert.Equal(t, "http://localhost:9999", cfg.Adapter.HTTPAddress)
	assert.Equal(t, 4096, cfg.Crypto.RSAKeySize)
}
