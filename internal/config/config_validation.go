// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "time"

// minRSAKeySize is the smallest master keypair modulus accepted.
const minRSAKeySize = 2048

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Workers.SyncInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	if cfg.Crypto.RSAKeySize < minRSAKeySize || cfg.Crypto.TargetHashTime < 10*time.Millisecond {
		return ErrInvalidCryptoConfigs
	}

	return nil
}

func (cfg *ServerConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Server.HTTPAddress == "" {
		return ErrInvalidServerConfigs
	}

	if cfg.App.TokenSignKey == "" || cfg.App.TokenIssuer == "" || cfg.App.TokenDuration <= 0 ||
		cfg.App.ChallengeTTL <= 0 || cfg.App.UpgradeDuration <= 0 {
		return ErrInvalidAppConfigs
	}

	return nil
}
