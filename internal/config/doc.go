// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chathub.
//
// # Key Types
//
//   - Config: API connection, sampling and logging settings
//   - StorageConfig: Backend (file, sqlite, memory) and data directory
//   - ServerConfig: Listen address for the HTTP API
//   - UIConfig: Terminal rendering and export page size
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CHATHUB_*, OPENROUTER_API_KEY)
//   - ~/.chathub/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dir, _ := cfg.DataDir()
//	kv, err := storage.Open(cfg.Storage.Backend, dir)
package config
