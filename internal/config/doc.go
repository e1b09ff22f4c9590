// Package config loads, merges and validates configuration for the sync
// client and the reference server.
//
// Sources are merged with mergo in priority order, the first non-zero value
// winning:
//  1. Environment variables
//  2. Command-line flags
//  3. JSON config file
//  4. Built-in defaults
//
// Entry points are [GetClientConfig] and [GetServerConfig]; both build a
// role-specific view of [StructuredConfig] and validate it.
package config
