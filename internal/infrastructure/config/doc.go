// Package config provides 12-factor configuration management for genctl.
//
// Configuration is loaded from environment variables with sensible defaults.
// An optional YAML or TOML file can be layered on top; values present in the
// file override the environment.
//
// Configuration Sections:
//   - Backend: generation backend URL, WebSocket URL, timeout, client RPS, user id
//   - Channel: progress channel handshake/idle timeouts and read limit
//   - History: number of history records kept in the cache
//   - Server: local control API host and port
//   - Logging: Log level and output format
//   - RateLimit: local control API rate limiting
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Backend at %s\n", cfg.Backend.URL)
//
// Environment Variables:
//   - BACKEND_URL, BACKEND_WS_URL, BACKEND_TIMEOUT, BACKEND_RPS, BACKEND_USER_ID
//   - WS_HANDSHAKE_TIMEOUT, WS_IDLE_TIMEOUT, WS_READ_LIMIT
//   - HISTORY_LIMIT, PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
