// Package internal contains helpers that are private to nuggetauth: session
// token generation, transport peer address extraction and log fingerprints.
//
// # Sub-packages
//
//   - config: process configuration loaded through viper
//   - logging: zap logger construction
//   - postgres: pgx-backed user and profile repositories and migrations
//   - profile: profile domain validation
//   - rate: Redis-backed login throttle
//   - server: gin HTTP surface
//   - telemetry: OpenTelemetry meter provider setup
package internal
