// Package config defines the configuration surface for wicket and the
// wicketd host daemon.
//
// Configuration is loaded from YAML and can be overridden by environment
// variables with the WICKET_ prefix (for example WICKET_SERVER_HOST,
// WICKET_LOG_LEVEL).
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// An embedder that does not use YAML at all can construct the structs
// directly; the zero value of every section is usable after Normalise().
package config
