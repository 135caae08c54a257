// Package logging provides structured logging for wicket.
//
// It wraps log/slog with:
//   - Level-based filtering (debug, info, warn, error)
//   - JSON or text output format
//   - Default fields (service name, version)
//
// The server never logs through a process-wide singleton: embedders inject a
// *Logger at construction, and Default() covers the case where they don't.
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	connLog := log.With("conn_id", id)
//	connLog.Info("connection accepted")
package logging
