// Package pkg provides shared utilities for the otgmode daemon.
//
// This package contains common functionality used by the arbiter, the HAL
// backends and the daemon, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors for port arbitration failures
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component attribute:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentArbiter, "state changed", "from", "disconnected", "to", "detect_wait")
//
// [Configure] applies the textual level and format used in configuration
// files.
//
// # Errors
//
// Common errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrInvalidMode) {
//	    // Reject the request
//	}
package pkg
