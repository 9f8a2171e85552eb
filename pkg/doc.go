// Package pkg provides shared utilities for the usbmidi device stack.
//
// This package contains common functionality used by the HAL
// implementations and the MIDI class driver, including:
//
//   - Structured logging backed by [go.uber.org/zap]
//   - Sentinel error values for descriptor, packet, and HAL failures
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps a process-wide zap logger and tags every
// record with the originating component:
//
//	pkg.SetLogLevel(zapcore.DebugLevel)
//	pkg.LogInfo(pkg.ComponentDispatch, "handler registered", "kind", "note-on")
//
// The default level is warn, so the receive path stays silent unless
// debugging is requested.
//
// # Errors
//
// Errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrNotConfigured) {
//	    // HAL not initialized yet
//	}
package pkg
