package application

import "log/slog"

// ResolveLogger falls back to slog.Default so workers and the service can
// log before wiring provides a logger.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
