package application

import "log/slog"

// ResolveLogger guards against nil loggers so callers can leave Logger unset.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
