package arcstream

import "log/slog"

// config holds pipeline configuration.
type config struct {
	logger          *slog.Logger
	statConcurrency int64
	progress        ProgressFunc
	onEntry         func(*Header)
	onError         func(error)
}

// Option configures a Pipeline.
type Option func(*config)

// WithLogger sets the logger for warnings and entry flow. If not set,
// logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithStatConcurrency bounds concurrent stat calls in the resolution
// stage. Values < 1 use DefaultStatConcurrency.
func WithStatConcurrency(n int) Option {
	return func(cfg *config) {
		if n >= 1 {
			cfg.statConcurrency = int64(n)
		}
	}
}

// WithProgress sets a callback receiving a snapshot after each entry the
// encoder accepts.
func WithProgress(fn ProgressFunc) Option {
	return func(cfg *config) {
		cfg.progress = fn
	}
}

// WithOnEntry sets a callback invoked with the header of each entry the
// encoder accepts. The header must not be mutated.
func WithOnEntry(fn func(*Header)) Option {
	return func(cfg *config) {
		cfg.onEntry = fn
	}
}

// WithOnError sets a callback receiving per-entry and traversal errors.
// Per-entry errors do not stop the pipeline; the callback is the only
// place they surface besides the logger.
func WithOnError(fn func(error)) Option {
	return func(cfg *config) {
		cfg.onError = fn
	}
}
