package logger

import (
	"go.uber.org/zap"
)

// New builds the process logger for the given environment. Production gets
// sampled JSON output; local and dev get the readable development config
// so per-update debug lines stay usable.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}

	return zap.NewDevelopment()
}
