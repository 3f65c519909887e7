// Package logger holds the process-wide zap sugared logger shared by
// the server, the migration tool, and the middleware.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Init builds the shared logger once for the given environment:
// JSON output under "production", console output everywhere else.
// Later calls are no-ops.
func Init(env string) {
	once.Do(func() {
		var base *zap.Logger
		var err error

		if env == "production" {
			base, err = zap.NewProduction()
		} else {
			base, err = zap.NewDevelopment()
		}

		if err != nil {
			// A logger must always exist, even a silent one.
			base = zap.NewNop()
		}

		sugar = base.Sugar()
	})
}

// Get returns the shared sugared logger, initializing a development
// one when Init was never called (tests mostly).
func Get() *zap.SugaredLogger {
	if sugar == nil {
		Init("development")
	}
	return sugar
}

// Sync flushes buffered entries; deferred from main before exit.
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}
