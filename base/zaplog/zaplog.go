// Package zaplog holds the process-wide logger used by code that is not
// handed one explicitly.
package zaplog

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// Logger returns the current logger, a no-op logger until SetLogger is
// called.
func Logger() *zap.Logger { return logger.Load() }

// SetLogger replaces the process-wide logger. A nil l restores the no-op
// logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}
