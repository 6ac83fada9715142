// Package logging configures the structured logger shared by the managers,
// adapters and tasks.
package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels used with logr's V().
const (
	DEFAULT = 2
	VERBOSE = 3
	DEBUG   = 4
	TRACE   = 5
)

// New creates a zap-backed logger that emits records up to the given
// verbosity. Development mode switches to the human readable console encoder.
func New(verbosity int, development bool) logr.Logger {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-1 * verbosity))
	cfg.DisableStacktrace = !development

	zl, err := cfg.Build(zap.AddCaller())
	if err != nil {
		panic("logging: zap initialization failed: " + err.Error())
	}

	return zapr.NewLogger(zl)
}

// NewTestLogger creates a development logger that prints everything.
func NewTestLogger() logr.Logger {
	return New(TRACE, true)
}

// Discard returns a logger that drops all records.
func Discard() logr.Logger {
	return logr.Discard()
}
