package sprig

import (
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// loggerBox wraps the FieldLogger so atomic.Pointer has a concrete type.
type loggerBox struct {
	l logrus.FieldLogger
}

var loggerPtr atomic.Pointer[loggerBox]

func init() {
	loggerPtr.Store(&loggerBox{l: newDefaultLogger()})
}

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.Level = logrus.InfoLevel
	return l
}

// SetLogger replaces the logger used by sprig. Pass nil to restore the
// default stderr logger at info level.
//
// Levels used by sprig:
//   - Debug: per-compile statistics, domain growth, atlas creation/destruction
//   - Warn: draw operations a driver cannot execute
//
// Example:
//
//	l := logrus.New()
//	l.SetLevel(logrus.DebugLevel)
//	sprig.SetLogger(l.WithField("component", "renderer"))
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = newDefaultLogger()
	}
	loggerPtr.Store(&loggerBox{l: l})
}

// Logger returns the logger currently used by sprig.
func Logger() logrus.FieldLogger {
	return loggerPtr.Load().l
}
