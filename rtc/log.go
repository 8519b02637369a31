package rtc

import (
	"strings"
	"sync"

	modular "github.com/edwinhayes/logrus-modular"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	rootOnce sync.Once
	root     modular.RootLogger
)

// DefaultLogger returns the process-wide root logger, wrapping
// logrus.StandardLogger.
func DefaultLogger() modular.RootLogger {
	rootOnce.Do(func() {
		root = NewRootLogger(logrus.StandardLogger())
	})
	return root
}

// NewRootLogger wraps l in a module hierarchy. The root starts at l's
// current level; from then on module levels decide what is written and l
// itself passes everything through.
func NewRootLogger(l *logrus.Logger) modular.RootLogger {
	r := modular.NewRootLogger(l)
	l.SetLevel(logrus.TraceLevel)
	return r
}

// NewLogger returns the module logger of the default root named module,
// creating it at the root's level if needed.
func NewLogger(module string) modular.ModuleLogger {
	return ChildLogger(DefaultLogger(), module)
}

// ChildLogger returns the child module of parent, created at parent's
// current level if needed.
func ChildLogger(parent modular.ModuleLogger, module string) modular.ModuleLogger {
	return parent.GetOrCreateChild(module, parent.GetLevel())
}

// ConfigureLogger applies a level name to r and all its modules and a
// format ("text" or "json") to the underlying logger.
func ConfigureLogger(r modular.RootLogger, level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	l := r.GetLogger()
	switch strings.ToLower(format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return errors.Errorf("unknown log format %q", format)
	}
	r.SetLevel(lvl)
	return nil
}
