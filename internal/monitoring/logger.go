package monitoring

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-isatty"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf logs only at LevelDebug. It is a no-op until SetLevel enables it.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

// Level is a log verbosity threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel accepts debug, info, warn or error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

var level atomic.Int32

func init() { level.Store(int32(LevelInfo)) }

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
	} else {
		Logf = f
	}
	SetLevel(CurrentLevel())
}

// SetLevel sets the verbosity threshold and rebinds Debugf.
func SetLevel(l Level) {
	level.Store(int32(l))
	if l <= LevelDebug {
		logf := Logf
		Debugf = func(format string, v ...interface{}) { logf(tag("DEBUG", 36)+format, v...) }
		return
	}
	Debugf = func(string, ...interface{}) {}
}

// CurrentLevel returns the active verbosity threshold.
func CurrentLevel() Level { return Level(level.Load()) }

// Infof logs at LevelInfo.
func Infof(format string, v ...interface{}) {
	if CurrentLevel() <= LevelInfo {
		Logf(format, v...)
	}
}

// Warnf logs at LevelWarn.
func Warnf(format string, v ...interface{}) {
	if CurrentLevel() <= LevelWarn {
		Logf(tag("WARN", 33)+format, v...)
	}
}

// Errorf logs at LevelError.
func Errorf(format string, v ...interface{}) {
	if CurrentLevel() <= LevelError {
		Logf(tag("ERROR", 31)+format, v...)
	}
}

// colour is true when stderr is a terminal.
var colour = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

func tag(name string, code int) string {
	if colour {
		return fmt.Sprintf("\x1b[%dm[%s]\x1b[0m ", code, name)
	}
	return "[" + name + "] "
}
