// Package logger provides the leveled logger used by the huffz commands.
package logger

import (
	"io"
	"log"
)

// Logger is a leveled printf-style logger.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

type stdLogger struct {
	l     *log.Logger
	debug bool
}

// New returns a logger writing to w. Debug messages are dropped unless debug is set.
func New(w io.Writer, debug bool) Logger {
	return &stdLogger{l: log.New(w, "", log.LstdFlags), debug: debug}
}

func (s *stdLogger) Debugf(format string, v ...any) {
	if s.debug {
		s.l.Printf("[DEBUG] "+format, v...)
	}
}
func (s *stdLogger) Infof(format string, v ...any)  { s.l.Printf("[INFO] "+format, v...) }
func (s *stdLogger) Errorf(format string, v ...any) { s.l.Printf("[ERROR] "+format, v...) }
