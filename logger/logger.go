// Package logger builds the logrus logger shared by the CLI and passed down
// to hosts and command managers.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a text logger writing to out at info level, or debug level
// when debug is set.
func New(out io.Writer, debug bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// NewFile is New appending to the file at path. Close the returned file when done.
func NewFile(path string, debug bool) (*logrus.Logger, *os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(file, debug), file, nil
}
