// Package logging builds the component loggers used across the bridge.
//
// Every component gets a *log.Logger with its own prefix ([daemon],
// [sync], [reports], ...) writing through a shared sink: a
// size-rotated log file plus stderr. Errors must always land in the
// persistent log, so the file sink is never optional once configured.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Sink owns the shared log destination for all component loggers.
type Sink struct {
	out io.Writer
	ljk *lumberjack.Logger
}

// NewSink creates a sink that tees to a rotating file at path and to
// stderr. Rotation keeps a handful of 10MB files so the agent can run
// unattended for months.
func NewSink(path string) *Sink {
	ljk := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     60, // days
		Compress:   true,
	}
	return &Sink{
		out: io.MultiWriter(os.Stderr, ljk),
		ljk: ljk,
	}
}

// NewStderrSink creates a sink without a file, for one-shot commands
// and tests.
func NewStderrSink() *Sink {
	return &Sink{out: os.Stderr}
}

// Logger returns a component logger writing to the sink.
// The prefix is wrapped in brackets: Logger("sync") -> "[sync] ".
func (s *Sink) Logger(component string) *log.Logger {
	return log.New(s.out, "["+component+"] ", log.LstdFlags)
}

// Close flushes and closes the underlying log file, if any.
func (s *Sink) Close() error {
	if s.ljk == nil {
		return nil
	}
	return s.ljk.Close()
}
