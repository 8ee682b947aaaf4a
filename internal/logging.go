package internal

import (
	"io"
	"log"
	"os"
)

// InitLogging routes the standard logger to stdout with microsecond timestamps.
// A non-empty prefix is prepended to every line, e.g. "[planner] ".
func InitLogging(prefix string) {
	InitLoggingTo(os.Stdout, prefix)
}

// InitLoggingTo is InitLogging with an explicit writer, used by tests and the server
// when output is redirected.
func InitLoggingTo(w io.Writer, prefix string) {
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetPrefix(prefix)
}
