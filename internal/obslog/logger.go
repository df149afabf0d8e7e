// Package obslog is the tiling engine's small logging shim, generalized
// from the teacher CLI's global enable/disable + timestamp toggles
// (tools.LogOutput) into something each package instance can own instead of
// sharing process-wide globals.
package obslog

import (
	"log"
	"time"

	"github.com/golang/glog"
)

// Logger wraps the standard logger with the same enable/timestamp toggles
// the teacher CLI exposed globally, but scoped to one Tiler instance so
// concurrent conversions in the same process don't fight over global state.
type Logger struct {
	enabled        bool
	printTimestamp bool
	prefix         string
}

func New(prefix string) *Logger {
	return &Logger{enabled: true, printTimestamp: true, prefix: prefix}
}

func (l *Logger) Disable()          { l.enabled = false }
func (l *Logger) Enable()           { l.enabled = true }
func (l *Logger) DisableTimestamp() { l.printTimestamp = false }
func (l *Logger) EnableTimestamp()  { l.printTimestamp = true }

func (l *Logger) Printf(format string, args ...interface{}) {
	if !l.enabled {
		return
	}
	if l.printTimestamp {
		log.Printf("[%s] [%s] "+format, append([]interface{}{time.Now().Format("2006-01-02 15:04:05.000"), l.prefix}, args...)...)
		return
	}
	log.Printf("["+l.prefix+"] "+format, args...)
}

func (l *Logger) Println(args ...interface{}) {
	if !l.enabled {
		return
	}
	all := append([]interface{}{"[" + l.prefix + "]"}, args...)
	log.Println(all...)
}

// Fatal logs an unrecoverable configuration/startup error and aborts the
// process, matching the teacher's use of glog.Fatal in tools/io.go for the
// same class of error.
func Fatal(args ...interface{}) {
	glog.Fatal(args...)
}
