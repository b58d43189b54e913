package logs

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
)

const modulePath = "github.com/cbusboot/cbusboot-go/"

// Logger writes trace lines prefixed with the calling file, line and function.
//
// A nil *Logger is valid and discards everything, so the hardware packages can
// take one unconditionally and stay silent unless the caller wires a writer.
type Logger struct {
	Writer io.Writer
	mutex  sync.Mutex
}

func New(w io.Writer) *Logger {
	return &Logger{Writer: w}
}

func findInternalPrefix() string {
	pc := make([]uintptr, 15)
	n := runtime.Callers(1, pc)
	frames := runtime.CallersFrames(pc[:n])
	frame, _ := frames.Next()
	return strings.TrimSuffix(frame.File, "internal/logs/logger.go")
}

var internalPrefix = findInternalPrefix()

// Log writes s with the location of the direct caller.
func (l *Logger) Log(s string) {
	l.logIn(s, 3)
}

// Logf is Log with fmt.Sprintf formatting.
func (l *Logger) Logf(format string, args ...interface{}) {
	l.logIn(fmt.Sprintf(format, args...), 3)
}

// Write makes Logger usable as an io.Writer for libraries that log lines.
func (l *Logger) Write(p []byte) (int, error) {
	l.logIn(string(p), 3)
	return len(p), nil
}

func (l *Logger) logIn(s string, callers int) {
	if l == nil || l.Writer == nil {
		return
	}
	s = strings.TrimSuffix(s, "\n")
	pc := make([]uintptr, 15)
	// callers counts runtime.Callers, logIn and the exported method
	n := runtime.Callers(callers, pc)
	frames := runtime.CallersFrames(pc[:n])
	frame, _ := frames.Next()
	file := strings.TrimPrefix(frame.File, internalPrefix)
	function := strings.TrimPrefix(frame.Function, modulePath)
	l.println(fmt.Sprintf("[%s %d %s] %s", file, frame.Line, function, s))
}

func (l *Logger) println(s string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	_, err := l.Writer.Write([]byte(s + "\n"))
	if err != nil {
		// give up, just print on stdout
		fmt.Println(err)
	}
}
