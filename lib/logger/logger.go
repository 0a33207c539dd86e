// Package logger provides leveled logging to stdout and to a log file named
// for the day Setup ran, in the style used throughout the rest of this
// repository. The file is not rotated once opened.
package logger

import (
	"fmt"
	"log"
	"os"
	"path"
	"runtime"
	"strconv"
	"time"
)

// Level of a log record
type Level int

const (
	// DEBUG level
	DEBUG Level = iota
	// INFO level
	INFO
	// WARNING level
	WARNING
	// ERROR level
	ERROR
	// FATAL level, terminates the process after logging
	FATAL
)

const (
	flags              = log.LstdFlags
	defaultCallerDepth = 2
	bufferSize         = 1 << 13
)

var levelNames = map[Level]string{
	DEBUG:   "DEBUG",
	INFO:    "INFO",
	WARNING: "WARN",
	ERROR:   "ERROR",
	FATAL:   "FATAL",
}

// Settings configures where and how logs are written
type Settings struct {
	Path       string `yaml:"path"`
	Name       string `yaml:"name"`
	Ext        string `yaml:"ext"`
	TimeFormat string `yaml:"time-format"`
}

var (
	logger    *log.Logger
	mkdirLock = make(chan struct{}, 1)
)

// Setup opens (or creates) today's log file under settings.Path and starts
// writing to both stdout and that file. It is safe to call once at process
// startup; if it is never called, logging stays on stdout only.
func Setup(settings *Settings) {
	mkdirLock <- struct{}{}
	defer func() { <-mkdirLock }()

	if err := os.MkdirAll(settings.Path, 0755); err != nil {
		fallbackError("logger: unable to make log directory: " + err.Error())
		return
	}
	timeFormat := settings.TimeFormat
	if timeFormat == "" {
		timeFormat = "2006-01-02"
	}
	fileName := fmt.Sprintf("%s-%s.%s", settings.Name, time.Now().Format(timeFormat), settings.Ext)
	logFile, err := mustOpen(fileName, settings.Path)
	if err != nil {
		fallbackError("logger: unable to open log file: " + err.Error())
		return
	}
	mw := &multiWriter{writers: []writerCloser{os.Stdout, logFile}}
	logger = log.New(mw, "", flags)
}

func fallbackError(msg string) {
	log.New(os.Stdout, "", flags).Println(msg)
}

func mustOpen(fileName, dir string) (*os.File, error) {
	return os.OpenFile(path.Join(dir, fileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

type writerCloser interface {
	Write(p []byte) (n int, err error)
}

type multiWriter struct {
	writers []writerCloser
}

func (m *multiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		n, err = w.Write(p)
		if err != nil {
			return
		}
	}
	return len(p), nil
}

func callerInfo(depth int) string {
	_, file, line, ok := runtime.Caller(depth)
	if !ok {
		return "???:0"
	}
	return path.Base(file) + ":" + strconv.Itoa(line)
}

func logf(level Level, msg string) {
	if logger == nil {
		logger = log.New(os.Stdout, "", flags)
	}
	logger.Printf("[%s][%s] %s", levelNames[level], callerInfo(defaultCallerDepth+1), msg)
}

// Debug logs at DEBUG level
func Debug(v ...interface{}) {
	logf(DEBUG, fmt.Sprint(v...))
}

// Debugf logs at DEBUG level with a format string
func Debugf(format string, v ...interface{}) {
	logf(DEBUG, fmt.Sprintf(format, v...))
}

// Info logs at INFO level
func Info(v ...interface{}) {
	logf(INFO, fmt.Sprint(v...))
}

// Infof logs at INFO level with a format string
func Infof(format string, v ...interface{}) {
	logf(INFO, fmt.Sprintf(format, v...))
}

// Warn logs at WARNING level
func Warn(v ...interface{}) {
	logf(WARNING, fmt.Sprint(v...))
}

// Error logs at ERROR level
func Error(v ...interface{}) {
	logf(ERROR, fmt.Sprint(v...))
}

// Errorf logs at ERROR level with a format string
func Errorf(format string, v ...interface{}) {
	logf(ERROR, fmt.Sprintf(format, v...))
}

// Fatal logs at FATAL level and terminates the process
func Fatal(v ...interface{}) {
	logf(FATAL, fmt.Sprint(v...))
	os.Exit(1)
}
