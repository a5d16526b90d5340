// Package logger builds named logrus loggers sharing one output configuration.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/diewo77/go-spinning/internal/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.Mutex
	cfg     = config.LogConfig{Level: "info", Format: "text"}
	out     io.Writer = os.Stdout
	loggers           = make(map[string]*logrus.Logger)
)

// Init applies cfg to every logger created afterwards and reconfigures the
// ones that already exist.
func Init(c config.LogConfig) {
	mu.Lock()
	defer mu.Unlock()
	cfg = c
	out = writerFor(c)
	for _, l := range loggers {
		configure(l)
	}
}

// SetOutput redirects all loggers, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	for _, l := range loggers {
		l.SetOutput(w)
	}
}

// Get returns the logger registered under name, creating it on first use.
func Get(name string) *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[name]; ok {
		return l
	}
	l := logrus.New()
	configure(l)
	loggers[name] = l
	return l
}

// For returns an entry tagged with the component name.
func For(name string) *logrus.Entry {
	return Get(name).WithField("component", name)
}

func configure(l *logrus.Logger) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}
	l.SetOutput(out)
}

func writerFor(c config.LogConfig) io.Writer {
	if c.File == "" {
		return os.Stdout
	}
	file := &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
	return io.MultiWriter(os.Stdout, file)
}
