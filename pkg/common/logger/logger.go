package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

// Options selects how Init configures the global logger.
type Options struct {
	Level   string
	Format  string // "json" or "text"
	Service string
	Output  io.Writer
}

// Init replaces the global logger. An unknown level falls back to info and an
// unknown format to JSON. A non-empty Service is stamped on every entry.
func Init(opts Options) {
	log := logrus.New()
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	log.SetOutput(opts.Output)

	switch strings.ToLower(opts.Format) {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	default:
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if opts.Service != "" {
		log.AddHook(serviceHook(opts.Service))
	}
	Log = log
}

type serviceHook string

func (h serviceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h serviceHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["service"]; !ok {
		entry.Data["service"] = string(h)
	}
	return nil
}

func WithField(key string, value interface{}) *logrus.Entry {
	return Log.WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}
