package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// Init инициализирует структурированный логгер.
// format: "json" для production, "text" для локальной разработки.
func Init(level, format string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if format == "text" {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// Component возвращает запись логгера с полем component.
// До Init пишет в io.Discard, чтобы тесты не требовали инициализации.
func Component(name string) *logrus.Entry {
	if Log == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		return silent.WithField("component", name)
	}
	return Log.WithField("component", name)
}
