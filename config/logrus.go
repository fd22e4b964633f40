package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	logg *logrus.Logger
)

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetLevel(logrus.InfoLevel)
	logg.SetOutput(os.Stdout)
}

// ConfigureLogger applies LOG_LEVEL and PRPO_LOG_FILE to the shared logger.
// An unknown level keeps the current one; a log file that cannot be opened keeps stdout.
func ConfigureLogger(level string, logFile string) {
	if lvl, err := logrus.ParseLevel(strings.TrimSpace(level)); err == nil {
		logg.SetLevel(lvl)
	}
	if strings.TrimSpace(logFile) == "" {
		return
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err == nil {
		logg.Out = file
	} else {
		logg.WithFields(logrus.Fields{"field": "log_file", "path": logFile}).Warn("failed to open log file, using stdout")
	}
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	if data != nil {
		logger.WithFields(logrus.Fields{
			"module":   moduleName,
			"funcName": funcName,
			"context":  context,
			"data":     data,
		}).Error(err.Error())
	} else {
		logger.WithFields(logrus.Fields{
			"module":   moduleName,
			"funcName": funcName,
			"context":  context,
		}).Error(err.Error())
	}
}
