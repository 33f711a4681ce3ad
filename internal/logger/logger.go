package logger

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	User *UserLogger // Clean progress messages for users (stdout)
	Op   *OpLogger   // Detailed operational logs (stderr)
)

// init ensures loggers are never nil, even before Setup runs
func init() {
	Setup(false, false, false)
}

// Setup configures both loggers from CLI flags. Environment variables
// LOG_MODE (quiet|verbose|debug) and LOG_FORMAT (json|text) override flags.
func Setup(verbose bool, jsonLogs bool, quiet bool) {
	switch os.Getenv("LOG_MODE") {
	case "quiet":
		quiet = true
		verbose = false
	case "verbose", "debug":
		verbose = true
		quiet = false
	}

	switch os.Getenv("LOG_FORMAT") {
	case "json":
		jsonLogs = true
	case "text":
		jsonLogs = false
	}

	level := logrus.InfoLevel
	if verbose {
		level = logrus.DebugLevel
	}
	if quiet {
		level = logrus.ErrorLevel
	}

	userLog := logrus.New()
	userLog.SetOutput(os.Stdout)
	userLog.SetLevel(level)

	opLog := logrus.New()
	opLog.SetOutput(os.Stderr)
	opLog.SetLevel(level)

	if jsonLogs {
		userLog.SetFormatter(&logrus.JSONFormatter{})
		opLog.SetFormatter(&logrus.JSONFormatter{})
	} else {
		userLog.SetFormatter(&CLIFormatter{
			DisableTimestamp: true,
			DisableLevel:     true,
			DisableColors:    !isatty.IsTerminal(os.Stdout.Fd()),
		})
		opLog.SetFormatter(&CLIFormatter{
			DisableColors: !isatty.IsTerminal(os.Stderr.Fd()),
		})
	}

	User = &UserLogger{logger: userLog}
	Op = &OpLogger{logger: opLog}
}

// UserLogger prints progress lines a pipeline operator reads at a glance.
type UserLogger struct {
	logger *logrus.Logger
}

func (u *UserLogger) Info(msg string) {
	u.logger.Info(msg)
}

func (u *UserLogger) Infof(format string, args ...interface{}) {
	u.logger.Infof(format, args...)
}

func (u *UserLogger) Warnf(format string, args ...interface{}) {
	u.logger.WithField("status", "WARN").Warnf(format, args...)
}

func (u *UserLogger) Error(msg string) {
	u.logger.WithField("status", "FAILED").Error(msg)
}

func (u *UserLogger) Errorf(format string, args ...interface{}) {
	u.logger.WithField("status", "FAILED").Errorf(format, args...)
}

func (u *UserLogger) Starting(msg string) {
	u.logger.WithField("status", "STARTING").Info(msg)
}

func (u *UserLogger) Startingf(format string, args ...interface{}) {
	u.logger.WithField("status", "STARTING").Infof(format, args...)
}

func (u *UserLogger) Successf(format string, args ...interface{}) {
	u.logger.WithField("status", "OK").Infof(format, args...)
}

func (u *UserLogger) Skippedf(format string, args ...interface{}) {
	u.logger.WithField("status", "SKIPPED").Infof(format, args...)
}

// OpLogger carries structured diagnostic fields for troubleshooting runs.
type OpLogger struct {
	logger *logrus.Logger
}

func (o *OpLogger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return o.logger.WithFields(fields)
}

func (o *OpLogger) WithField(key string, value interface{}) *logrus.Entry {
	return o.logger.WithField(key, value)
}

func (o *OpLogger) Debug(msg string) {
	o.logger.Debug(msg)
}

func (o *OpLogger) Debugf(format string, args ...interface{}) {
	o.logger.Debugf(format, args...)
}

func (o *OpLogger) Warnf(format string, args ...interface{}) {
	o.logger.Warnf(format, args...)
}

func (o *OpLogger) Errorf(format string, args ...interface{}) {
	o.logger.Errorf(format, args...)
}
