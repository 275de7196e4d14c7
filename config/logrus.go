package config

import (
	"context"
	"os"

	"github.com/mmdatafocus/polystore_seed/appctx"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger from settings.
func NewLogger(s *Settings) *logrus.Logger {
	logg := logrus.New()
	if s.LogFormat == "json" {
		logg.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logg.SetLevel(level)
	logg.SetOutput(os.Stdout)
	return logg
}

// WithContext tags logger with the run id and stage carried by ctx.
func WithContext(ctx context.Context, logger logrus.FieldLogger) logrus.FieldLogger {
	fields := logrus.Fields{}
	if runId := appctx.GetRunId(ctx); runId != "" {
		fields["run_id"] = runId
	}
	if stage := appctx.GetStage(ctx); stage != "" {
		fields["stage"] = stage
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.WithFields(fields)
}

func LogError(logger logrus.FieldLogger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
