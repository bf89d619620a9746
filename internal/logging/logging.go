// Package logging builds the process logger.
//
// Production logs go to stdout as JSON so the host can collect them.
// Development and test runs log to a file under the configured directory,
// falling back to stdout when that directory cannot be created.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DoyleJ11/ready-check/internal/config"
)

const (
	logFile     = "readycheck.log"
	testLogFile = "readycheck.test.log"
)

func New(cfg config.Config) (*zap.Logger, error) {
	loc, err := time.LoadLocation(cfg.LogTimezone)
	if err != nil {
		loc = time.UTC
	}

	switch cfg.Env {
	case config.EnvProduction:
		return build(loc, "stdout")

	case config.EnvDevelopment, config.EnvTest:
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			logger, buildErr := build(loc, "stdout")
			if buildErr != nil {
				return nil, buildErr
			}
			logger.Warn("cannot create log directory, switching to console logging",
				zap.String("dir", cfg.LogDir), zap.Error(err))
			return logger, nil
		}
		name := logFile
		if cfg.Env == config.EnvTest {
			name = testLogFile
		}
		return build(loc, filepath.Join(cfg.LogDir, name))

	default:
		logger, err := build(loc, "stdout")
		if err != nil {
			return nil, err
		}
		logger.Warn("cannot determine runtime environment, switching to console logging",
			zap.String("env", cfg.Env))
		return logger, nil
	}
}

func build(loc *time.Location, output string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{output}
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(loc).Format(time.RFC3339))
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
