// Package logger owns the process-wide zap logger. Development and testing
// log to the console; production logs JSON to a rotated file.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger *zap.Logger
	once         sync.Once
)

// Config defines logger configuration
type Config struct {
	Environment string // "development", "testing", "production"
	Level       string // "debug", "info", "warn", "error"
	// File logging configuration (only used in production)
	Filename   string // Log file path
	MaxSize    int    // Maximum size in megabytes
	MaxBackups int    // Maximum number of old log files to retain
	MaxAge     int    // Maximum number of days to retain old log files
	Compress   bool   // Compress rotated files with gzip
}

// DefaultConfig returns default logger configuration based on environment
func DefaultConfig(env string) *Config {
	switch env {
	case "production", "prod":
		return &Config{
			Environment: "production",
			Level:       "info",
			Filename:    "logs/lumi.log",
			MaxSize:     100,
			MaxBackups:  5,
			MaxAge:      30,
			Compress:    true,
		}
	case "testing", "test":
		return &Config{Environment: "testing", Level: "debug"}
	default:
		return &Config{Environment: "development", Level: "debug"}
	}
}

// Init initializes the global logger with the given configuration.
// Must be called before using the logger; later calls are no-ops.
func Init(cfg *Config) error {
	var err error
	once.Do(func() {
		err = initLogger(cfg)
	})
	return err
}

// InitFromEnv initializes the global logger from APP_ENV and LOG_LEVEL.
func InitFromEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	cfg := DefaultConfig(env)
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
	return Init(cfg)
}

func initLogger(cfg *Config) error {
	level := parseLogLevel(cfg.Level)

	var logger *zap.Logger
	var err error
	if cfg.Environment == "production" {
		logger = newProductionLogger(cfg, level)
	} else {
		logger, err = newDevelopmentLogger(level)
	}
	if err != nil {
		return err
	}

	globalLogger = logger
	return nil
}

// newProductionLogger creates a JSON logger with lumberjack file rotation
func newProductionLogger(cfg *Config, level zapcore.Level) *zap.Logger {
	writer := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(writer), level)

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(
			zap.String("environment", cfg.Environment),
			zap.String("service", "lumi"),
		),
	)
}

// newDevelopmentLogger creates a colored console logger
func newDevelopmentLogger(level zapcore.Level) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	config.Level = zap.NewAtomicLevelAt(level)
	return config.Build()
}

func parseLogLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Get returns the global logger instance, or a no-op logger when Init was
// never called.
func Get() *zap.Logger {
	if globalLogger != nil {
		return globalLogger
	}
	return zap.NewNop()
}

// Named returns a named logger from the global logger
func Named(name string) *zap.Logger {
	return Get().Named(name)
}

// Sync flushes any buffered log entries
func Sync() error {
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}
