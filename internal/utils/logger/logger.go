// Package logger provides a global logger for the application
package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

func initLogger(override string) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Caller().Logger()

	environment := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if environment == "" {
		environment = "prod"
	}

	var logLevel zerolog.Level
	switch environment {
	case "dev", "test":
		logLevel = zerolog.TraceLevel
	case "prod":
		logLevel = zerolog.InfoLevel
	default:
		logLevel = zerolog.InfoLevel
		log.Warn().Str("environment", environment).Msg("Unknown environment - defaulting to production log level (info and above)")
	}

	if override == "" {
		override = os.Getenv("CFO_LOG_LEVEL")
	}
	if override != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(override))
		if err != nil {
			log.Warn().Str("level", override).Err(err).Msg("Invalid log level - keeping environment level")
		} else {
			logLevel = lvl
		}
	}

	zerolog.SetGlobalLevel(logLevel)
	log.Debug().Str("environment", environment).Str("level", logLevel.String()).Msg("Logger initialized")
}

// Init initializes the logger from ENVIRONMENT and CFO_LOG_LEVEL.
// It sets up the global logger to use zerolog with console output.
// Example usage:
//
//	logger.Init() <- inside whichever main() function in your entrypoint
//
// Then, `CFO_LOG_LEVEL=debug go run ./cmd/cfo financials`
func Init() {
	initLogger("")
}

// InitWithLevel is Init with an explicit level (e.g. from a --log-level flag)
// taking precedence over the environment.
func InitWithLevel(level string) {
	initLogger(level)
}

// Leveled adapts the global zerolog logger to the LeveledLogger interface
// expected by go-retryablehttp.
func Leveled() *LeveledLogger {
	return &LeveledLogger{logger: log.Logger}
}

// LeveledLogger forwards key/value pairs as zerolog fields.
type LeveledLogger struct {
	logger zerolog.Logger
}

func (l *LeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	fields(l.logger.Error(), keysAndValues).Msg(msg)
}

func (l *LeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	fields(l.logger.Info(), keysAndValues).Msg(msg)
}

func (l *LeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	fields(l.logger.Debug(), keysAndValues).Msg(msg)
}

func (l *LeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	fields(l.logger.Warn(), keysAndValues).Msg(msg)
}

func fields(ev *zerolog.Event, keysAndValues []interface{}) *zerolog.Event {
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 >= len(keysAndValues) {
			ev = ev.Str(key, "(missing)")
			break
		}
		ev = ev.Interface(key, keysAndValues[i+1])
	}
	return ev
}

// Resty adapts the global zerolog logger to resty's Logger interface.
func Resty() *RestyLogger {
	return &RestyLogger{logger: log.Logger.With().Str("component", "resty").Logger()}
}

type RestyLogger struct {
	logger zerolog.Logger
}

func (l *RestyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error().Msgf(format, v...)
}

func (l *RestyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Msgf(format, v...)
}

func (l *RestyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}
