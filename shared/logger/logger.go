// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"innkeeper/config"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// defaultLevel applies when LOG_LEVEL is not a zerolog level name.
const defaultLevel = zerolog.TraceLevel

func console() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
}

// InitLogger points the global logger at a human-readable stdout writer.
func InitLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(defaultLevel)

	log.Logger = log.Output(console())
	log.Trace().Msg("Zerolog initialized.")
}

// SetFileOutput tees the global logger into a size-rotated JSON file when
// SERVER_LOG_FILE_PATH is set. The returned closer flushes the file; it is nil
// when no file sink was configured.
func SetFileOutput(cfg *config.Config) io.Closer {
	sink := cfg.Server.LogFile
	if sink.Path == "" {
		return nil
	}

	file := &lumberjack.Logger{
		Filename:   sink.Path,
		MaxSize:    sink.MaxSizeMB,
		MaxBackups: sink.MaxBackups,
		MaxAge:     sink.MaxAgeDays,
		Compress:   sink.Compress,
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(console(), file))
	log.Info().Str("path", sink.Path).Msg("Log file output enabled.")

	return file
}

// ErrorWithStack logs err with the stack of the caller attached.
func ErrorWithStack(err error) {
	log.Error().Msgf("%+v", errors.WithStack(err))
}

func SetLogLevel(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = defaultLevel
		log.Trace().Str("loglevel", level.String()).Msg("Unknown log level, using default.")
	}

	zerolog.SetGlobalLevel(level)
	log.Trace().Str("loglevel", level.String()).Msg("Log level set.")
}
