package log

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// string representation that directly corresponds to zerolog.Level
type LogLevel string

const (
	DEBUG    LogLevel = "debug"
	INFO     LogLevel = "info"
	WARN     LogLevel = "warn"
	ERROR    LogLevel = "error"
	DISABLED LogLevel = "disabled"
	TRACE    LogLevel = "trace"
)

var Levels = []LogLevel{DEBUG, INFO, WARN, ERROR, DISABLED, TRACE}

// LogFile is the optional second log destination opened by InitWithLogLevel.
var LogFile *os.File

func (ll LogLevel) String() string {
	return string(ll)
}

func (ll *LogLevel) Set(v string) error {
	if !slices.Contains(Levels, LogLevel(v)) {
		return fmt.Errorf("must be one of %v", Levels)
	}
	*ll = LogLevel(v)
	return nil
}

func (ll LogLevel) Type() string {
	return "LogLevel"
}

// InitWithLogLevel points the global zerolog logger at stderr and, when
// logPath is set, at an append-only log file as well.
func InitWithLogLevel(logLevel LogLevel, logPath string) error {
	level, err := ToZerologLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to convert log level: %w", err)
	}

	writers := []io.Writer{&zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{Out: os.Stderr}},
		Level:  level,
	}}

	if logPath != "" {
		LogFile, err = os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: LogFile},
			Level:  level,
		})
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Caller().
		Logger()
	return nil
}

// Close releases the log file, if any.
func Close() error {
	if LogFile == nil {
		return nil
	}
	err := LogFile.Close()
	LogFile = nil
	return err
}

func ToZerologLevel(ll LogLevel) (zerolog.Level, error) {
	switch ll {
	case DISABLED:
		return zerolog.Disabled, nil
	case TRACE:
		return zerolog.TraceLevel, nil
	case DEBUG, INFO, WARN, ERROR:
		return zerolog.ParseLevel(string(ll))
	}
	levels := make([]string, 0, len(Levels))
	for _, l := range Levels {
		levels = append(levels, string(l))
	}
	return zerolog.NoLevel, fmt.Errorf("invalid log level %q (options: %s)", ll, strings.Join(levels, ", "))
}
