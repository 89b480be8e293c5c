package logging

import (
	"io"
	"os"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"
)

const DefaultTimeLayout = "2006-01-02 15:04:05"

// Options configures the process logger
type Options struct {
	Level      string
	TimeLayout string
	Colored    bool
	JSON       bool
	Output     io.Writer
}

// New builds a zerolog logger. JSON output writes one object per line;
// otherwise a console writer is used, colored when requested.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), err
		}
		level = parsed
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	layout := opts.TimeLayout
	if layout == "" {
		layout = DefaultTimeLayout
	}

	if !opts.JSON {
		console := zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    !opts.Colored,
			TimeFormat: layout,
		}
		if opts.Colored {
			console.FormatLevel = formatLevel
		}
		out = console
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// Component returns a child logger tagged with the component name
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func formatLevel(i interface{}) string {
	level, _ := i.(string)
	switch level {
	case zerolog.LevelTraceValue, zerolog.LevelDebugValue:
		return term.Cyanf("[%s]", levelTag(level))
	case zerolog.LevelInfoValue:
		return term.Greenf("[%s]", levelTag(level))
	case zerolog.LevelWarnValue:
		return term.Yellowf("[%s]", levelTag(level))
	case zerolog.LevelErrorValue, zerolog.LevelFatalValue, zerolog.LevelPanicValue:
		return term.Redf("[%s]", levelTag(level))
	default:
		return term.Whitef("[%s]", levelTag(level))
	}
}

func levelTag(level string) string {
	switch level {
	case zerolog.LevelTraceValue:
		return "TRC"
	case zerolog.LevelDebugValue:
		return "DBG"
	case zerolog.LevelInfoValue:
		return "INF"
	case zerolog.LevelWarnValue:
		return "WAR"
	case zerolog.LevelErrorValue:
		return "ERR"
	case zerolog.LevelFatalValue:
		return "FTL"
	case zerolog.LevelPanicValue:
		return "PAN"
	default:
		return "UNK"
	}
}
