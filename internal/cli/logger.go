package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Log formats.
const (
	logFormatConsole = "console"
	logFormatJSON    = "json"
)

// newLogger builds the logger for a command. Console output is colored only
// when w is a terminal.
func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), &usageError{msg: fmt.Sprintf("invalid log level %q", level)}
	}

	switch format {
	case logFormatJSON:
	case logFormatConsole, "":
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(w),
		}
	default:
		return zerolog.Nop(), &usageError{msg: fmt.Sprintf("invalid log format %q (valid: console, json)", format)}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
