package cli

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/filedepot/filedepot/internal/logbuf"
	"github.com/filedepot/filedepot/pkg/filestore"
)

var logger zerolog.Logger

// LogBuffer retains every log event for the admin console.
var LogBuffer = logbuf.New()

// SetupLogger wires the root logger: human-readable output on stderr plus
// the in-memory buffer the console replays from.
func SetupLogger() {
	zerolog.TimeFieldFormat = filestore.TimeFormat

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: filestore.TimeFormat,
	}

	level := zerolog.InfoLevel
	if !Flags.VerboseOutput {
		level = zerolog.WarnLevel
	}

	logger = zerolog.New(zerolog.MultiLevelWriter(console, LogBuffer)).
		Level(level).
		With().
		Timestamp().
		Logger()
}
