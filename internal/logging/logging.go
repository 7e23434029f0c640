// Package logging builds the zerolog loggers shared by the daemons and the
// SDK.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger tagged with the app name, writing to stderr
// so daemon output stays separate from command results on stdout.
func New(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Str("app", app).Logger()
}
