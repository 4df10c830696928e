// Package logtrace configures structured logging for the MAAS client.
// It integrates with zerolog; all diagnostic output goes to stderr so that
// command output on stdout stays machine-parseable.
package logtrace

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the global logger with Unix timestamp format.
// The default level is warn; pass verbose to enable debug output.
func InitLogger(verbose bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}
