package ddbstore

import (
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

type badgerLogger struct {
	log zerolog.Logger
}

// NewLogger routes Badger's internal logging to l, tagged with component=badger.
func NewLogger(l zerolog.Logger) badger.Logger {
	return badgerLogger{log: l.With().Str("component", "badger").Logger()}
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.log.Error().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.log.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.log.Info().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.log.Debug().Msgf(strings.TrimSpace(format), args...)
}
