// Package errors provides the deferred-cleanup helpers used around the
// agent's file and HTTP handling: a failed close or removal is worth a
// log line, never a panic, and must not mask the function's own error.
package errors

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// DeferClose closes an io.Closer with logging. Use in defer statements
// so a close failure on an emitted artifact or response body isn't
// silently suppressed.
func DeferClose(logger zerolog.Logger, closer io.Closer, msg string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}

// DeferRemove removes a consumed or temporary file with logging. A
// leftover rotation or helper-output file is a disk-space leak worth
// noticing, not a cycle failure.
func DeferRemove(logger zerolog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Str("path", path).Msg("failed to remove file")
	}
}
