// Package apperr defines the sentinel error kinds shared across fieldforge,
// expressed as errors.New sentinels so callers can use errors.Is instead of
// string codes.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrPhaseViolation is raised when a Profile's state machine is misused:
	// analyze after pre_generate, or generate before pre_generate.
	ErrPhaseViolation = errors.New("phase violation")

	// ErrEmptyTable is raised by a Frequency Table's sample when total() is
	// zero. Profile.generate catches this internally and falls back to a
	// class-default literal; it is exported because other callers may want
	// to distinguish it.
	ErrEmptyTable = errors.New("frequency table is empty")

	// ErrDuplicateField is raised by Parser.AnalyzeStream when the header
	// row repeats a field name.
	ErrDuplicateField = errors.New("duplicate field name")

	// ErrUnknownField is raised by Parser.GenerateByField for a name that
	// was never registered.
	ErrUnknownField = errors.New("unknown field")

	// ErrSinkError wraps any error returned by a tabular sink during
	// Parser.GenerateTable.
	ErrSinkError = errors.New("sink error")

	// ErrArchiveVersion is raised when an archive's version field is not
	// one this build knows how to read.
	ErrArchiveVersion = errors.New("unsupported archive version")

	// ErrArchiveMalformed is raised when archive bytes are not valid JSON,
	// or are missing a required key.
	ErrArchiveMalformed = errors.New("malformed archive")
)

// Wrap attaches context to a sentinel error while keeping it errors.Is
// comparable, e.g. Wrap(ErrUnknownField, "field %q", name).
func Wrap(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}
