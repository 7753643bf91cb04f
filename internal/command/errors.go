package command

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNameConflict is returned when a command name is already owned by
	// another descriptor file or claimed as another command's alias.
	ErrNameConflict = errors.New("command name conflict")
	// ErrAliasConflict is returned when an alias collides with another
	// command's name or alias.
	ErrAliasConflict = errors.New("command alias conflict")
	// ErrInvalidDescriptor is returned for descriptor files that cannot be
	// turned into a command.
	ErrInvalidDescriptor = errors.New("invalid command descriptor")
)

// LoadError reports a failed load, reload or unload of a descriptor file.
type LoadError struct {
	Op   string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidDescriptor, format, args...)
}
