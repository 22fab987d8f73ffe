package cli

import (
	"errors"

	"github.com/anvil-platform/vrequire/internal/resolver"
)

// Exit codes.
const (
	ExitSuccess = 0

	// ExitGeneralError covers configuration, manifest, comparator and load
	// failures.
	ExitGeneralError = 1

	// ExitNoVersions indicates no installed version was found next to the
	// requesting module.
	ExitNoVersions = 2

	// ExitUnsatisfiable indicates versions exist but none satisfied every
	// constraint.
	ExitUnsatisfiable = 3
)

// ExitCodeFromError determines the process exit code for an error returned
// by a command.
func ExitCodeFromError(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, resolver.ErrNoVersionsFound):
		return ExitNoVersions
	case errors.Is(err, resolver.ErrUnsatisfiable):
		return ExitUnsatisfiable
	default:
		return ExitGeneralError
	}
}
