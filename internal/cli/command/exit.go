package command

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tokvault-go/internal/core/domain"
)

// Exit codes besides ExitNotFound.
const (
	ExitFailure     = 1
	ExitUsage       = 2
	ExitKey         = 4
	ExitRecord      = 5
	ExitNotInit = 6
)

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var coder cli.ExitCoder
	if errors.As(err, &coder) && coder.ExitCode() != 0 {
		return coder.ExitCode()
	}

	if errors.Is(err, domain.ErrNotInitialized) {
		return ExitNotInit
	}
	switch domain.CategoryOf(err) {
	case domain.CategoryArgument:
		return ExitUsage
	case domain.CategoryKey:
		return ExitKey
	case domain.CategoryRecord:
		return ExitRecord
	}
	return ExitFailure
}
