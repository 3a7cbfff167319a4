package packagemanager

import (
	"errors"
	"fmt"
	"strings"

	cm "github.com/steelcutops/pkgmgr/pkgmgr/commandmanager"
)

var (
	// ErrUnsupportedPlatform indicates no backend exists for the detected platform.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrUnsupportedOperation indicates the backend has no native equivalent
	// for the operation. Nothing was executed.
	ErrUnsupportedOperation = errors.New("operation not supported")

	// ErrCommandFailed indicates a native tool exited non-zero where success
	// was required, or could not be run at all.
	ErrCommandFailed = errors.New("command execution failed")

	// ErrUnexpectedOutput indicates a query ran but its output matched none of
	// the known installed/not-installed forms.
	ErrUnexpectedOutput = errors.New("unexpected results")

	// ErrNotInstalled indicates the package is not installed.
	ErrNotInstalled = errors.New("package is not installed")

	// ErrInvalidPackage indicates an empty package name.
	ErrInvalidPackage = errors.New("invalid package name")
)

type UnsupportedPlatformError struct {
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("package manager is not implemented for %q", e.Platform)
}

func (e *UnsupportedPlatformError) Is(target error) bool {
	return target == ErrUnsupportedPlatform
}

type UnsupportedOperationError struct {
	Family    Family
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s is not supported on %s", e.Operation, e.Family)
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// CommandError wraps a failed native tool run. Err is set when the
// CommandManager itself failed (spawn, SSH, timeout); otherwise Result holds
// the non-zero exit.
type CommandError struct {
	Command string
	Result  cm.CommandResult
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("execution of %s failed: %v", e.Command, e.Err)
	}
	msg := fmt.Sprintf("execution of %s failed with exit code %d", e.Command, e.Result.ExitCode)
	if stderr := strings.TrimSpace(e.Result.STDERR); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

type UnexpectedOutputError struct {
	Tool   string
	Result cm.CommandResult
}

func (e *UnexpectedOutputError) Error() string {
	return fmt.Sprintf("%s returned unexpected results (exit code %d), see the log", e.Tool, e.Result.ExitCode)
}

func (e *UnexpectedOutputError) Is(target error) bool {
	return target == ErrUnexpectedOutput
}
