package commandmanager

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrTimeout is returned when a command does not finish within its
// CommandConfig.Timeout. The process is killed before the error is returned.
var ErrTimeout = errors.New("command timed out")

// CommandConfig describes one command execution. Command and Args form the
// argument vector; they are never passed through a local shell.
type CommandConfig struct {
	Command string
	Args    []string
	Env     []string // extra KEY=VALUE pairs, applied after the sanitized environment
	Sudo    bool
	Timeout time.Duration // zero means no timeout beyond the caller's context
}

// String renders the argument vector for logs and error messages.
func (c CommandConfig) String() string {
	return strings.Join(append([]string{c.Command}, c.Args...), " ")
}

// CommandResult encapsulates the results from a command execution.
type CommandResult struct {
	Command   string
	STDOUT    string
	STDERR    string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

// Credentials holds everything needed to authenticate against a host.
type Credentials struct {
	User          string
	Password      string
	KeyPassphrase string
	SudoPassword  string
}

// CommandManager provides methods to execute commands, both locally and remotely.
//
// A non-zero exit status is not an error: it is reported in
// CommandResult.ExitCode and left to the caller to interpret. Errors are
// returned only when the command could not be run at all or timed out.
type CommandManager interface {
	// Run executes the command locally or remotely depending on the target host.
	Run(ctx context.Context, config CommandConfig) (CommandResult, error)

	// RunLocal executes a command on the local system.
	RunLocal(ctx context.Context, config CommandConfig) (CommandResult, error)

	// RunRemote executes a command on a remote system via SSH.
	RunRemote(ctx context.Context, config CommandConfig) (CommandResult, error)
}
