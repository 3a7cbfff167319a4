package packagemanager

import (
	"context"

	cm "github.com/steelcutops/pkgmgr/pkgmgr/commandmanager"
)

// commandRunner is embedded by every backend. Queries never use sudo; the
// package database is world readable.
type commandRunner struct {
	CommandManager cm.CommandManager

	timeouts    Timeouts
	sudo        bool
	statusQuery StatusQuery
}

func newCommandRunner(cmdManager cm.CommandManager, opts []Option) commandRunner {
	r := commandRunner{
		CommandManager: cmdManager,
		timeouts:       DefaultTimeouts(),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// query runs a read-only command. A non-zero exit is returned as a result;
// only CommandManager failures become errors.
func (r commandRunner) query(ctx context.Context, command string, args ...string) (cm.CommandResult, error) {
	config := cm.CommandConfig{
		Command: command,
		Args:    args,
		Timeout: r.timeouts.Query,
	}
	result, err := r.CommandManager.Run(ctx, config)
	if err != nil {
		return result, &CommandError{Command: config.String(), Result: result, Err: err}
	}
	return result, nil
}

// checkedQuery is query with a non-zero exit reported as a CommandError.
func (r commandRunner) checkedQuery(ctx context.Context, command string, args ...string) (cm.CommandResult, error) {
	result, err := r.query(ctx, command, args...)
	if err != nil {
		return result, err
	}
	if result.ExitCode != 0 {
		return result, &CommandError{Command: cm.CommandConfig{Command: command, Args: args}.String(), Result: result}
	}
	return result, nil
}

// execute runs a state-changing command under the install timeout.
func (r commandRunner) execute(ctx context.Context, env []string, command string, args ...string) error {
	config := cm.CommandConfig{
		Command: command,
		Args:    args,
		Env:     env,
		Sudo:    r.sudo,
		Timeout: r.timeouts.Install,
	}
	result, err := r.CommandManager.Run(ctx, config)
	if err != nil {
		return &CommandError{Command: config.String(), Result: result, Err: err}
	}
	if result.ExitCode != 0 {
		return &CommandError{Command: config.String(), Result: result}
	}
	return nil
}

func validatePackage(pkg string) error {
	if pkg == "" {
		return ErrInvalidPackage
	}
	return nil
}
