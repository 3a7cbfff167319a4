package commandmanager

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

const (
	// Native tools are scraped with English-language patterns.
	localeEnv = "LC_ALL=en_US.UTF-8"

	defaultSSHPort     = "22"
	defaultDialTimeout = 15 * time.Minute
)

// strippedEnv lists variables removed from the inherited environment. yum and
// zypper are Python programs and break on a foreign PYTHONPATH. gettext
// prefers LANGUAGE over LC_ALL when picking message catalogs.
var strippedEnv = map[string]bool{
	"PYTHONPATH": true,
	"LANGUAGE":   true,
	"LC_ALL":     true,
}

type SSHDialer interface {
	Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error)
}

// RealSSHClient dials with golang.org/x/crypto/ssh.
type RealSSHClient struct{}

func (RealSSHClient) Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	cfg := *config
	cfg.Timeout = timeout
	return ssh.Dial(network, addr, &cfg)
}

type UnixCommandManager struct {
	Hostname  string
	SSHClient SSHDialer
	Credentials

	// HostKeyCallback verifies remote host keys. Nil accepts any key.
	HostKeyCallback ssh.HostKeyCallback
	Logger          logrus.FieldLogger
}

func (u *UnixCommandManager) Run(ctx context.Context, config CommandConfig) (CommandResult, error) {
	if u.IsLocal() {
		return u.RunLocal(ctx, config)
	}
	return u.RunRemote(ctx, config)
}

// IsLocal reports whether commands run on this machine rather than over SSH.
func (u *UnixCommandManager) IsLocal() bool {
	return u.Hostname == "" || u.Hostname == "localhost" || u.Hostname == "127.0.0.1"
}

func (u *UnixCommandManager) RunLocal(ctx context.Context, config CommandConfig) (CommandResult, error) {
	ctx, cancel := withTimeout(ctx, config.Timeout)
	defer cancel()

	log := u.commandLogger(config)
	log.Info("executing")

	name, args := localCommand(config)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = commandEnv(os.Environ(), config.Env)
	if config.Sudo {
		cmd.Stdin = strings.NewReader(u.SudoPassword + "\n")
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := CommandResult{
		Command:   config.String(),
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		Duration:  time.Since(start),
		Timestamp: start,
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.WithField("duration", result.Duration).Error("execution timed out")
		return result, fmt.Errorf("%w: %s after %s", ErrTimeout, config, result.Duration.Round(time.Millisecond))
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	case err != nil:
		log.WithError(err).Error("execution failed to start")
		return result, fmt.Errorf("failed to execute %s: %w", config, err)
	}

	logResult(log, result)
	if config.Sudo {
		if err := checkSudo(result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (u *UnixCommandManager) getSSHConfig() (*ssh.ClientConfig, error) {
	var authMethod ssh.AuthMethod

	if u.Password != "" {
		u.log().WithField("hostname", u.Hostname).Debug("Using password authentication")
		authMethod = ssh.Password(u.Password)
	} else {
		u.log().WithField("hostname", u.Hostname).Debug("Using public key authentication")
		var keyManager SSHKeyManager
		if u.KeyPassphrase != "" {
			keyManager = FileSSHKeyManager{}
		} else {
			keyManager = AgentSSHKeyManager{}
		}

		keys, err := keyManager.ReadPrivateKeys(u.KeyPassphrase)
		if err != nil {
			return nil, err
		}

		authMethod = ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
			return keys, nil
		})
	}

	hostKeyCallback := u.HostKeyCallback
	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	return &ssh.ClientConfig{
		User:            u.User,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: hostKeyCallback,
	}, nil
}

func (u *UnixCommandManager) RunRemote(ctx context.Context, config CommandConfig) (CommandResult, error) {
	if u.SSHClient == nil {
		return CommandResult{}, errors.New("SSHClient is not initialized")
	}

	ctx, cancel := withTimeout(ctx, config.Timeout)
	defer cancel()

	log := u.commandLogger(config)
	log.Info("executing")

	sshConfig, err := u.getSSHConfig()
	if err != nil {
		return CommandResult{}, err
	}

	dialTimeout := defaultDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		dialTimeout = time.Until(deadline)
	}

	client, err := u.dial(ctx, sshConfig, dialTimeout)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			log.Error("connection timed out")
		}
		return CommandResult{}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return CommandResult{}, err
	}
	defer session.Close()

	cmdStr := remoteCommand(config)
	if config.Sudo {
		session.Stdin = strings.NewReader(u.SudoPassword + "\n")
	}

	var stdout, stderr strings.Builder
	session.Stdout = &stdout
	session.Stderr = &stderr

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmdStr)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		log.WithField("duration", time.Since(start)).Error("execution timed out")
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return CommandResult{}, fmt.Errorf("%w: %s on %s", ErrTimeout, config, u.Hostname)
		}
		return CommandResult{}, ctx.Err()
	}

	result := CommandResult{
		Command:   config.String(),
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		Duration:  time.Since(start),
		Timestamp: start,
	}

	var exitErr *ssh.ExitError
	switch {
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitStatus()
	case err != nil:
		log.WithError(err).Error("execution failed over SSH")
		return result, fmt.Errorf("failed to execute %s on %s: %w", config, u.Hostname, err)
	}

	logResult(log, result)
	if config.Sudo {
		if err := checkSudo(result); err != nil {
			return result, err
		}
	}
	return result, nil
}

type dialResult struct {
	client *ssh.Client
	err    error
}

// dial connects to the host but gives up once ctx is done. The ssh.ClientConfig
// timeout covers only the TCP connect, not the handshake.
func (u *UnixCommandManager) dial(ctx context.Context, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	dialed := make(chan dialResult, 1)
	go func() {
		client, err := u.SSHClient.Dial("tcp", u.address(), config, timeout)
		dialed <- dialResult{client: client, err: err}
	}()

	select {
	case r := <-dialed:
		return r.client, r.err
	case <-ctx.Done():
		go func() {
			if r := <-dialed; r.client != nil {
				r.client.Close()
			}
		}()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: connecting to %s", ErrTimeout, u.Hostname)
		}
		return nil, ctx.Err()
	}
}

func (u *UnixCommandManager) address() string {
	if _, _, err := net.SplitHostPort(u.Hostname); err == nil {
		return u.Hostname
	}
	return net.JoinHostPort(u.Hostname, defaultSSHPort)
}

func (u *UnixCommandManager) log() logrus.FieldLogger {
	if u.Logger == nil {
		return logrus.StandardLogger()
	}
	return u.Logger
}

func (u *UnixCommandManager) commandLogger(config CommandConfig) logrus.FieldLogger {
	return u.log().WithFields(logrus.Fields{
		"hostname": u.Hostname,
		"command":  config.String(),
		"sudo":     config.Sudo,
		"exec_id":  uuid.NewString(),
	})
}

func logResult(log logrus.FieldLogger, result CommandResult) {
	log.WithFields(logrus.Fields{
		"exit_code": result.ExitCode,
		"duration":  result.Duration,
	}).Info("execution returned")
	log.WithField("stdout", result.STDOUT).Debug("stdout")
	log.WithField("stderr", result.STDERR).Debug("stderr")
}

// localCommand returns the argv for a local run. sudo resets the environment,
// so the locale and extra variables are re-applied through env.
func localCommand(config CommandConfig) (string, []string) {
	if !config.Sudo {
		return config.Command, config.Args
	}
	args := append([]string{"-S", "-p", "", "env", localeEnv}, config.Env...)
	args = append(args, config.Command)
	return "sudo", append(args, config.Args...)
}

// remoteCommand builds the shell line for an SSH session: the same sanitized
// environment as local runs, with every token quoted.
func remoteCommand(config CommandConfig) string {
	argv := append([]string{"env", localeEnv}, config.Env...)
	argv = append(argv, config.Command)
	argv = append(argv, config.Args...)

	line := shellescape.QuoteCommand(argv)
	if config.Sudo {
		line = "sudo -S -p '' " + line
	}
	return "unset PYTHONPATH LANGUAGE; " + line
}

func commandEnv(base, extra []string) []string {
	env := make([]string, 0, len(base)+len(extra)+1)
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if strippedEnv[key] {
			continue
		}
		env = append(env, kv)
	}
	env = append(env, localeEnv)
	return append(env, extra...)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func checkSudo(result CommandResult) error {
	output := result.STDOUT + result.STDERR
	if strings.Contains(output, "incorrect password") {
		return errors.New("sudo: incorrect password provided")
	}
	if strings.Contains(output, "is not in the sudoers file") {
		return errors.New("sudo: user is not in the sudoers file")
	}
	return nil
}
