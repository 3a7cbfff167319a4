package host

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	cm "github.com/steelcutops/pkgmgr/pkgmgr/commandmanager"
	"github.com/steelcutops/pkgmgr/pkgmgr/packagemanager"
)

type HostOption func(*Host)

// WithUser returns a HostOption that sets the SSH user for a Host.
func WithUser(user string) HostOption {
	return func(host *Host) {
		host.User = user
	}
}

// WithPassword returns a HostOption that sets the SSH password for a Host.
func WithPassword(password string) HostOption {
	return func(host *Host) {
		host.Password = password
	}
}

// WithKeyPassphrase returns a HostOption that sets the key passphrase for a Host.
func WithKeyPassphrase(keyPassphrase string) HostOption {
	return func(host *Host) {
		host.KeyPassphrase = keyPassphrase
	}
}

// WithSudoPassword returns a HostOption that sets the sudo password for a Host.
func WithSudoPassword(password string) HostOption {
	return func(host *Host) {
		host.SudoPassword = password
	}
}

func WithSSHClient(client cm.SSHDialer) HostOption {
	return func(host *Host) {
		host.SSHClient = client
	}
}

// WithHostKeyCallback verifies SSH host keys, e.g. with knownhosts.New.
func WithHostKeyCallback(callback ssh.HostKeyCallback) HostOption {
	return func(host *Host) {
		host.hostKeyCallback = callback
	}
}

// WithPlatform skips detection and uses the given platform token.
func WithPlatform(token string) HostOption {
	return func(host *Host) {
		host.platformOverride = token
	}
}

func WithLogger(logger logrus.FieldLogger) HostOption {
	return func(host *Host) {
		host.logger = logger
	}
}

// WithCommandManager replaces the UnixCommandManager NewHost would build.
func WithCommandManager(manager cm.CommandManager) HostOption {
	return func(host *Host) {
		host.CommandManager = manager
	}
}

// WithPackageManagerOptions passes options through to the selected backend.
func WithPackageManagerOptions(opts ...packagemanager.Option) HostOption {
	return func(host *Host) {
		host.pmOptions = append(host.pmOptions, opts...)
	}
}
