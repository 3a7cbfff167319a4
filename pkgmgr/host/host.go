package host

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	cm "github.com/steelcutops/pkgmgr/pkgmgr/commandmanager"
	"github.com/steelcutops/pkgmgr/pkgmgr/packagemanager"
	"github.com/steelcutops/pkgmgr/pkgmgr/platform"
)

// Host is a machine reachable through a CommandManager together with the
// package backend selected for its platform.
type Host struct {
	Hostname string
	cm.Credentials
	SSHClient cm.SSHDialer

	// Platform is the detected or configured platform token, e.g. "linux-centos-7.9".
	Platform string

	CommandManager cm.CommandManager
	packagemanager.PackageManager

	hostKeyCallback  ssh.HostKeyCallback
	platformOverride string
	logger           logrus.FieldLogger
	pmOptions        []packagemanager.Option
}

// PlatformName is the platform name the backend was selected by.
func (h *Host) PlatformName() string {
	return platform.Name(h.Platform)
}

// Upgrader returns the host's upgrade capability, if its backend has one.
func (h *Host) Upgrader() (packagemanager.Upgrader, bool) {
	u, ok := h.PackageManager.(packagemanager.Upgrader)
	return u, ok
}
