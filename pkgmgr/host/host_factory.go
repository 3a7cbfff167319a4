package host

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	cm "github.com/steelcutops/pkgmgr/pkgmgr/commandmanager"
	"github.com/steelcutops/pkgmgr/pkgmgr/packagemanager"
	"github.com/steelcutops/pkgmgr/pkgmgr/platform"
)

// NewHost connects the host's CommandManager, determines its platform and
// selects the package backend for it.
func NewHost(ctx context.Context, hostname string, options ...HostOption) (*Host, error) {
	h := &Host{Hostname: hostname}

	for _, option := range options {
		option(h)
	}

	if h.logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		h.logger = discard
	}
	log := h.logger.WithField("host", hostname)

	detector := &recordingDetector{Detector: h.detector()}

	pm, err := packagemanager.New(ctx, detector, h.CommandManager, h.pmOptions...)
	if detector.token != "" {
		log.WithField("platform", detector.token).Debug("platform detected")
	}
	if err != nil {
		return nil, err
	}

	h.Platform = detector.token
	h.PackageManager = pm
	log.WithField("family", pm.Family()).Debug("package manager selected")

	return h, nil
}

// recordingDetector keeps the token reported by the wrapped detector so the
// host can expose it next to the selected backend.
type recordingDetector struct {
	platform.Detector
	token string
}

func (d *recordingDetector) PlatformString(ctx context.Context) (string, error) {
	token, err := d.Detector.PlatformString(ctx)
	d.token = token
	return token, err
}

// detector builds the CommandManager if needed and picks how to detect the
// platform: a configured token, gopsutil for this machine, or uname and
// os-release through the CommandManager.
func (h *Host) detector() platform.Detector {
	local := false
	if h.CommandManager == nil {
		manager := &cm.UnixCommandManager{
			Hostname:        h.Hostname,
			SSHClient:       h.SSHClient,
			Credentials:     h.Credentials,
			HostKeyCallback: h.hostKeyCallback,
			Logger:          h.logger,
		}
		h.CommandManager = manager
		local = manager.IsLocal()
	}

	switch {
	case h.platformOverride != "":
		return platform.Static(h.platformOverride)
	case local:
		return platform.LocalDetector{}
	default:
		return platform.RemoteDetector{CommandManager: h.CommandManager}
	}
}
