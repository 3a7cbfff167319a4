package packagemanager

import (
	"context"
	"fmt"

	cm "github.com/steelcutops/pkgmgr/pkgmgr/commandmanager"
	"github.com/steelcutops/pkgmgr/pkgmgr/platform"
)

// ResolvePlatform reduces a platform token such as "linux-centos-7" to the
// name backends are selected by ("centos").
func ResolvePlatform(token string) string {
	return platform.Name(token)
}

// ForPlatform returns the backend for a platform token.
func ForPlatform(token string, cmdManager cm.CommandManager, opts ...Option) (PackageManager, error) {
	switch name := ResolvePlatform(token); name {
	case "ubuntu":
		return NewDebianPackageManager(cmdManager, opts...), nil
	case "redhat", "centos":
		return NewRedHatPackageManager(cmdManager, opts...), nil
	case "suse":
		return NewSusePackageManager(cmdManager, opts...), nil
	case "solaris":
		return NewSolarisPackageManager(cmdManager, opts...), nil
	default:
		return nil, &UnsupportedPlatformError{Platform: name}
	}
}

// New detects the platform and returns its backend. Detection runs on every
// call; callers that want one backend per host keep the result.
func New(ctx context.Context, detector platform.Detector, cmdManager cm.CommandManager, opts ...Option) (PackageManager, error) {
	token, err := detector.PlatformString(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to detect platform: %w", err)
	}
	return ForPlatform(token, cmdManager, opts...)
}
