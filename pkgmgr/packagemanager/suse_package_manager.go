package packagemanager

import (
	"context"

	cm "github.com/steelcutops/pkgmgr/pkgmgr/commandmanager"
)

// Unsigned repositories are common on SLES appliances.
var zypperArgs = []string{"--non-interactive", "--no-gpg-checks"}

// SusePackageManager drives zypper on SUSE.
type SusePackageManager struct {
	rpmPackageManager
}

func NewSusePackageManager(cmdManager cm.CommandManager, opts ...Option) *SusePackageManager {
	return &SusePackageManager{rpmPackageManager{
		commandRunner: newCommandRunner(cmdManager, opts),
		family:        FamilySuse,
	}}
}

func (s *SusePackageManager) InstallPackage(ctx context.Context, pkg string, opts ...InstallOption) error {
	if err := validatePackage(pkg); err != nil {
		return err
	}
	if err := s.rejectVersion(opts); err != nil {
		return err
	}
	return s.zypper(ctx, "install", "--auto-agree-with-licenses", pkg)
}

func (s *SusePackageManager) UpgradePackage(ctx context.Context, pkg string) error {
	if err := validatePackage(pkg); err != nil {
		return err
	}
	return s.zypper(ctx, "update", "--auto-agree-with-licenses", pkg)
}

func (s *SusePackageManager) RemovePackage(ctx context.Context, pkg string) error {
	if err := validatePackage(pkg); err != nil {
		return err
	}
	return s.zypper(ctx, "remove", pkg)
}

func (s *SusePackageManager) zypper(ctx context.Context, args ...string) error {
	return s.execute(ctx, nil, "zypper", append(append([]string{}, zypperArgs...), args...)...)
}
