package packagemanager

import (
	"context"
	"strings"

	cm "github.com/steelcutops/pkgmgr/pkgmgr/commandmanager"
)

// RedHatPackageManager drives yum on RedHat and CentOS.
type RedHatPackageManager struct {
	rpmPackageManager
}

func NewRedHatPackageManager(cmdManager cm.CommandManager, opts ...Option) *RedHatPackageManager {
	return &RedHatPackageManager{rpmPackageManager{
		commandRunner: newCommandRunner(cmdManager, opts),
		family:        FamilyRedHat,
	}}
}

func (r *RedHatPackageManager) InstallPackage(ctx context.Context, pkg string, opts ...InstallOption) error {
	if err := validatePackage(pkg); err != nil {
		return err
	}
	if err := r.rejectVersion(opts); err != nil {
		return err
	}
	return r.execute(ctx, nil, "yum", "install", "-y", pkg)
}

func (r *RedHatPackageManager) RemovePackage(ctx context.Context, pkg string) error {
	if err := validatePackage(pkg); err != nil {
		return err
	}
	return r.execute(ctx, nil, "yum", "remove", "-y", pkg)
}

// IsPackageInstalled uses rpm -q unless WithStatusQuery(StatusQueryYumInfo)
// was given.
func (r *RedHatPackageManager) IsPackageInstalled(ctx context.Context, pkg string) (bool, error) {
	if r.statusQuery != StatusQueryYumInfo {
		return r.rpmPackageManager.IsPackageInstalled(ctx, pkg)
	}
	if err := validatePackage(pkg); err != nil {
		return false, err
	}

	result, err := r.query(ctx, "yum", "info", pkg)
	if err != nil {
		return false, err
	}
	return yumInfoInstalled(result)
}

func yumInfoInstalled(result cm.CommandResult) (bool, error) {
	if result.ExitCode != 0 {
		if strings.Contains(result.STDOUT+result.STDERR, "No matching Packages") {
			return false, nil
		}
		return false, &UnexpectedOutputError{Tool: "yum", Result: result}
	}

	info, ok := ParseYumInfo(result.STDOUT)
	if !ok || info.Repo == "" {
		return false, &UnexpectedOutputError{Tool: "yum", Result: result}
	}
	return info.Installed(), nil
}
