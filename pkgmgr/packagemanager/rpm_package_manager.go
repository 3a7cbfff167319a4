package packagemanager

import (
	"context"
	"fmt"
	"strings"

	cm "github.com/steelcutops/pkgmgr/pkgmgr/commandmanager"
)

const rpmVersionFormat = "--queryformat=%{version}-%{release}"

// rpmPackageManager answers queries from the rpm database. RedHat and SUSE
// embed it and add their own install tooling.
type rpmPackageManager struct {
	commandRunner
	family Family
}

func (r *rpmPackageManager) Family() Family {
	return r.family
}

// IsPackageInstalled runs rpm -q. Exit codes other than 0 and a
// not-installed exit 1 are reported as unexpected.
func (r *rpmPackageManager) IsPackageInstalled(ctx context.Context, pkg string) (bool, error) {
	if err := validatePackage(pkg); err != nil {
		return false, err
	}

	result, err := r.query(ctx, "rpm", "-q", pkg)
	if err != nil {
		return false, err
	}
	switch {
	case result.ExitCode == 0 && !strings.Contains(result.STDOUT, "not installed"):
		return true, nil
	case rpmNotInstalled(pkg, result):
		return false, nil
	default:
		return false, &UnexpectedOutputError{Tool: "rpm", Result: result}
	}
}

// GetInstalledVersion returns "<version>-<release>" as reported by rpm.
func (r *rpmPackageManager) GetInstalledVersion(ctx context.Context, pkg string) (InstalledVersion, error) {
	if err := validatePackage(pkg); err != nil {
		return InstalledVersion{}, err
	}

	result, err := r.query(ctx, "rpm", "-q", pkg, rpmVersionFormat)
	if err != nil {
		return InstalledVersion{}, err
	}
	if result.ExitCode != 0 || strings.Contains(result.STDOUT, "not installed") {
		if rpmNotInstalled(pkg, result) {
			return InstalledVersion{}, fmt.Errorf("%w: %s", ErrNotInstalled, pkg)
		}
		return InstalledVersion{}, &UnexpectedOutputError{Tool: "rpm", Result: result}
	}
	return InstalledVersion{Version: ParseRpmVersion(result.STDOUT)}, nil
}

func rpmNotInstalled(pkg string, result cm.CommandResult) bool {
	return result.ExitCode == 1 && strings.Contains(result.STDOUT, fmt.Sprintf("package %s is not installed", pkg))
}

// rejectVersion fails a pinned install before anything runs.
func (r *rpmPackageManager) rejectVersion(opts []InstallOption) error {
	return checkPinning(r.family, opts)
}
