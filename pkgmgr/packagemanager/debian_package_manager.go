package packagemanager

import (
	"context"
	"strings"

	cm "github.com/steelcutops/pkgmgr/pkgmgr/commandmanager"
)

var aptEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

// Keep existing configuration files on upgrade instead of prompting.
var aptInstallArgs = []string{
	"install", "-y",
	"-o", "Dpkg::Options::=--force-confdef",
	"-o", "Dpkg::Options::=--force-confold",
}

// DebianPackageManager drives apt-get and dpkg-query on Ubuntu.
type DebianPackageManager struct {
	commandRunner
}

func NewDebianPackageManager(cmdManager cm.CommandManager, opts ...Option) *DebianPackageManager {
	return &DebianPackageManager{commandRunner: newCommandRunner(cmdManager, opts)}
}

func (d *DebianPackageManager) Family() Family {
	return FamilyDebian
}

// InstallPackage installs pkg. With WithVersion, a different installed
// version is removed first and pkg=version is installed.
func (d *DebianPackageManager) InstallPackage(ctx context.Context, pkg string, opts ...InstallOption) error {
	if err := validatePackage(pkg); err != nil {
		return err
	}

	o := newInstallOptions(opts)
	target := pkg
	if o.version != "" {
		installed, err := d.GetInstalledVersion(ctx, pkg)
		if err != nil {
			return err
		}
		if installed.Version != "" && installed.Version != o.version {
			if err := d.RemovePackage(ctx, pkg); err != nil {
				return err
			}
		}
		target = pkg + "=" + o.version
	}

	args := append(append([]string{}, aptInstallArgs...), target)
	return d.execute(ctx, aptEnv, "apt-get", args...)
}

func (d *DebianPackageManager) RemovePackage(ctx context.Context, pkg string) error {
	if err := validatePackage(pkg); err != nil {
		return err
	}
	return d.execute(ctx, aptEnv, "apt-get", "remove", "-y", pkg)
}

func (d *DebianPackageManager) IsPackageInstalled(ctx context.Context, pkg string) (bool, error) {
	if err := validatePackage(pkg); err != nil {
		return false, err
	}

	if d.statusQuery == StatusQueryAptitude {
		result, err := d.query(ctx, "aptitude", "show", pkg)
		if err != nil {
			return false, err
		}
		return aptitudeInstalled(result)
	}

	result, err := d.query(ctx, "dpkg-query", "-l", pkg)
	if err != nil {
		return false, err
	}
	return dpkgInstalled(result)
}

// GetInstalledVersion returns an empty version when dpkg-query does not know
// the package or prints no Version field.
func (d *DebianPackageManager) GetInstalledVersion(ctx context.Context, pkg string) (InstalledVersion, error) {
	if err := validatePackage(pkg); err != nil {
		return InstalledVersion{}, err
	}

	result, err := d.query(ctx, "dpkg-query", "-s", pkg)
	if err != nil {
		return InstalledVersion{}, err
	}
	if result.ExitCode != 0 {
		return InstalledVersion{}, nil
	}
	version, _ := ParseDpkgVersion(result.STDOUT)
	return InstalledVersion{Version: version}, nil
}

func dpkgInstalled(result cm.CommandResult) (bool, error) {
	if result.ExitCode == 0 {
		state, ok := ParseDpkgQueryState(result.STDOUT)
		if !ok {
			return false, &UnexpectedOutputError{Tool: "dpkg-query", Result: result}
		}
		return state == dpkgStateInstalled, nil
	}

	if result.ExitCode == 1 && strings.Contains(result.STDERR+result.STDOUT, "no packages found matching") {
		return false, nil
	}
	return false, &UnexpectedOutputError{Tool: "dpkg-query", Result: result}
}

func aptitudeInstalled(result cm.CommandResult) (bool, error) {
	output := result.STDOUT + result.STDERR
	if strings.Contains(output, "Unable to locate package") || strings.Contains(output, "Couldn't find any package") {
		return false, nil
	}
	if result.ExitCode == 0 {
		if state, ok := ParseAptitudeState(result.STDOUT); ok {
			return state == "installed", nil
		}
	}
	return false, &UnexpectedOutputError{Tool: "aptitude", Result: result}
}
