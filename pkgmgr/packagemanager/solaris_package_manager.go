package packagemanager

import (
	"context"
	"fmt"
	"strings"

	cm "github.com/steelcutops/pkgmgr/pkgmgr/commandmanager"
)

// SolarisPackageManager queries SVR4 packages with pkginfo. Installing and
// removing is left to the operator.
type SolarisPackageManager struct {
	commandRunner
}

func NewSolarisPackageManager(cmdManager cm.CommandManager, opts ...Option) *SolarisPackageManager {
	return &SolarisPackageManager{commandRunner: newCommandRunner(cmdManager, opts)}
}

func (s *SolarisPackageManager) Family() Family {
	return FamilySolaris
}

func (s *SolarisPackageManager) InstallPackage(ctx context.Context, pkg string, opts ...InstallOption) error {
	return &UnsupportedOperationError{Family: FamilySolaris, Operation: "install"}
}

func (s *SolarisPackageManager) RemovePackage(ctx context.Context, pkg string) error {
	return &UnsupportedOperationError{Family: FamilySolaris, Operation: "remove"}
}

func (s *SolarisPackageManager) IsPackageInstalled(ctx context.Context, pkg string) (bool, error) {
	if err := validatePackage(pkg); err != nil {
		return false, err
	}

	result, err := s.query(ctx, "pkginfo", pkg)
	if err != nil {
		return false, err
	}
	return pkginfoInstalled(pkg, result)
}

// GetInstalledVersion returns a zero InstalledVersion when pkginfo -l prints
// no VERSION line.
func (s *SolarisPackageManager) GetInstalledVersion(ctx context.Context, pkg string) (InstalledVersion, error) {
	if err := validatePackage(pkg); err != nil {
		return InstalledVersion{}, err
	}

	result, err := s.checkedQuery(ctx, "pkginfo", "-l", pkg)
	if err != nil {
		return InstalledVersion{}, err
	}
	version, _ := ParsePkginfoVersion(result.STDOUT)
	return version, nil
}

func pkginfoInstalled(pkg string, result cm.CommandResult) (bool, error) {
	if result.ExitCode == 0 && !strings.Contains(result.STDERR, "not found") {
		return true, nil
	}
	notFound := fmt.Sprintf(`information for "%s" was not found`, pkg)
	if result.ExitCode == 1 && strings.Contains(result.STDERR, notFound) {
		return false, nil
	}
	return false, &UnexpectedOutputError{Tool: "pkginfo", Result: result}
}
