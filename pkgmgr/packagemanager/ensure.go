package packagemanager

import "context"

// EnsurePresent installs pkg unless it is already installed. With
// WithVersion, an installed package at another version is reinstalled.
// It reports whether anything was changed.
func EnsurePresent(ctx context.Context, pm PackageManager, pkg string, opts ...InstallOption) (bool, error) {
	if err := checkPinning(pm.Family(), opts); err != nil {
		return false, err
	}

	installed, err := pm.IsPackageInstalled(ctx, pkg)
	if err != nil {
		return false, err
	}

	if installed {
		version := newInstallOptions(opts).version
		if version == "" {
			return false, nil
		}
		current, err := pm.GetInstalledVersion(ctx, pkg)
		if err != nil {
			return false, err
		}
		if current.Version == version {
			return false, nil
		}
	}

	if err := pm.InstallPackage(ctx, pkg, opts...); err != nil {
		return false, err
	}
	return true, nil
}

// checkPinning rejects a pinned version on families that cannot install one.
// Only apt accepts pkg=version.
func checkPinning(family Family, opts []InstallOption) error {
	if family != FamilyDebian && newInstallOptions(opts).version != "" {
		return &UnsupportedOperationError{Family: family, Operation: "installing a pinned version"}
	}
	return nil
}

// EnsureAbsent removes pkg if it is installed and reports whether it did.
func EnsureAbsent(ctx context.Context, pm PackageManager, pkg string) (bool, error) {
	installed, err := pm.IsPackageInstalled(ctx, pkg)
	if err != nil || !installed {
		return false, err
	}

	if err := pm.RemovePackage(ctx, pkg); err != nil {
		return false, err
	}
	return true, nil
}
