// Package packagemanager drives the native package tools of a host (apt/dpkg,
// yum/zypper/rpm, pkginfo) behind one interface.
//
// Backends hold no state besides their CommandManager and options; every
// operation is a single round-trip through the CommandManager. Running two
// operations on the same package at the same time is the caller's problem:
// native tools serialize through their own lock files and may fail under
// contention.
package packagemanager

import (
	"context"
	"fmt"
	"time"

	"github.com/blang/semver/v4"
)

// Family tags the platform family a backend speaks to.
type Family string

const (
	FamilyDebian  Family = "debian"
	FamilyRedHat  Family = "redhat"
	FamilySuse    Family = "suse"
	FamilySolaris Family = "solaris"
)

const (
	DefaultQueryTimeout   = 2 * time.Minute
	DefaultInstallTimeout = 5 * time.Minute
)

// PackageManager is implemented by DebianPackageManager, RedHatPackageManager,
// SusePackageManager and SolarisPackageManager.
type PackageManager interface {
	Family() Family
	InstallPackage(ctx context.Context, pkg string, opts ...InstallOption) error
	IsPackageInstalled(ctx context.Context, pkg string) (bool, error)
	RemovePackage(ctx context.Context, pkg string) error
	GetInstalledVersion(ctx context.Context, pkg string) (InstalledVersion, error)
}

// Upgrader is implemented by backends with a native single-package update command.
type Upgrader interface {
	UpgradePackage(ctx context.Context, pkg string) error
}

// InstalledVersion is the version of an installed package. An empty Version
// means the tool did not report one. Revision is only filled in by Solaris,
// whose pkginfo encodes it separately.
type InstalledVersion struct {
	Version  string `json:"version" yaml:"version"`
	Revision string `json:"revision,omitempty" yaml:"revision,omitempty"`
}

// Map returns the version as a "version"/"revision" mapping; "revision" is
// present only when known.
func (v InstalledVersion) Map() map[string]string {
	m := map[string]string{"version": v.Version}
	if v.Revision != "" {
		m["revision"] = v.Revision
	}
	return m
}

// InRange reports whether the version satisfies a semver range such as
// ">=1.2.0 <2.0.0". Native versions that are not semver-shaped fail to parse.
func (v InstalledVersion) InRange(semverRange string) (bool, error) {
	version, err := semver.ParseTolerant(v.Version)
	if err != nil {
		return false, fmt.Errorf("version %q does not use semver: %w", v.Version, err)
	}

	vrange, err := semver.ParseRange(semverRange)
	if err != nil {
		return false, fmt.Errorf("invalid semver range %s: %w", semverRange, err)
	}

	return vrange(version), nil
}

// Timeouts bounds native tool runs. Queries are cheap; installs may download.
type Timeouts struct {
	Query   time.Duration
	Install time.Duration
}

// DefaultTimeouts returns the timeouts used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{Query: DefaultQueryTimeout, Install: DefaultInstallTimeout}
}

// StatusQuery selects the native tool used by IsPackageInstalled.
type StatusQuery string

const (
	// StatusQueryDefault uses dpkg-query on Debian and rpm everywhere RPM based.
	StatusQueryDefault StatusQuery = ""
	// StatusQueryAptitude uses aptitude show. Debian only.
	StatusQueryAptitude StatusQuery = "aptitude"
	// StatusQueryYumInfo uses yum info. RedHat only.
	StatusQueryYumInfo StatusQuery = "yum-info"
)

// Option configures a backend.
type Option func(*commandRunner)

// WithTimeouts overrides the query and install timeouts. Zero fields keep
// their defaults.
func WithTimeouts(timeouts Timeouts) Option {
	return func(r *commandRunner) {
		if timeouts.Query > 0 {
			r.timeouts.Query = timeouts.Query
		}
		if timeouts.Install > 0 {
			r.timeouts.Install = timeouts.Install
		}
	}
}

// WithSudo runs state-changing commands through sudo.
func WithSudo(sudo bool) Option {
	return func(r *commandRunner) {
		r.sudo = sudo
	}
}

// WithStatusQuery picks the tool behind IsPackageInstalled. Backends ignore
// values that do not belong to their family.
func WithStatusQuery(query StatusQuery) Option {
	return func(r *commandRunner) {
		r.statusQuery = query
	}
}

// InstallOption configures a single InstallPackage call.
type InstallOption func(*installOptions)

type installOptions struct {
	version string
}

// WithVersion pins the version to install. Only the Debian backend supports it.
func WithVersion(version string) InstallOption {
	return func(o *installOptions) {
		o.version = version
	}
}

func newInstallOptions(opts []InstallOption) installOptions {
	var o installOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
