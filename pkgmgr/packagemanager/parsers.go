package packagemanager

import (
	"regexp"
	"strings"
)

var (
	// dpkg -l rows start with the desired/status/error flags, e.g. "ii" or "rc".
	dpkgStateRegex   = regexp.MustCompile(`(?m)^([uihrp][ncHUFWti][ R]?)\s+\S+`)
	dpkgVersionRegex = regexp.MustCompile(`(?m)^Version:\s+([a-zA-Z0-9.+~\-_:]+)\s*$`)

	aptitudeStateRegex = regexp.MustCompile(`(?m)^State:\s*(.+?)\s*$`)

	yumFieldRegex = regexp.MustCompile(`(?m)^([A-Za-z][A-Za-z ]*?)\s*:\s*(.*?)\s*$`)

	pkginfoRevisionRegex = regexp.MustCompile(`(?m)^[ \t]*VERSION:[ \t]+([^,\s]+),REV=(\S+)`)
	pkginfoVersionRegex  = regexp.MustCompile(`(?m)^[ \t]*VERSION:[ \t]+([^,\s]+)`)
)

const dpkgStateInstalled = "ii"

// ParseDpkgQueryState returns the status flags of the first package row in
// dpkg-query -l output, such as "ii" or "un".
func ParseDpkgQueryState(output string) (string, bool) {
	match := dpkgStateRegex.FindStringSubmatch(output)
	if match == nil {
		return "", false
	}
	return strings.TrimSpace(match[1]), true
}

// ParseDpkgVersion extracts the Version field of dpkg-query -s output.
func ParseDpkgVersion(output string) (string, bool) {
	match := dpkgVersionRegex.FindStringSubmatch(output)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ParseAptitudeState extracts the State field of aptitude show output.
func ParseAptitudeState(output string) (string, bool) {
	match := aptitudeStateRegex.FindStringSubmatch(output)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ParseRpmVersion trims the version-release printed by rpm -q --queryformat.
func ParseRpmVersion(output string) string {
	return strings.TrimSpace(output)
}

// YumInfo holds the fields of the first package block of yum info output.
type YumInfo struct {
	Name    string
	Version string
	Release string
	Repo    string
}

// Installed reports whether the block came from the installed set. yum
// prints "installed", dnf prints "@System" or "@<repo>".
func (y YumInfo) Installed() bool {
	return y.Repo == "installed" || strings.HasPrefix(y.Repo, "@")
}

func ParseYumInfo(output string) (YumInfo, bool) {
	var info YumInfo
	found := false
	for _, match := range yumFieldRegex.FindAllStringSubmatch(output, -1) {
		key, value := match[1], match[2]
		switch key {
		case "Name":
			if found {
				return info, true
			}
			info.Name = value
			found = true
		case "Version":
			info.Version = value
		case "Release":
			info.Release = value
		case "Repo", "Repository":
			info.Repo = value
		}
	}
	return info, found
}

// ParsePkginfoVersion extracts VERSION from pkginfo -l output, splitting off
// the ",REV=" suffix when there is one.
func ParsePkginfoVersion(output string) (InstalledVersion, bool) {
	if match := pkginfoRevisionRegex.FindStringSubmatch(output); match != nil {
		return InstalledVersion{Version: match[1], Revision: match[2]}, true
	}
	if match := pkginfoVersionRegex.FindStringSubmatch(output); match != nil {
		return InstalledVersion{Version: match[1]}, true
	}
	return InstalledVersion{}, false
}
