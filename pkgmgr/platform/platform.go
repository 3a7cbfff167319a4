// Package platform produces the normalized platform token used to pick a
// package manager backend. Tokens have the form <os>-<distribution>-<version>,
// e.g. "linux-ubuntu-22.04" or "solaris-solaris-5.11".
package platform

import (
	"context"
	"strings"
)

// Detector returns the platform token of a host.
type Detector interface {
	PlatformString(ctx context.Context) (string, error)
}

// Static is a Detector that always returns the same token. It backs the
// --platform override and tests.
type Static string

func (s Static) PlatformString(context.Context) (string, error) {
	return string(s), nil
}

var distributionAliases = map[string]string{
	"rhel":                   "redhat",
	"redhatenterprise":       "redhat",
	"redhatenterpriseserver": "redhat",
	"sles":                   "suse",
	"sled":                   "suse",
	"opensuse":               "suse",
	"opensuseleap":           "suse",
	"opensusetumbleweed":     "suse",
	"sunos":                  "solaris",
}

// NormalizeDistribution lowercases an os-release style id and folds known
// aliases. Dashes and spaces are removed so the result never breaks the
// dash-separated token.
func NormalizeDistribution(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	id = strings.Trim(id, `"'`)
	id = strings.NewReplacer("-", "", " ", "", "_", "").Replace(id)
	if alias, ok := distributionAliases[id]; ok {
		return alias
	}
	return id
}

// Token assembles a platform token from its parts.
func Token(osName, distribution, version string) string {
	parts := []string{NormalizeDistribution(osName), NormalizeDistribution(distribution)}
	if version = strings.TrimSpace(version); version != "" {
		parts = append(parts, strings.ReplaceAll(version, "-", "."))
	}
	return strings.Join(parts, "-")
}

// Name extracts the backend-selecting name from a token: the first segment,
// or the second one for linux tokens.
func Name(token string) string {
	parts := strings.Split(token, "-")
	if parts[0] == "linux" && len(parts) > 1 {
		return parts[1]
	}
	return parts[0]
}
