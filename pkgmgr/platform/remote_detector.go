package platform

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	cm "github.com/steelcutops/pkgmgr/pkgmgr/commandmanager"
	"gopkg.in/ini.v1"
)

const detectTimeout = 30 * time.Second

// Pre-os-release distributions only ship a free-form release file.
var (
	releaseVersionRegex = regexp.MustCompile(`release\s+([0-9][0-9.]*)`)
	suseVersionRegex    = regexp.MustCompile(`(?m)^VERSION\s*=\s*(\S+)`)
)

// RemoteDetector determines the platform by running uname and reading the
// release files through a CommandManager, so it works over SSH.
type RemoteDetector struct {
	CommandManager cm.CommandManager
}

func (d RemoteDetector) PlatformString(ctx context.Context) (string, error) {
	kernel, err := d.output(ctx, "uname", "-s")
	if err != nil {
		return "", err
	}

	switch strings.ToLower(kernel) {
	case "linux":
		distribution, version, err := d.linuxDistribution(ctx)
		if err != nil {
			return "", err
		}
		return Token("linux", distribution, version), nil
	case "sunos":
		release, err := d.output(ctx, "uname", "-r")
		if err != nil {
			return "", err
		}
		return Token("solaris", "solaris", release), nil
	default:
		return Token(kernel, kernel, ""), nil
	}
}

func (d RemoteDetector) linuxDistribution(ctx context.Context) (string, string, error) {
	result, err := d.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "cat",
		Args:    []string{"/etc/os-release"},
		Timeout: detectTimeout,
	})
	if err != nil {
		return "", "", err
	}
	if result.ExitCode == 0 {
		return ParseOSRelease(result.STDOUT)
	}

	for _, file := range []string{"/etc/redhat-release", "/etc/SuSE-release"} {
		result, err := d.CommandManager.Run(ctx, cm.CommandConfig{
			Command: "cat",
			Args:    []string{file},
			Timeout: detectTimeout,
		})
		if err != nil {
			return "", "", err
		}
		if result.ExitCode == 0 {
			id, version := ParseReleaseFile(result.STDOUT)
			return id, version, nil
		}
	}

	return "", "", fmt.Errorf("could not determine linux distribution: no release file found")
}

func (d RemoteDetector) output(ctx context.Context, command string, args ...string) (string, error) {
	result, err := d.CommandManager.Run(ctx, cm.CommandConfig{
		Command: command,
		Args:    args,
		Timeout: detectTimeout,
	})
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("%s exited with %d: %s", result.Command, result.ExitCode, strings.TrimSpace(result.STDERR))
	}
	return strings.TrimSpace(result.STDOUT), nil
}

// ParseOSRelease returns the ID and VERSION_ID of an os-release file.
func ParseOSRelease(content string) (string, string, error) {
	cfg, err := ini.Load([]byte(content))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse os-release: %w", err)
	}

	section := cfg.Section(ini.DefaultSection)
	id := section.Key("ID").String()
	if id == "" {
		return "", "", fmt.Errorf("os-release has no ID field")
	}
	return id, section.Key("VERSION_ID").String(), nil
}

// ParseReleaseFile handles /etc/redhat-release and /etc/SuSE-release.
func ParseReleaseFile(content string) (string, string) {
	lower := strings.ToLower(content)

	var id string
	switch {
	case strings.Contains(lower, "centos"):
		id = "centos"
	case strings.Contains(lower, "red hat"):
		id = "redhat"
	case strings.Contains(lower, "suse"):
		id = "suse"
	default:
		id = strings.Fields(lower + " unknown")[0]
	}

	var version string
	if match := releaseVersionRegex.FindStringSubmatch(content); match != nil {
		version = match[1]
	} else if match := suseVersionRegex.FindStringSubmatch(content); match != nil {
		version = match[1]
	}
	return id, version
}
