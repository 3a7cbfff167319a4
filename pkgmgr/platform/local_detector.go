package platform

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/host"
)

// LocalDetector reads the platform of the machine this process runs on.
type LocalDetector struct {
	// InfoFunc defaults to gopsutil's host.InfoWithContext.
	InfoFunc func(ctx context.Context) (*host.InfoStat, error)
}

func (d LocalDetector) PlatformString(ctx context.Context) (string, error) {
	info := d.InfoFunc
	if info == nil {
		info = host.InfoWithContext
	}

	stat, err := info(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get os info: %w", err)
	}

	distribution := stat.Platform
	if distribution == "" {
		distribution = stat.OS
	}
	return Token(stat.OS, distribution, stat.PlatformVersion), nil
}
