package main

import (
	"context"
	"errors"
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/steelcutops/pkgmgr/pkgmgr/host"
	"github.com/steelcutops/pkgmgr/pkgmgr/hostgroup"
	"github.com/steelcutops/pkgmgr/pkgmgr/packagemanager"
)

func InstallCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install PACKAGE...",
		Short: "Install packages that are not installed yet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []packagemanager.InstallOption
			if version := v.GetString("version"); version != "" {
				if len(args) > 1 {
					return errors.New("--version needs exactly one package")
				}
				opts = append(opts, packagemanager.WithVersion(version))
			}
			p := newPrinter(cmd.OutOrStdout())
			return runOnHosts(cmd, v, installAction(p, args, opts...))
		},
	}
	cmd.Flags().String("version", "", "install this exact version (Debian only)")
	return cmd
}

func RemoveCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "remove PACKAGE...",
		Short: "Remove installed packages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnHosts(cmd, v, removeAction(newPrinter(cmd.OutOrStdout()), args))
		},
	}
}

func UpgradeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade PACKAGE...",
		Short: "Upgrade packages (SUSE only)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnHosts(cmd, v, upgradeAction(newPrinter(cmd.OutOrStdout()), args))
		},
	}
}

func StatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status PACKAGE...",
		Short: "Show whether packages are installed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnHosts(cmd, v, statusAction(newPrinter(cmd.OutOrStdout()), args))
		},
	}
}

func VersionCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version PACKAGE...",
		Short: "Show installed package versions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := v.GetString("output")
			if err := validateOutputFormat(format); err != nil {
				return err
			}

			collector := &versionCollector{}
			err := runOnHosts(cmd, v, versionAction(collector, args, v.GetString("range")))
			if writeErr := writeVersions(cmd.OutOrStdout(), format, collector.reports); writeErr != nil {
				return writeErr
			}
			return err
		},
	}
	cmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")
	cmd.Flags().String("range", "", "report whether versions satisfy this semver range, e.g. \">=1.2.0 <2.0.0\"")
	return cmd
}

func PlatformCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Show the detected platform and package manager of each host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnHosts(cmd, v, platformAction(newPrinter(cmd.OutOrStdout())))
		},
	}
}

// runOnHosts connects to the configured hosts and runs action on each. Hosts
// that could not be set up are skipped and their errors returned with the
// action errors.
func runOnHosts(cmd *cobra.Command, v *viper.Viper, action hostgroup.Action) error {
	log, release, err := setupLogger(v, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer release()

	s, err := readSecrets(v, cmd.ErrOrStderr(), readTerminalPassword)
	if err != nil {
		return err
	}

	options, err := buildHostOptions(v, s, log)
	if err != nil {
		return err
	}

	names, err := hostnames(v)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	hostGroup, initErr := initializeHosts(ctx, names, log, options...)
	runErr := hostGroup.Run(ctx, action, v.GetInt("concurrency"))

	result := multierror.Append(initErr, runErr).ErrorOrNil()
	if result != nil {
		log.WithError(result).Error("package operation failed")
	}
	return result
}

func installAction(p *printer, pkgs []string, opts ...packagemanager.InstallOption) hostgroup.Action {
	return func(ctx context.Context, h *host.Host) error {
		for _, pkg := range pkgs {
			changed, err := packagemanager.EnsurePresent(ctx, h.PackageManager, pkg, opts...)
			if err != nil {
				return fmt.Errorf("failed to install %s: %w", pkg, err)
			}
			if changed {
				p.line(h.Hostname, successColor, "installed %s", pkg)
			} else {
				p.line(h.Hostname, noticeColor, "%s already installed", pkg)
			}
		}
		return nil
	}
}

func removeAction(p *printer, pkgs []string) hostgroup.Action {
	return func(ctx context.Context, h *host.Host) error {
		for _, pkg := range pkgs {
			changed, err := packagemanager.EnsureAbsent(ctx, h.PackageManager, pkg)
			if err != nil {
				return fmt.Errorf("failed to remove %s: %w", pkg, err)
			}
			if changed {
				p.line(h.Hostname, successColor, "removed %s", pkg)
			} else {
				p.line(h.Hostname, noticeColor, "%s not installed", pkg)
			}
		}
		return nil
	}
}

func upgradeAction(p *printer, pkgs []string) hostgroup.Action {
	return func(ctx context.Context, h *host.Host) error {
		upgrader, ok := h.Upgrader()
		if !ok {
			return &packagemanager.UnsupportedOperationError{Family: h.Family(), Operation: "upgrade"}
		}
		for _, pkg := range pkgs {
			if err := upgrader.UpgradePackage(ctx, pkg); err != nil {
				return fmt.Errorf("failed to upgrade %s: %w", pkg, err)
			}
			p.line(h.Hostname, successColor, "upgraded %s", pkg)
		}
		return nil
	}
}

func statusAction(p *printer, pkgs []string) hostgroup.Action {
	return func(ctx context.Context, h *host.Host) error {
		for _, pkg := range pkgs {
			installed, err := h.IsPackageInstalled(ctx, pkg)
			if err != nil {
				return fmt.Errorf("failed to query %s: %w", pkg, err)
			}
			if installed {
				p.line(h.Hostname, successColor, "%s installed", pkg)
			} else {
				p.line(h.Hostname, noticeColor, "%s not installed", pkg)
			}
		}
		return nil
	}
}

func versionAction(c *versionCollector, pkgs []string, semverRange string) hostgroup.Action {
	return func(ctx context.Context, h *host.Host) error {
		for _, pkg := range pkgs {
			version, err := h.GetInstalledVersion(ctx, pkg)
			if err != nil && !errors.Is(err, packagemanager.ErrNotInstalled) {
				return fmt.Errorf("failed to read version of %s: %w", pkg, err)
			}

			report := versionReport{Host: h.Hostname, Package: pkg, Version: version.Version, Revision: version.Revision}
			if semverRange != "" && version.Version != "" {
				inRange, err := version.InRange(semverRange)
				if err != nil {
					return err
				}
				report.InRange = &inRange
			}
			c.add(report)
		}
		return nil
	}
}

func platformAction(p *printer) hostgroup.Action {
	return func(ctx context.Context, h *host.Host) error {
		p.line(h.Hostname, successColor, "%s (%s)", h.Platform, h.Family())
		return nil
	}
}
