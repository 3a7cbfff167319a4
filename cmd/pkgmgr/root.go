package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/steelcutops/pkgmgr/logger"
	"github.com/steelcutops/pkgmgr/pkgmgr/packagemanager"
)

func RootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "pkgmgr",
		Short: "Query and change packages on many hosts",
		Long: `pkgmgr drives the native package tools (apt/dpkg, yum, zypper, rpm,
pkginfo) of local or SSH-reachable hosts through one set of commands.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return initConfig(v)
		},
	}

	addConnectionFlags(cmd.PersistentFlags())
	if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
		panic(err)
	}
	v.SetEnvPrefix("PKGMGR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd.AddCommand(
		InstallCmd(v),
		RemoveCmd(v),
		UpgradeCmd(v),
		StatusCmd(v),
		VersionCmd(v),
		PlatformCmd(v),
	)

	return cmd
}

func addConnectionFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file (yaml, toml, json or ini) with flag values")
	flags.StringSlice("hostname", nil, "host to connect to, repeatable (default localhost)")
	flags.String("inventory", "", "path to an INI file listing hosts by group")
	flags.String("username", "", "username for SSH connections")
	flags.Bool("password", false, "prompt for an SSH password")
	flags.Bool("keypass", false, "prompt for the SSH key passphrase")
	flags.Bool("sudo-password", false, "prompt for the sudo password")
	flags.Bool("sudo", false, "run installs and removals through sudo")
	flags.String("known-hosts", "", "verify SSH host keys against this known_hosts file")
	flags.String("platform", "", "skip detection and use this platform, e.g. linux-ubuntu-22.04")
	flags.String("status-query", "", "tool for installed checks: aptitude (Debian) or yum-info (RedHat)")
	flags.Int("concurrency", 10, "maximum number of hosts worked on at once")
	flags.Duration("query-timeout", packagemanager.DefaultQueryTimeout, "timeout for package queries")
	flags.Duration("install-timeout", packagemanager.DefaultInstallTimeout, "timeout for installs and removals")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("log-file", "", "append logs to this file instead of stderr")
}

func initConfig(v *viper.Viper) error {
	path := v.GetString("config")
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// setupLogger returns the logger for this run and a function releasing its
// log file, if any.
func setupLogger(v *viper.Viper, stderr io.Writer) (*logrus.Logger, func(), error) {
	debug := v.GetBool("debug")

	path := v.GetString("log-file")
	if path == "" {
		return logger.New(stderr, debug), func() {}, nil
	}

	log, file, err := logger.NewFile(path, debug)
	if err != nil {
		return nil, nil, err
	}
	return log, func() { file.Close() }, nil
}

func packageManagerOptions(v *viper.Viper) []packagemanager.Option {
	return []packagemanager.Option{
		packagemanager.WithSudo(v.GetBool("sudo")),
		packagemanager.WithStatusQuery(packagemanager.StatusQuery(v.GetString("status-query"))),
		packagemanager.WithTimeouts(packagemanager.Timeouts{
			Query:   v.GetDuration("query-timeout"),
			Install: v.GetDuration("install-timeout"),
		}),
	}
}

