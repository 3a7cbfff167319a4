package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
	"gopkg.in/ini.v1"

	cm "github.com/steelcutops/pkgmgr/pkgmgr/commandmanager"
	"github.com/steelcutops/pkgmgr/pkgmgr/host"
	"github.com/steelcutops/pkgmgr/pkgmgr/hostgroup"
)

type secrets struct {
	Password      string
	KeyPassphrase string
	SudoPassword  string
}

type passwordReader func() ([]byte, error)

func readTerminalPassword() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func readHostsFromFile(filePath string) (map[string][]string, error) {
	cfg, err := ini.Load(filePath)
	if err != nil {
		return nil, err
	}

	hosts := make(map[string][]string)

	for _, section := range cfg.Sections() {
		name := section.Name()
		for _, key := range section.Keys() {
			hosts[name] = append(hosts[name], key.String())
		}
	}

	return hosts, nil
}

// readSecrets prompts for every secret whose prompt flag is set.
func readSecrets(v *viper.Viper, prompt io.Writer, read passwordReader) (secrets, error) {
	var s secrets
	prompts := []struct {
		flag   string
		label  string
		target *string
	}{
		{"password", "password", &s.Password},
		{"keypass", "key passphrase", &s.KeyPassphrase},
		{"sudo-password", "sudo password", &s.SudoPassword},
	}

	for _, p := range prompts {
		if !v.GetBool(p.flag) {
			continue
		}
		fmt.Fprintf(prompt, "Enter the %s: ", p.label)
		value, err := read()
		fmt.Fprintln(prompt)
		if err != nil {
			return secrets{}, fmt.Errorf("failed to read %s: %w", p.label, err)
		}
		*p.target = string(value)
	}
	return s, nil
}

func buildHostOptions(v *viper.Viper, s secrets, log logrus.FieldLogger) ([]host.HostOption, error) {
	options := []host.HostOption{
		host.WithLogger(log),
		host.WithSSHClient(cm.RealSSHClient{}),
		host.WithPackageManagerOptions(packageManagerOptions(v)...),
	}
	if username := v.GetString("username"); username != "" {
		options = append(options, host.WithUser(username))
	}
	if s.Password != "" {
		options = append(options, host.WithPassword(s.Password))
	}
	if s.KeyPassphrase != "" {
		options = append(options, host.WithKeyPassphrase(s.KeyPassphrase))
	}
	if s.SudoPassword != "" {
		options = append(options, host.WithSudoPassword(s.SudoPassword))
	}
	if platform := v.GetString("platform"); platform != "" {
		options = append(options, host.WithPlatform(platform))
	}
	if path := v.GetString("known-hosts"); path != "" {
		callback, err := knownhosts.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
		options = append(options, host.WithHostKeyCallback(callback))
	}
	return options, nil
}

// hostnames merges the inventory groups with --hostname, defaulting to
// localhost. Duplicates are dropped.
func hostnames(v *viper.Viper) ([]string, error) {
	var names []string

	if path := v.GetString("inventory"); path != "" {
		groups, err := readHostsFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read inventory: %w", err)
		}
		groupNames := make([]string, 0, len(groups))
		for group := range groups {
			groupNames = append(groupNames, group)
		}
		sort.Strings(groupNames)
		for _, group := range groupNames {
			names = append(names, groups[group]...)
		}
	}
	names = append(names, v.GetStringSlice("hostname")...)

	if len(names) == 0 {
		return []string{"localhost"}, nil
	}

	seen := make(map[string]bool)
	unique := names[:0]
	for _, name := range names {
		if name != "" && !seen[name] {
			seen[name] = true
			unique = append(unique, name)
		}
	}
	return unique, nil
}

// initializeHosts connects to every host. Hosts that fail are logged and
// reported in the returned error; the group holds the rest.
func initializeHosts(ctx context.Context, names []string, log logrus.FieldLogger, options ...host.HostOption) (*hostgroup.HostGroup, error) {
	hostGroup := hostgroup.NewHostGroup()
	var result *multierror.Error

	for _, hostname := range names {
		log.WithField("host", hostname).Debug("adding host")
		server, err := host.NewHost(ctx, hostname, options...)
		if err != nil {
			log.WithField("host", hostname).WithError(err).Error("failed to create host")
			result = multierror.Append(result, fmt.Errorf("host %s: %w", hostname, err))
			continue
		}
		hostGroup.AddHost(server)
	}

	return hostGroup, result.ErrorOrNil()
}
