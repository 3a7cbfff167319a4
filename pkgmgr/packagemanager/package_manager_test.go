package packagemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cm "github.com/steelcutops/pkgmgr/pkgmgr/commandmanager"
)

type MockCommandManager struct {
	mock.Mock
	Configs []cm.CommandConfig
}

func (m *MockCommandManager) Run(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	m.Configs = append(m.Configs, config)
	args := m.Called(config.String())
	return args.Get(0).(cm.CommandResult), args.Error(1)
}

func (m *MockCommandManager) RunLocal(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	return m.Run(ctx, config)
}

func (m *MockCommandManager) RunRemote(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	return m.Run(ctx, config)
}

func success(stdout string) cm.CommandResult {
	return cm.CommandResult{STDOUT: stdout}
}

func exited(code int, stdout, stderr string) cm.CommandResult {
	return cm.CommandResult{ExitCode: code, STDOUT: stdout, STDERR: stderr}
}

func TestDebianPackageManager(t *testing.T) {
	ctx := context.Background()
	mockRunner := new(MockCommandManager)
	pm := NewDebianPackageManager(mockRunner, WithSudo(true))
	assert.Equal(t, FamilyDebian, pm.Family())

	// Test: InstallPackage
	mockRunner.On("Run", "apt-get install -y -o Dpkg::Options::=--force-confdef -o Dpkg::Options::=--force-confold zlib1g").Return(success(""), nil).Once()
	require.NoError(t, pm.InstallPackage(ctx, "zlib1g"))
	install := mockRunner.Configs[len(mockRunner.Configs)-1]
	assert.True(t, install.Sudo)
	assert.Equal(t, []string{"DEBIAN_FRONTEND=noninteractive"}, install.Env)
	assert.Equal(t, DefaultInstallTimeout, install.Timeout)

	// Test: RemovePackage
	mockRunner.On("Run", "apt-get remove -y zlib1g").Return(success(""), nil).Once()
	require.NoError(t, pm.RemovePackage(ctx, "zlib1g"))

	// Test: GetInstalledVersion
	mockRunner.On("Run", "dpkg-query -s zlib1g").Return(success(dpkgStatusZlib), nil).Once()
	version, err := pm.GetInstalledVersion(ctx, "zlib1g")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"version": "1:1.2.8.dfsg-1ubuntu1"}, version.Map())
	query := mockRunner.Configs[len(mockRunner.Configs)-1]
	assert.False(t, query.Sudo)
	assert.Equal(t, DefaultQueryTimeout, query.Timeout)

	// Test: GetInstalledVersion of an unknown package
	mockRunner.On("Run", "dpkg-query -s nope").Return(exited(1, "", "dpkg-query: package 'nope' is not installed and no information is available\n"), nil).Once()
	version, err = pm.GetInstalledVersion(ctx, "nope")
	require.NoError(t, err)
	assert.Equal(t, InstalledVersion{}, version)

	mockRunner.AssertExpectations(t)
}

func TestDebianIsPackageInstalled(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		result    cm.CommandResult
		installed bool
		err       error
	}{
		{"installed", success(dpkgListHeader + "ii  zlib1g:amd64   1:1.2.8.dfsg-1ubuntu1  amd64        compression library\n"), true, nil},
		{"config files only", success(dpkgListHeader + "rc  vim-tiny       2:8.0.1453-1ubuntu1    amd64        Vi IMproved\n"), false, nil},
		{"not found", exited(1, "", "dpkg-query: no packages found matching pkg\n"), false, nil},
		{"no package row", success(dpkgListHeader), false, ErrUnexpectedOutput},
		{"other failure", exited(2, "", "dpkg-query: error: failed to open package info file\n"), false, ErrUnexpectedOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRunner := new(MockCommandManager)
			mockRunner.On("Run", "dpkg-query -l pkg").Return(tt.result, nil)

			installed, err := NewDebianPackageManager(mockRunner).IsPackageInstalled(ctx, "pkg")
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.installed, installed)
		})
	}
}

func TestDebianIsPackageInstalledWithAptitude(t *testing.T) {
	ctx := context.Background()
	mockRunner := new(MockCommandManager)
	pm := NewDebianPackageManager(mockRunner, WithStatusQuery(StatusQueryAptitude))

	mockRunner.On("Run", "aptitude show zlib1g").Return(success("Package: zlib1g\nState: installed\n"), nil).Once()
	installed, err := pm.IsPackageInstalled(ctx, "zlib1g")
	require.NoError(t, err)
	assert.True(t, installed)

	mockRunner.On("Run", "aptitude show nginx").Return(success("Package: nginx\nState: not installed\n"), nil).Once()
	installed, err = pm.IsPackageInstalled(ctx, "nginx")
	require.NoError(t, err)
	assert.False(t, installed)

	mockRunner.On("Run", "aptitude show nope").Return(success("Couldn't find any package whose name or description matched \"nope\"\n"), nil).Once()
	installed, err = pm.IsPackageInstalled(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, installed)

	mockRunner.AssertExpectations(t)
}

func TestDebianInstallPinnedVersion(t *testing.T) {
	ctx := context.Background()

	// A different version is installed: remove, then install pkg=version.
	mockRunner := new(MockCommandManager)
	mockRunner.On("Run", "dpkg-query -s zlib1g").Return(success("Version: 1:1.2.8.dfsg-1ubuntu1\n"), nil).Once()
	mockRunner.On("Run", "apt-get remove -y zlib1g").Return(success(""), nil).Once()
	mockRunner.On("Run", "apt-get install -y -o Dpkg::Options::=--force-confdef -o Dpkg::Options::=--force-confold zlib1g=1:1.2.11.dfsg-0ubuntu2").Return(success(""), nil).Once()

	err := NewDebianPackageManager(mockRunner).InstallPackage(ctx, "zlib1g", WithVersion("1:1.2.11.dfsg-0ubuntu2"))
	require.NoError(t, err)
	mockRunner.AssertExpectations(t)

	// Nothing installed: no removal.
	mockRunner = new(MockCommandManager)
	mockRunner.On("Run", "dpkg-query -s zlib1g").Return(exited(1, "", "package 'zlib1g' is not installed"), nil).Once()
	mockRunner.On("Run", "apt-get install -y -o Dpkg::Options::=--force-confdef -o Dpkg::Options::=--force-confold zlib1g=1:1.2.11.dfsg-0ubuntu2").Return(success(""), nil).Once()

	err = NewDebianPackageManager(mockRunner).InstallPackage(ctx, "zlib1g", WithVersion("1:1.2.11.dfsg-0ubuntu2"))
	require.NoError(t, err)
	mockRunner.AssertExpectations(t)
	mockRunner.AssertNotCalled(t, "Run", "apt-get remove -y zlib1g")

	// Removal fails: install is not attempted.
	mockRunner = new(MockCommandManager)
	mockRunner.On("Run", "dpkg-query -s zlib1g").Return(success("Version: 1:1.2.8.dfsg-1ubuntu1\n"), nil).Once()
	mockRunner.On("Run", "apt-get remove -y zlib1g").Return(exited(100, "", "E: Could not get lock /var/lib/dpkg/lock"), nil).Once()

	err = NewDebianPackageManager(mockRunner).InstallPackage(ctx, "zlib1g", WithVersion("1:1.2.11.dfsg-0ubuntu2"))
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Len(t, mockRunner.Configs, 2)
}

func TestDebianInstallFailure(t *testing.T) {
	mockRunner := new(MockCommandManager)
	mockRunner.On("Run", "apt-get install -y -o Dpkg::Options::=--force-confdef -o Dpkg::Options::=--force-confold nope").
		Return(exited(100, "", "E: Unable to locate package nope\n"), nil)

	err := NewDebianPackageManager(mockRunner).InstallPackage(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Contains(t, err.Error(), "exit code 100")
	assert.Contains(t, err.Error(), "Unable to locate package nope")

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 100, cmdErr.Result.ExitCode)
}

func TestRunnerTimeout(t *testing.T) {
	mockRunner := new(MockCommandManager)
	mockRunner.On("Run", "rpm -q bash").Return(cm.CommandResult{}, cm.ErrTimeout)

	_, err := NewRedHatPackageManager(mockRunner, WithTimeouts(Timeouts{Query: time.Second})).IsPackageInstalled(context.Background(), "bash")
	assert.ErrorIs(t, err, cm.ErrTimeout)
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Equal(t, time.Second, mockRunner.Configs[0].Timeout)
}

func TestRpmIsPackageInstalled(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		result    cm.CommandResult
		installed bool
		err       error
	}{
		{"installed", success("foo-1.2-3.el7\n"), true, nil},
		{"not installed", exited(1, "package foo is not installed\n", ""), false, nil},
		{"other exit code", exited(2, "", "error: rpmdb open failed\n"), false, ErrUnexpectedOutput},
		{"exit 1 without marker", exited(1, "", "error: cannot open Packages database\n"), false, ErrUnexpectedOutput},
	}

	backends := map[string]func(cm.CommandManager) PackageManager{
		"redhat": func(r cm.CommandManager) PackageManager { return NewRedHatPackageManager(r) },
		"suse":   func(r cm.CommandManager) PackageManager { return NewSusePackageManager(r) },
	}

	for family, newBackend := range backends {
		for _, tt := range tests {
			t.Run(family+"/"+tt.name, func(t *testing.T) {
				mockRunner := new(MockCommandManager)
				mockRunner.On("Run", "rpm -q foo").Return(tt.result, nil)

				installed, err := newBackend(mockRunner).IsPackageInstalled(ctx, "foo")
				if tt.err != nil {
					assert.ErrorIs(t, err, tt.err)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.installed, installed)
			})
		}
	}
}

func TestRpmGetInstalledVersion(t *testing.T) {
	ctx := context.Background()
	mockRunner := new(MockCommandManager)
	pm := NewRedHatPackageManager(mockRunner)

	mockRunner.On("Run", "rpm -q foo --queryformat=%{version}-%{release}").Return(success("4.8-7.el7"), nil).Once()
	version, err := pm.GetInstalledVersion(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"version": "4.8-7.el7"}, version.Map())

	mockRunner.On("Run", "rpm -q bar --queryformat=%{version}-%{release}").Return(exited(1, "package bar is not installed\n", ""), nil).Once()
	_, err = pm.GetInstalledVersion(ctx, "bar")
	assert.ErrorIs(t, err, ErrNotInstalled)

	mockRunner.On("Run", "rpm -q baz --queryformat=%{version}-%{release}").Return(exited(2, "", "error: rpmdb open failed\n"), nil).Once()
	_, err = pm.GetInstalledVersion(ctx, "baz")
	assert.ErrorIs(t, err, ErrUnexpectedOutput)

	mockRunner.AssertExpectations(t)
}

func TestRedHatPackageManager(t *testing.T) {
	ctx := context.Background()
	mockRunner := new(MockCommandManager)
	pm := NewRedHatPackageManager(mockRunner, WithSudo(true), WithTimeouts(Timeouts{Install: time.Minute}))
	assert.Equal(t, FamilyRedHat, pm.Family())

	// Test: InstallPackage
	mockRunner.On("Run", "yum install -y tmux").Return(success(""), nil).Once()
	require.NoError(t, pm.InstallPackage(ctx, "tmux"))
	assert.Equal(t, time.Minute, mockRunner.Configs[0].Timeout)
	assert.True(t, mockRunner.Configs[0].Sudo)
	assert.Empty(t, mockRunner.Configs[0].Env)

	// Test: RemovePackage
	mockRunner.On("Run", "yum remove -y tmux").Return(exited(1, "", "Error: No Match for argument: tmux\n"), nil).Once()
	assert.ErrorIs(t, pm.RemovePackage(ctx, "tmux"), ErrCommandFailed)

	// Test: pinned install is rejected before running anything
	err := pm.InstallPackage(ctx, "tmux", WithVersion("1.8-4.el7"))
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	assert.Len(t, mockRunner.Configs, 2)

	mockRunner.AssertExpectations(t)
}

func TestRedHatIsPackageInstalledWithYumInfo(t *testing.T) {
	ctx := context.Background()
	mockRunner := new(MockCommandManager)
	pm := NewRedHatPackageManager(mockRunner, WithStatusQuery(StatusQueryYumInfo))

	mockRunner.On("Run", "yum info bash").Return(success(yumInfoInstalledOutput), nil).Once()
	installed, err := pm.IsPackageInstalled(ctx, "bash")
	require.NoError(t, err)
	assert.True(t, installed)

	mockRunner.On("Run", "yum info tmux").Return(success(yumInfoAvailable), nil).Once()
	installed, err = pm.IsPackageInstalled(ctx, "tmux")
	require.NoError(t, err)
	assert.False(t, installed)

	mockRunner.On("Run", "yum info nope").Return(exited(1, "", "Error: No matching Packages to list\n"), nil).Once()
	installed, err = pm.IsPackageInstalled(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, installed)

	mockRunner.On("Run", "yum info broken").Return(success("Loaded plugins: fastestmirror\n"), nil).Once()
	_, err = pm.IsPackageInstalled(ctx, "broken")
	assert.ErrorIs(t, err, ErrUnexpectedOutput)

	mockRunner.AssertExpectations(t)
}

func TestSusePackageManager(t *testing.T) {
	ctx := context.Background()
	mockRunner := new(MockCommandManager)
	pm := NewSusePackageManager(mockRunner)
	assert.Equal(t, FamilySuse, pm.Family())

	mockRunner.On("Run", "zypper --non-interactive --no-gpg-checks install --auto-agree-with-licenses vim").Return(success(""), nil).Once()
	require.NoError(t, pm.InstallPackage(ctx, "vim"))

	mockRunner.On("Run", "zypper --non-interactive --no-gpg-checks update --auto-agree-with-licenses vim").Return(success(""), nil).Once()
	require.NoError(t, pm.UpgradePackage(ctx, "vim"))

	mockRunner.On("Run", "zypper --non-interactive --no-gpg-checks remove vim").Return(success(""), nil).Once()
	require.NoError(t, pm.RemovePackage(ctx, "vim"))

	assert.ErrorIs(t, pm.InstallPackage(ctx, "vim", WithVersion("9.0")), ErrUnsupportedOperation)

	var upgrader Upgrader = pm
	assert.NotNil(t, upgrader)

	mockRunner.AssertExpectations(t)
}

func TestSolarisPackageManager(t *testing.T) {
	ctx := context.Background()
	mockRunner := new(MockCommandManager)
	pm := NewSolarisPackageManager(mockRunner)
	assert.Equal(t, FamilySolaris, pm.Family())

	mockRunner.On("Run", "pkginfo SUNWbash").Return(success("system      SUNWbash       GNU Bourne-Again shell (bash)\n"), nil).Once()
	installed, err := pm.IsPackageInstalled(ctx, "SUNWbash")
	require.NoError(t, err)
	assert.True(t, installed)

	mockRunner.On("Run", "pkginfo SUNWnope").Return(exited(1, "", "ERROR: information for \"SUNWnope\" was not found\n"), nil).Once()
	installed, err = pm.IsPackageInstalled(ctx, "SUNWnope")
	require.NoError(t, err)
	assert.False(t, installed)

	mockRunner.On("Run", "pkginfo SUNWodd").Return(exited(2, "", "pkginfo: ERROR: unable to open database\n"), nil).Once()
	_, err = pm.IsPackageInstalled(ctx, "SUNWodd")
	assert.ErrorIs(t, err, ErrUnexpectedOutput)

	mockRunner.On("Run", "pkginfo -l SUNWbash").Return(success("   VERSION:  11.10.0,REV=2005.01.08.05.16\n"), nil).Once()
	version, err := pm.GetInstalledVersion(ctx, "SUNWbash")
	require.NoError(t, err)
	assert.Equal(t, InstalledVersion{Version: "11.10.0", Revision: "2005.01.08.05.16"}, version)

	mockRunner.On("Run", "pkginfo -l SUNWempty").Return(success("   PKGINST:  SUNWempty\n"), nil).Once()
	version, err = pm.GetInstalledVersion(ctx, "SUNWempty")
	require.NoError(t, err)
	assert.Equal(t, InstalledVersion{}, version)

	mockRunner.On("Run", "pkginfo -l SUNWnope").Return(exited(1, "", "ERROR: information for \"SUNWnope\" was not found\n"), nil).Once()
	_, err = pm.GetInstalledVersion(ctx, "SUNWnope")
	assert.ErrorIs(t, err, ErrCommandFailed)

	mockRunner.AssertExpectations(t)
}

func TestSolarisInstallAndRemoveUnsupported(t *testing.T) {
	ctx := context.Background()
	mockRunner := new(MockCommandManager)
	pm := NewSolarisPackageManager(mockRunner)

	for _, pkg := range []string{"SUNWbash", "", "anything"} {
		assert.ErrorIs(t, pm.InstallPackage(ctx, pkg), ErrUnsupportedOperation)
		assert.ErrorIs(t, pm.InstallPackage(ctx, pkg, WithVersion("1.0")), ErrUnsupportedOperation)
		assert.ErrorIs(t, pm.RemovePackage(ctx, pkg), ErrUnsupportedOperation)
	}

	mockRunner.AssertNotCalled(t, "Run", mock.Anything)
	assert.Empty(t, mockRunner.Configs)
}

func TestEmptyPackageName(t *testing.T) {
	ctx := context.Background()
	mockRunner := new(MockCommandManager)

	for _, pm := range []PackageManager{
		NewDebianPackageManager(mockRunner),
		NewRedHatPackageManager(mockRunner),
		NewSusePackageManager(mockRunner),
	} {
		assert.ErrorIs(t, pm.InstallPackage(ctx, ""), ErrInvalidPackage)
		assert.ErrorIs(t, pm.RemovePackage(ctx, ""), ErrInvalidPackage)
		_, err := pm.IsPackageInstalled(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidPackage)
		_, err = pm.GetInstalledVersion(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidPackage)
	}
	assert.Empty(t, mockRunner.Configs)
}

func TestIsPackageInstalledIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mockRunner := new(MockCommandManager)
	mockRunner.On("Run", "rpm -q foo").Return(success("foo-1.2-3.el7\n"), nil).Twice()
	pm := NewRedHatPackageManager(mockRunner)

	first, err := pm.IsPackageInstalled(ctx, "foo")
	require.NoError(t, err)
	second, err := pm.IsPackageInstalled(ctx, "foo")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	mockRunner.AssertExpectations(t)
}
