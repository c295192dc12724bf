package dashboard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/config"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/host"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/release"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/templates"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/templating"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/testutil"
)

const dpkgOptions = "--option Dpkg::Options::=--force-confnew --option Dpkg::Options::=--force-confdef"

func TestInstallPackagePath(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.OpenStackOrigin = "cloud:trusty-icehouse" })
	h.packages.versions[VersionPackage] = "1:2014.1.5-0ubuntu2"

	require.NoError(t, h.charm.Install(context.Background()))

	assert.Equal(t, []string{
		"add-source cloud:trusty-icehouse",
		"update",
		"dist-upgrade " + dpkgOptions,
		"install " + strings.Join(PackagesFor(release.Icehouse, false), " "),
	}, h.packages.calls)
	assert.Equal(t, release.Icehouse, h.renderer.release)
	assert.Equal(t, append(append([]string{}, basePaths...), legacyPaths...), h.renderer.paths())
	assert.Equal(t, []string{"application-version-set 1:2014.1.5-0ubuntu2"}, h.ran("application-version-set"))
	assert.Empty(t, h.source.projects)
}

func TestInstallAbortsOnPackageFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.packages.failOn = "update"

	err := h.charm.Install(context.Background())
	var cmdErr *host.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, []string{"add-source distro", "update"}, h.packages.calls)
	assert.Empty(t, h.renderer.registered)
	assert.Empty(t, h.ran("application-version-set"))
}

func TestInstallUnknownRelease(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.OpenStackOrigin = "cloud:trusty-bogus" })

	err := h.charm.Install(context.Background())
	require.Error(t, err)
	assert.True(t, release.IsUnknownReleaseError(err))
	assert.Empty(t, h.packages.calls)
}

func TestInstallSourcePath(t *testing.T) {
	projects := "repositories:\n  - {name: requirements, repository: 'git://r', branch: master}\n"
	h := newHarness(t, func(c *config.Config) {
		c.OpenStackOrigin = "cloud:trusty-kilo"
		c.OpenStackOriginGit = projects
	})

	require.NoError(t, h.charm.Install(context.Background()))

	assert.Equal(t, []string{
		"add-source cloud:trusty-kilo",
		"update",
		"install " + strings.Join(PackagesFor(release.Kilo, true), " "),
	}, h.packages.calls)
	assert.Equal(t, []string{projects}, h.source.projects)
	assert.NotEmpty(t, h.renderer.registered)
	assert.Empty(t, h.ran("application-version-set"))
}

func TestUpgrade(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.OpenStackOrigin = "cloud:precise-havana"
		c.Series = "precise"
	})
	h.packages.versions[VersionPackage] = "1:2013.2-0ubuntu1"

	require.NoError(t, h.charm.Upgrade(context.Background()))

	assert.Equal(t, []string{
		"add-source cloud:precise-havana",
		"update",
		"dist-upgrade " + dpkgOptions,
		"install " + strings.Join(PackagesFor(release.Havana, false), " "),
	}, h.packages.calls)
	assert.Equal(t, release.Havana, h.renderer.release)
	assert.Equal(t, 1, h.renderer.writes)
	assert.Len(t, h.ran("juju-log"), 1)
	assert.Contains(t, h.statuses(), "maintenance Performing OpenStack upgrade")
}

func TestUpgradeCharmInstallsForInstalledRelease(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.OpenStackOrigin = "cloud:trusty-juno" })
	h.packages.versions[VersionPackage] = "1:2014.1.5-0ubuntu2"

	require.NoError(t, h.charm.UpgradeCharm(context.Background()))

	require.NotEmpty(t, h.packages.calls)
	assert.Equal(t, "install "+strings.Join(PackagesFor(release.Icehouse, false), " "), h.packages.calls[0])
	assert.NotContains(t, h.packages.calls, "dist-upgrade "+dpkgOptions)
	assert.Equal(t, release.Icehouse, h.renderer.release)
	assert.Equal(t, 1, h.renderer.writes)
	assert.NotEmpty(t, h.statuses())
}

func TestActiveConfigsUsesInstalledRelease(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.OpenStackOrigin = "cloud:trusty-juno" })
	h.packages.versions[VersionPackage] = "1:2014.1.5-0ubuntu2"

	table, err := h.charm.ActiveConfigs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, append(append([]string{}, basePaths...), legacyPaths...), table.Paths())
	assert.Empty(t, h.renderer.registered)
	assert.Empty(t, h.packages.calls)
}

func TestUpgradeAvailable(t *testing.T) {
	tests := []struct {
		name      string
		origin    string
		series    string
		git       string
		installed string
		want      bool
	}{
		{name: "newer cloud archive", origin: "cloud:trusty-juno", installed: "1:2014.1.5-0ubuntu2", want: true},
		{name: "same release", origin: "cloud:trusty-icehouse", installed: "1:2014.1.5-0ubuntu2"},
		{name: "older origin", origin: "cloud:trusty-icehouse", installed: "1:2014.2-0ubuntu1"},
		{name: "not installed", origin: "cloud:trusty-juno"},
		{name: "distro on noble", origin: "distro", series: "noble", installed: "4:24.0.0-0ubuntu1"},
		{name: "antelope to bobcat", origin: "cloud:jammy-bobcat", installed: "4:23.1.0-0ubuntu1", want: true},
		{name: "source install", origin: "cloud:trusty-juno", git: "repositories: []", installed: "1:2014.1.5-0ubuntu2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(c *config.Config) {
				c.OpenStackOrigin = tt.origin
				c.OpenStackOriginGit = tt.git
				if tt.series != "" {
					c.Series = tt.series
				}
			})
			if tt.installed != "" {
				h.packages.versions[VersionPackage] = tt.installed
			}
			got, err := h.charm.UpgradeAvailable(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRestartOnChange(t *testing.T) {
	h := newHarness(t, nil)
	h.sys.touch(PortsConf, "Listen 70\n")
	h.sys.touch(LocalSettings, "DEBUG = False\n")

	err := h.charm.RestartOnChange(context.Background(), FullRestartMap(), func(context.Context) error {
		h.sys.touch(PortsConf, "Listen 70\n")
		h.sys.touch(HAProxyConf, "global\n")
		h.sys.touch(LocalSettings, "DEBUG = True\n")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"systemctl restart apache2",
		"systemctl restart memcached",
		"systemctl restart haproxy",
	}, h.ran("systemctl restart"))
}

func TestRestartOnChangeWithoutChanges(t *testing.T) {
	h := newHarness(t, nil)
	h.sys.touch(PortsConf, "Listen 70\n")

	err := h.charm.RestartOnChange(context.Background(), FullRestartMap(), func(context.Context) error {
		h.sys.touch(PortsConf, "Listen 70\n")
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, h.ran("systemctl"))
}

func TestRestartOnChangeWhilePaused(t *testing.T) {
	h := newHarness(t, nil)
	h.sys.touch(h.charm.pausedMarker(), "")

	err := h.charm.RestartOnChange(context.Background(), FullRestartMap(), func(context.Context) error {
		h.sys.touch(HAProxyConf, "global\n")
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, h.ran("systemctl"))
}

func TestRestartOnChangePropagatesErrors(t *testing.T) {
	h := newHarness(t, nil)
	boom := errors.New("render failed")
	err := h.charm.RestartOnChange(context.Background(), FullRestartMap(), func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}

func TestEnableSSLIsNonFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.runner.On("a2ensite", testutil.Response{Err: errors.New("site not found")})

	h.charm.EnableSSL(context.Background())
	assert.Equal(t, []string{"a2ensite default-ssl", "a2enmod ssl"}, h.runner.Lines())
}

func TestStartAndStop(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.charm.Stop(context.Background()))
	assert.Equal(t, []string{
		"systemctl stop apache2",
		"systemctl stop memcached",
		"systemctl stop haproxy",
	}, h.ran("systemctl stop"))

	require.NoError(t, h.charm.Start(context.Background()))
	assert.Len(t, h.ran("systemctl start"), 3)
}

// keystoneRelation answers relation queries as a related keystone and one peer.
func keystoneRelation(r *testutil.FakeRunner) {
	r.On("relation-ids --format=json identity-service", testutil.Response{Stdout: `["identity-service:4"]`}).
		On("relation-list --format=json -r identity-service:4", testutil.Response{Stdout: `["keystone/0"]`}).
		On("relation-get --format=json -r identity-service:4 - keystone/0", testutil.Response{
			Stdout: `{"service_host":"10.0.0.10","service_port":"5000","service_protocol":"https","api_version":"3","admin_domain_id":"abc123"}`,
		}).
		On("relation-ids --format=json cluster", testutil.Response{Stdout: `["cluster:1"]`}).
		On("relation-list --format=json -r cluster:1", testutil.Response{Stdout: `["openstack-dashboard/1"]`}).
		On("relation-get --format=json -r cluster:1 - openstack-dashboard/1", testutil.Response{Stdout: `{"private-address":"10.0.0.2"}`}).
		On("unit-get --format=json private-address", testutil.Response{Stdout: `"10.0.0.1"`})
}

func TestConfigChangedRendersEveryActiveFile(t *testing.T) {
	h := newHarness(t, nil)
	h.sys.dirs[ApacheDir] = true
	h.sys.touch(ApacheConf, "stale")
	h.packages.revision = 1
	h.packages.versions[VersionPackage] = "2:9.0.0-0ubuntu1"
	keystoneRelation(h.runner)

	renderer := templating.New(h.sys, templates.FS(), release.Icehouse, nil)
	h.charm = New(Options{Config: h.cfg, UnitName: "openstack-dashboard/0"}, h.deps(renderer), nil)

	require.NoError(t, h.charm.ConfigChanged(context.Background()))

	assert.Equal(t, release.Mitaka, renderer.Release())
	assert.NotContains(t, h.sys.files, ApacheConf)
	for _, p := range []string{LocalSettings, HAProxyConf, PortsConf, Apache24Conf, Apache24SSL, Apache24Default, KeystoneV3Policy} {
		data, ok := h.sys.files[p]
		require.True(t, ok, p)
		assert.NotContains(t, string(data), "<no value>", p)
	}
	settings := string(h.sys.files[LocalSettings])
	assert.Contains(t, settings, `OPENSTACK_HOST = "10.0.0.10"`)
	assert.Contains(t, settings, "https://%s:5000/v3")
	assert.Contains(t, settings, "OPENSTACK_KEYSTONE_MULTIDOMAIN_SUPPORT = True")
	assert.Contains(t, h.sys.files, h.cfg.StateDir+"/secret-key")

	haproxy := string(h.sys.files[HAProxyConf])
	assert.Contains(t, haproxy, "server openstack-dashboard-0 10.0.0.1:70 check")
	assert.Contains(t, haproxy, "server openstack-dashboard-1 10.0.0.2:433 check")

	assert.Equal(t, []string{
		"systemctl restart apache2",
		"systemctl restart memcached",
		"systemctl restart haproxy",
	}, h.ran("systemctl restart"))
	assert.Equal(t, []string{"open-port 80/tcp", "open-port 443/tcp"}, h.ran("open-port"))
	assert.Equal(t, []string{"active Unit is ready"}, h.statuses())
	assert.Equal(t, []string{"application-version-set 2:9.0.0-0ubuntu1"}, h.ran("application-version-set"))
}

func TestConfigChangedUpgradesWhenOriginMovesForward(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.OpenStackOrigin = "cloud:trusty-juno" })
	h.packages.versions[VersionPackage] = "1:2014.1.5-0ubuntu2"

	require.NoError(t, h.charm.ConfigChanged(context.Background()))
	assert.Contains(t, h.packages.calls, "dist-upgrade "+dpkgOptions)
	assert.Equal(t, 1, h.renderer.writes)
}

func TestConfigChangedOnReleaseWithoutPatchLevel(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.OpenStackOrigin = "cloud:trusty-icehouse" })
	h.packages.versions[VersionPackage] = "1:2014.1-0ubuntu1"

	require.NoError(t, h.charm.ConfigChanged(context.Background()))
	assert.NotContains(t, h.packages.calls, "dist-upgrade "+dpkgOptions)
	assert.Equal(t, release.Icehouse, h.renderer.release)
	assert.Equal(t, 1, h.renderer.writes)
}
