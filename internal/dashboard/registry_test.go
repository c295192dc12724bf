package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/apt"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/config"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/release"
)

var (
	basePaths    = []string{LocalSettings, HAProxyConf, PortsConf}
	legacyPaths  = []string{ApacheDefault, ApacheConf, ApacheSSL}
	currentPaths = []string{Apache24Default, Apache24Conf, Apache24SSL}
)

func assertServiceSets(t *testing.T, m RestartMap) {
	t.Helper()
	for _, p := range m.Paths() {
		if p == HAProxyConf {
			assert.Equal(t, []string{"haproxy"}, m.Services(p), p)
			continue
		}
		assert.Equal(t, []string{"apache2", "memcached"}, m.Services(p), p)
	}
}

func TestRegisterLegacyLayout(t *testing.T) {
	h := newHarness(t, nil)
	h.sys.dirs[ApacheDir] = true
	h.packages.revision = -1

	m, err := h.charm.Registry().Register(context.Background(), release.Havana)
	require.NoError(t, err)

	want := append(append([]string{}, basePaths...), legacyPaths...)
	assert.Equal(t, want, m.Paths())
	assert.Equal(t, want, h.renderer.paths())
	assertServiceSets(t, m)
	assert.Equal(t, 1, h.packages.revisions)
	assert.Empty(t, h.sys.removed)
}

func TestRegisterCurrentLayoutRemovesLegacyFiles(t *testing.T) {
	h := newHarness(t, nil)
	h.sys.dirs[ApacheDir] = true
	for _, p := range legacyPaths {
		h.sys.touch(p, "stale")
	}
	h.packages.revision = 1

	m, err := h.charm.Registry().Register(context.Background(), release.Havana)
	require.NoError(t, err)

	want := append(append([]string{}, basePaths...), currentPaths...)
	assert.Equal(t, want, m.Paths())
	assert.Equal(t, want, h.renderer.paths())
	assertServiceSets(t, m)
	assert.Equal(t, []string{ApacheConf, ApacheSSL, ApacheDefault}, h.sys.removed)
	for _, p := range h.sys.removed {
		assert.NotContains(t, m.Paths(), p)
	}
}

func TestActiveHasNoSideEffects(t *testing.T) {
	h := newHarness(t, nil)
	h.sys.dirs[ApacheDir] = true
	for _, p := range legacyPaths {
		h.sys.touch(p, "stale")
	}
	h.packages.revision = 1

	table, err := h.charm.Registry().Active(context.Background(), release.Havana)
	require.NoError(t, err)

	assert.Equal(t, append(append([]string{}, basePaths...), currentPaths...), table.Paths())
	assert.Empty(t, h.sys.removed)
	assert.Empty(t, h.renderer.registered)
}

func TestRegisterPreInstall(t *testing.T) {
	h := newHarness(t, nil)

	m, err := h.charm.Registry().Register(context.Background(), release.Havana)
	require.NoError(t, err)

	want := append(append([]string{}, basePaths...), legacyPaths...)
	assert.Equal(t, want, m.Paths())
	assertServiceSets(t, m)
	assert.Zero(t, h.packages.revisions)
	assert.Empty(t, h.sys.mutations)
}

func TestRegisterContextsPerFile(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.charm.Registry().Register(context.Background(), release.Icehouse)
	require.NoError(t, err)

	byPath := map[string][]string{}
	for _, r := range h.renderer.registered {
		byPath[r.path] = r.providers
	}
	assert.Equal(t, []string{"horizon", "identity-service", "syslog", "local-settings", "apache-ssl"}, byPath[LocalSettings])
	assert.Equal(t, []string{"horizon-haproxy", "haproxy"}, byPath[HAProxyConf])
	assert.Equal(t, []string{"apache"}, byPath[PortsConf])
	assert.Equal(t, []string{"horizon", "syslog"}, byPath[ApacheConf])
	assert.Equal(t, []string{"apache-ssl", "apache"}, byPath[ApacheSSL])
}

func TestRegisterMitakaExtras(t *testing.T) {
	h := newHarness(t, nil)
	h.sys.dirs["/usr/share/openstack-dashboard/openstack_dashboard/enabled"] = true

	m, err := h.charm.Registry().Register(context.Background(), release.Mitaka)
	require.NoError(t, err)

	paths := h.renderer.paths()
	assert.Equal(t, KeystoneV3Policy, paths[0])
	assert.Equal(t, RouterSetting, paths[len(paths)-1])
	assert.Equal(t, 8, m.Len())
	assert.Contains(t, h.renderer.registered[1].providers, "shared-db")
}

func TestRegisterSkipsRouterWithoutPanelDir(t *testing.T) {
	h := newHarness(t, nil)
	m, err := h.charm.Registry().Register(context.Background(), release.Ocata)
	require.NoError(t, err)
	assert.NotContains(t, m.Paths(), RouterSetting)
}

func TestPreInstallCleanupConsultsRevision(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.PreInstallCleanup = true })
	h.packages.revErr = apt.NewNotInstalledError("apache2")

	m, err := h.charm.Registry().Register(context.Background(), release.Havana)
	require.NoError(t, err)
	assert.Equal(t, 1, h.packages.revisions)
	assert.Contains(t, m.Paths(), ApacheDefault)
}

func TestRegisterRevisionFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.sys.dirs[ApacheDir] = true
	h.packages.revErr = errors.New("dpkg database locked")

	_, err := h.charm.Registry().Register(context.Background(), release.Havana)
	require.Error(t, err)
	assert.Empty(t, h.renderer.registered)
}

func TestMigrateIsIdempotent(t *testing.T) {
	sys := newFakeSystem()
	m := NewMigrator(sys, newFakePackages(), false, nil)

	for i := 0; i < 2; i++ {
		removed, err := m.Migrate(currentPaths)
		require.NoError(t, err)
		assert.Empty(t, removed)
	}
}

func TestMigrateKeepsActivePaths(t *testing.T) {
	sys := newFakeSystem()
	sys.touch(ApacheConf, "x")
	sys.touch(ApacheDefault, "x")
	m := NewMigrator(sys, newFakePackages(), false, nil)

	removed, err := m.Migrate([]string{ApacheConf})
	require.NoError(t, err)
	assert.Equal(t, []string{ApacheDefault}, removed)
	assert.Contains(t, sys.files, ApacheConf)
}

func TestConfigFilesFreshPerCall(t *testing.T) {
	table := ConfigFiles(release.Mitaka, GenerationLegacy)
	specs := table.Specs()
	specs[1].Services[0] = "mutated"
	specs[1].Contexts = nil

	again, ok := ConfigFiles(release.Mitaka, GenerationLegacy).Lookup(LocalSettings)
	require.True(t, ok)
	assert.Equal(t, []string{"apache2", "memcached"}, again.Services)
	assert.Contains(t, again.Contexts, "shared-db")

	icehouse, ok := ConfigFiles(release.Icehouse, GenerationLegacy).Lookup(LocalSettings)
	require.True(t, ok)
	assert.NotContains(t, icehouse.Contexts, "shared-db")
}

func TestFullRestartMap(t *testing.T) {
	m := FullRestartMap()
	assert.Equal(t, []string{
		LocalSettings,
		ApacheConf,
		Apache24Conf,
		ApacheSSL,
		Apache24SSL,
		ApacheDefault,
		Apache24Default,
		PortsConf,
		HAProxyConf,
		RouterSetting,
		KeystoneV3Policy,
	}, m.Paths())
	assertServiceSets(t, m)
	assert.Equal(t, []string{"apache2", "memcached", "haproxy"}, m.AllServices())
}

func TestGenerationString(t *testing.T) {
	assert.Equal(t, "legacy", GenerationLegacy.String())
	assert.Equal(t, "current", GenerationCurrent.String())
}
