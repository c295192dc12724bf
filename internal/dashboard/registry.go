package dashboard

import (
	"context"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/host"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/release"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/templating"
)

// ConfigFileSpec describes one managed configuration file.
type ConfigFileSpec struct {
	Path     string
	Contexts []string
	Services []string
}

var apacheServices = []string{ServiceApache, ServiceMemcached}

func spec(path string, services []string, contexts ...string) ConfigFileSpec {
	return ConfigFileSpec{Path: path, Contexts: contexts, Services: services}
}

func localSettingsSpec(rel release.Release) ConfigFileSpec {
	s := spec(LocalSettings, apacheServices,
		ContextHorizon, ContextIdentity, ContextSyslog, ContextLocalSettings, ContextApacheSSL)
	if rel.AtLeast(release.Mitaka) {
		s.Contexts = append(s.Contexts, ContextSharedDB)
	}
	return s
}

func baseSpecs(rel release.Release) []ConfigFileSpec {
	return []ConfigFileSpec{
		localSettingsSpec(rel),
		spec(HAProxyConf, []string{ServiceHAProxy}, ContextHorizonHAProxy, ContextHAProxy),
		spec(PortsConf, apacheServices, ContextApache),
	}
}

func policySpec() ConfigFileSpec {
	return spec(KeystoneV3Policy, apacheServices, ContextIdentity)
}

func routerSpec() ConfigFileSpec {
	return spec(RouterSetting, apacheServices, ContextRouter)
}

func legacySpecs() []ConfigFileSpec {
	return []ConfigFileSpec{
		spec(ApacheDefault, apacheServices, ContextApache),
		spec(ApacheConf, apacheServices, ContextHorizon, ContextSyslog),
		spec(ApacheSSL, apacheServices, ContextApacheSSL, ContextApache),
	}
}

func currentSpecs() []ConfigFileSpec {
	return []ConfigFileSpec{
		spec(Apache24Default, apacheServices, ContextApache),
		spec(Apache24Conf, apacheServices, ContextHorizon, ContextSyslog),
		spec(Apache24SSL, apacheServices, ContextApacheSSL, ContextApache),
	}
}

// legacyOnly lists the legacy files in the order stale copies are removed.
var legacyOnly = []string{ApacheConf, ApacheSSL, ApacheDefault}

// ConfigTable is an ordered, read-only set of config file specs.
type ConfigTable struct {
	specs []ConfigFileSpec
}

// ConfigFiles returns every file that may be managed for rel under gen, in registration
// order: the keystone v3 policy from mitaka, the base set, the layout set, then the router
// setting. Each call builds a fresh table.
func ConfigFiles(rel release.Release, gen Generation) ConfigTable {
	var specs []ConfigFileSpec
	if rel.AtLeast(release.Mitaka) {
		specs = append(specs, policySpec())
	}
	specs = append(specs, baseSpecs(rel)...)
	if gen == GenerationCurrent {
		specs = append(specs, currentSpecs()...)
	} else {
		specs = append(specs, legacySpecs()...)
	}
	specs = append(specs, routerSpec())
	return ConfigTable{specs: specs}
}

// Specs returns a copy of the table's specs in order.
func (t ConfigTable) Specs() []ConfigFileSpec {
	out := make([]ConfigFileSpec, len(t.specs))
	for i, s := range t.specs {
		out[i] = ConfigFileSpec{Path: s.Path, Contexts: slices.Clone(s.Contexts), Services: slices.Clone(s.Services)}
	}
	return out
}

// Lookup returns the spec for path.
func (t ConfigTable) Lookup(path string) (ConfigFileSpec, bool) {
	for _, s := range t.Specs() {
		if s.Path == path {
			return s, true
		}
	}
	return ConfigFileSpec{}, false
}

// Paths returns the table's paths in order.
func (t ConfigTable) Paths() []string {
	out := make([]string, 0, len(t.specs))
	for _, s := range t.specs {
		out = append(out, s.Path)
	}
	return out
}

// RestartMap returns the table's path to service mapping.
func (t ConfigTable) RestartMap() RestartMap {
	m := RestartMap{services: make(map[string][]string, len(t.specs))}
	for _, s := range t.specs {
		if _, ok := m.services[s.Path]; ok {
			continue
		}
		m.paths = append(m.paths, s.Path)
		m.services[s.Path] = slices.Clone(s.Services)
	}
	return m
}

func (t ConfigTable) filter(keep func(ConfigFileSpec) bool) ConfigTable {
	var out []ConfigFileSpec
	for _, s := range t.specs {
		if keep(s) {
			out = append(out, s)
		}
	}
	return ConfigTable{specs: out}
}

// RestartMap maps each active config path to the services restarted when it changes.
type RestartMap struct {
	paths    []string
	services map[string][]string
}

// Paths returns the mapped paths in registration order.
func (m RestartMap) Paths() []string {
	return slices.Clone(m.paths)
}

// Services returns the services restarted when path changes.
func (m RestartMap) Services(path string) []string {
	return slices.Clone(m.services[path])
}

// Len returns the number of mapped paths.
func (m RestartMap) Len() int {
	return len(m.paths)
}

// AllServices returns every mapped service once, in first-seen order.
func (m RestartMap) AllServices() []string {
	var out []string
	for _, p := range m.paths {
		for _, svc := range m.services[p] {
			if !slices.Contains(out, svc) {
				out = append(out, svc)
			}
		}
	}
	return out
}

// FullRestartMap covers every file the charm may write under any release or layout.
func FullRestartMap() RestartMap {
	base := baseSpecs(release.Caracal)
	legacy := legacySpecs()
	current := currentSpecs()
	specs := []ConfigFileSpec{
		base[0],
		legacy[1], current[1],
		legacy[2], current[2],
		legacy[0], current[0],
		base[2], base[1],
		routerSpec(), policySpec(),
	}
	return ConfigTable{specs: specs}.RestartMap()
}

// Registry registers the active config files with the renderer.
type Registry struct {
	sys      System
	packages PackageManager
	renderer Renderer
	contexts map[string]templating.ContextProvider
	migrator *Migrator
	log      *zap.SugaredLogger
}

// NewRegistry returns a Registry resolving context identifiers through contexts.
func NewRegistry(sys System, packages PackageManager, renderer Renderer, contexts map[string]templating.ContextProvider, preInstallCleanup bool, log *zap.SugaredLogger) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{
		sys:      sys,
		packages: packages,
		renderer: renderer,
		contexts: contexts,
		migrator: NewMigrator(sys, packages, preInstallCleanup, log),
		log:      log,
	}
}

// Register detects the apache layout, removes stale legacy files when the current layout
// is in use, registers every active file with the renderer and returns the restart map.
func (r *Registry) Register(ctx context.Context, rel release.Release) (RestartMap, error) {
	table, gen, err := r.active(ctx, rel)
	if err != nil {
		return RestartMap{}, err
	}
	if gen == GenerationCurrent {
		removed, err := r.migrator.Migrate(table.Paths())
		if err != nil {
			return RestartMap{}, err
		}
		if len(removed) > 0 {
			r.log.Infow("removed legacy apache config", "paths", removed)
		}
	}
	for _, s := range table.specs {
		providers := make([]templating.ContextProvider, 0, len(s.Contexts))
		for _, id := range s.Contexts {
			if p, ok := r.contexts[id]; ok {
				providers = append(providers, p)
			}
		}
		r.renderer.Register(s.Path, providers)
	}
	r.log.Debugw("registered configs", "release", rel, "layout", gen, "paths", table.Paths())
	return table.RestartMap(), nil
}

// Active returns the files that apply to rel on this host without touching the renderer
// or removing anything.
func (r *Registry) Active(ctx context.Context, rel release.Release) (ConfigTable, error) {
	table, _, err := r.active(ctx, rel)
	return table, err
}

func (r *Registry) active(ctx context.Context, rel release.Release) (ConfigTable, Generation, error) {
	gen, err := r.migrator.DetectGeneration(ctx)
	if err != nil {
		return ConfigTable{}, gen, err
	}
	routerEnabled := host.IsDir(r.sys, filepath.Dir(RouterSetting))
	table := ConfigFiles(rel, gen).filter(func(s ConfigFileSpec) bool {
		return s.Path != RouterSetting || routerEnabled
	})
	return table, gen, nil
}
