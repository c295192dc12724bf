package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/agent"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/apt"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/config"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/host"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/release"
)

// Charm drives the dashboard lifecycle for one hook invocation.
type Charm struct {
	cfg      *config.Config
	deps     Deps
	registry *Registry
	log      *zap.SugaredLogger
}

// New returns a Charm. Context providers are built from opts and deps.
func New(opts Options, deps Deps, log *zap.SugaredLogger) *Charm {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	contexts := Contexts(opts.Config, deps.System, deps.Agent, opts.UnitName)
	return &Charm{
		cfg:      opts.Config,
		deps:     deps,
		registry: NewRegistry(deps.System, deps.Packages, deps.Renderer, contexts, opts.Config.PreInstallCleanup, log),
		log:      log,
	}
}

// Registry returns the charm's config registry.
func (c *Charm) Registry() *Registry {
	return c.registry
}

// OriginRelease resolves the release requested by openstack-origin.
func (c *Charm) OriginRelease() (release.Release, error) {
	rel, err := release.FromInstallSource(c.cfg.OpenStackOrigin, c.cfg.Series)
	if err != nil {
		return "", fmt.Errorf(messages.DashboardResolveReleaseFailedFmt, c.cfg.OpenStackOrigin, err)
	}
	return rel, nil
}

// InstalledRelease resolves the release of the installed dashboard package, falling back
// to openstack-origin when the package is absent (before install, or a source install).
func (c *Charm) InstalledRelease(ctx context.Context) (release.Release, error) {
	rel, installed, err := c.packageRelease(ctx)
	if err != nil {
		return "", err
	}
	if !installed {
		return c.OriginRelease()
	}
	return rel, nil
}

func (c *Charm) packageRelease(ctx context.Context) (release.Release, bool, error) {
	version, err := c.deps.Packages.Version(ctx, VersionPackage)
	if err != nil {
		if apt.IsNotInstalledError(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf(messages.DashboardInstalledReleaseFailedFmt, err)
	}
	rel, err := release.FromPackageVersion(version)
	if err != nil {
		return "", false, fmt.Errorf(messages.DashboardInstalledReleaseFailedFmt, err)
	}
	return rel, true, nil
}

// Install installs the workload and registers its configuration. Every step is fatal.
func (c *Charm) Install(ctx context.Context) error {
	rel, err := c.OriginRelease()
	if err != nil {
		return err
	}
	sourceInstall := c.cfg.SourceInstall()
	pkgs := PackagesFor(rel, sourceInstall)

	c.status(ctx, agent.StatusMaintenance, messages.StatusInstallingPackages)
	if err := c.configureSource(ctx); err != nil {
		return err
	}
	if err := c.deps.Packages.Update(ctx, true); err != nil {
		return err
	}
	if sourceInstall {
		if err := c.deps.Packages.Install(ctx, pkgs, true); err != nil {
			return err
		}
		c.status(ctx, agent.StatusMaintenance, messages.StatusInstallingFromSource)
		if err := c.deps.Source.Install(ctx, c.cfg.OpenStackOriginGit); err != nil {
			return fmt.Errorf(messages.DashboardSourceInstallFailedFmt, err)
		}
	} else {
		if err := c.deps.Packages.Upgrade(ctx, apt.KeepConfigOptions, true, true); err != nil {
			return err
		}
		if err := c.deps.Packages.Install(ctx, pkgs, true); err != nil {
			return err
		}
	}

	c.deps.Renderer.SetRelease(rel)
	if _, err := c.registry.Register(ctx, rel); err != nil {
		return err
	}
	return c.setApplicationVersion(ctx)
}

// Upgrade moves the workload to the release named by openstack-origin and rewrites every
// registered file for it.
func (c *Charm) Upgrade(ctx context.Context) error {
	target, err := c.OriginRelease()
	if err != nil {
		return err
	}
	c.status(ctx, agent.StatusMaintenance, messages.StatusUpgrading)
	c.logAgent(ctx, "INFO", fmt.Sprintf("Performing OpenStack upgrade to %s.", target))
	if err := c.configureSource(ctx); err != nil {
		return err
	}
	if err := c.deps.Packages.Update(ctx, true); err != nil {
		return err
	}
	if err := c.deps.Packages.Upgrade(ctx, apt.KeepConfigOptions, true, true); err != nil {
		return err
	}
	if err := c.deps.Packages.Install(ctx, PackagesFor(target, false), true); err != nil {
		return err
	}

	rel, err := c.InstalledRelease(ctx)
	if err != nil {
		return err
	}
	c.deps.Renderer.SetRelease(rel)
	if _, err := c.registry.Register(ctx, rel); err != nil {
		return err
	}
	_, err = c.deps.Renderer.WriteAll(ctx)
	return err
}

// UpgradeCharm installs packages added by a new charm revision for the installed release,
// then rewrites every file and reports status.
func (c *Charm) UpgradeCharm(ctx context.Context) error {
	rel, err := c.InstalledRelease(ctx)
	if err != nil {
		return err
	}
	if err := c.deps.Packages.Install(ctx, PackagesFor(rel, c.cfg.SourceInstall()), true); err != nil {
		return err
	}
	if err := c.WriteConfigs(ctx); err != nil {
		return err
	}
	return c.AssessStatus(ctx)
}

// UpgradeAvailable reports whether openstack-origin names a newer release than the one
// installed. Source installs never upgrade through packages.
func (c *Charm) UpgradeAvailable(ctx context.Context) (bool, error) {
	if c.cfg.SourceInstall() {
		return false, nil
	}
	installed, ok, err := c.packageRelease(ctx)
	if err != nil || !ok {
		return false, err
	}
	target, err := c.OriginRelease()
	if err != nil {
		return false, err
	}
	return release.Compare(target, installed) > 0, nil
}

// ConfigChanged applies configuration: an upgrade when the origin moved forward,
// otherwise a rewrite of every active file. Services are restarted for changed files.
func (c *Charm) ConfigChanged(ctx context.Context) error {
	c.EnableSSL(ctx)
	upgrade, err := c.UpgradeAvailable(ctx)
	if err != nil {
		return err
	}
	if upgrade {
		err = c.RestartOnChange(ctx, FullRestartMap(), c.Upgrade)
	} else {
		err = c.WriteConfigs(ctx)
	}
	if err != nil {
		return err
	}
	for _, port := range []string{"80/tcp", "443/tcp"} {
		if err := c.deps.Agent.OpenPort(ctx, port); err != nil {
			return err
		}
	}
	return c.AssessStatus(ctx)
}

// WriteConfigs registers the active files for the installed release and writes them,
// restarting services whose files changed.
func (c *Charm) WriteConfigs(ctx context.Context) error {
	rel, err := c.InstalledRelease(ctx)
	if err != nil {
		return err
	}
	c.deps.Renderer.SetRelease(rel)
	restartMap, err := c.registry.Register(ctx, rel)
	if err != nil {
		return err
	}
	return c.RestartOnChange(ctx, restartMap, func(ctx context.Context) error {
		_, err := c.deps.Renderer.WriteAll(ctx)
		return err
	})
}

// RestartOnChange runs fn and restarts, once each and in first-seen order, the services of
// every file in restartMap whose content changed. Nothing restarts while the unit is paused.
func (c *Charm) RestartOnChange(ctx context.Context, restartMap RestartMap, fn func(context.Context) error) error {
	before, err := c.fingerprints(restartMap.Paths())
	if err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		return err
	}
	after, err := c.fingerprints(restartMap.Paths())
	if err != nil {
		return err
	}
	var restart []string
	for _, path := range restartMap.Paths() {
		if before[path] == after[path] {
			continue
		}
		for _, svc := range restartMap.Services(path) {
			if !slices.Contains(restart, svc) {
				restart = append(restart, svc)
			}
		}
	}
	if len(restart) == 0 {
		return nil
	}
	if c.Paused() {
		c.log.Infow("unit paused; not restarting services", "services", restart)
		return nil
	}
	for _, svc := range restart {
		c.log.Infow("restarting service", "service", svc)
		if err := c.deps.Services.Restart(ctx, svc); err != nil {
			return fmt.Errorf(messages.DashboardRestartFailedFmt, svc, err)
		}
	}
	return nil
}

type fingerprint struct {
	exists bool
	sum    uint64
}

func (c *Charm) fingerprints(paths []string) (map[string]fingerprint, error) {
	out := make(map[string]fingerprint, len(paths))
	for _, path := range paths {
		data, err := c.deps.System.ReadFile(path)
		switch {
		case err == nil:
			out[path] = fingerprint{exists: true, sum: xxhash.Sum64(data)}
		case errors.Is(err, fs.ErrNotExist):
			out[path] = fingerprint{}
		default:
			return nil, fmt.Errorf(messages.DashboardFingerprintFailedFmt, path, err)
		}
	}
	return out, nil
}

// EnableSSL enables the default-ssl site and mod_ssl. Failures are logged, not returned.
func (c *Charm) EnableSSL(ctx context.Context) {
	for _, cmd := range []host.Command{
		{Name: "a2ensite", Args: []string{"default-ssl"}},
		{Name: "a2enmod", Args: []string{"ssl"}},
	} {
		if _, err := c.deps.Runner.Run(ctx, cmd); err != nil {
			c.log.Warnw("enabling ssl failed", "command", cmd.String(), "error", err)
		}
	}
}

// ActiveConfigs returns the files that apply to the installed release on this host.
func (c *Charm) ActiveConfigs(ctx context.Context) (ConfigTable, error) {
	rel, err := c.InstalledRelease(ctx)
	if err != nil {
		return ConfigTable{}, err
	}
	return c.registry.Active(ctx, rel)
}

// Services returns every service the charm manages, in restart-map order.
func (c *Charm) Services() []string {
	return FullRestartMap().AllServices()
}

// Start starts every managed service unless the unit is paused.
func (c *Charm) Start(ctx context.Context) error {
	if c.Paused() {
		return c.AssessStatus(ctx)
	}
	if err := c.eachService(ctx, "start", c.deps.Services.Start); err != nil {
		return err
	}
	return c.AssessStatus(ctx)
}

// Stop stops every managed service.
func (c *Charm) Stop(ctx context.Context) error {
	return c.eachService(ctx, "stop", c.deps.Services.Stop)
}

func (c *Charm) eachService(ctx context.Context, verb string, fn func(context.Context, string) error) error {
	for _, svc := range c.Services() {
		if err := fn(ctx, svc); err != nil {
			return fmt.Errorf(messages.DashboardServiceFailedFmt, verb, svc, err)
		}
	}
	return nil
}

func (c *Charm) configureSource(ctx context.Context) error {
	if err := c.deps.Packages.AddSource(ctx, c.cfg.OpenStackOrigin); err != nil {
		return fmt.Errorf(messages.DashboardConfigureSourceFailedFmt, c.cfg.OpenStackOrigin, err)
	}
	return nil
}

func (c *Charm) pausedMarker() string {
	return filepath.Join(c.cfg.StateDir, pausedMarkerName)
}

// status reports a transitional status; failures only matter to the final assessment.
func (c *Charm) status(ctx context.Context, status agent.WorkloadStatus, msg string) {
	if err := c.deps.Agent.StatusSet(ctx, status, msg); err != nil {
		c.log.Warnw("status-set failed", "status", status, "error", err)
	}
}

func (c *Charm) logAgent(ctx context.Context, level string, msg string) {
	c.log.Infow(msg)
	if err := c.deps.Agent.Log(ctx, level, msg); err != nil {
		c.log.Debugw("juju-log failed", "error", err)
	}
}
