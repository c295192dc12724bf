// Package apt drives the Debian package manager: index updates, upgrades, installs,
// archive configuration and installed-version queries.
package apt

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/host"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
)

// KeepConfigOptions are the dpkg conffile options used for release upgrades.
var KeepConfigOptions = []string{
	"--option", "Dpkg::Options::=--force-confnew",
	"--option", "Dpkg::Options::=--force-confdef",
}

// installOptions are applied to plain installs so packaged conffiles never overwrite
// locally rendered ones.
var installOptions = []string{"--option=Dpkg::Options::=--force-confold"}

var noninteractiveEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

// Manager runs apt-get and dpkg-query through a host.Runner.
type Manager struct {
	runner host.Runner
	log    *zap.SugaredLogger
}

// New returns a Manager.
func New(runner host.Runner, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Manager{runner: runner, log: log}
}

// Update refreshes the package index.
func (m *Manager) Update(ctx context.Context, fatal bool) error {
	return m.aptGet(ctx, fatal, "update")
}

// Upgrade upgrades installed packages. dist selects dist-upgrade.
func (m *Manager) Upgrade(ctx context.Context, options []string, dist bool, fatal bool) error {
	args := append([]string{"--assume-yes"}, options...)
	if dist {
		args = append(args, "dist-upgrade")
	} else {
		args = append(args, "upgrade")
	}
	return m.aptGet(ctx, fatal, args...)
}

// Install installs packages. An empty list is a no-op.
func (m *Manager) Install(ctx context.Context, packages []string, fatal bool) error {
	if len(packages) == 0 {
		return nil
	}
	args := append([]string{"--assume-yes"}, installOptions...)
	args = append(args, "install")
	args = append(args, packages...)
	return m.aptGet(ctx, fatal, args...)
}

// AddSource configures an install source. "distro" and "" need no configuration.
// Cloud archive sources ("cloud:<series>-<release>[/<pocket>]") are enabled through
// add-apt-repository's cloud-archive alias; ppa: and deb lines are passed through.
func (m *Manager) AddSource(ctx context.Context, source string) error {
	src := strings.TrimSpace(source)
	switch {
	case src == "" || src == "distro":
		return nil
	case src == "distro-proposed":
		return fmt.Errorf(messages.AptUnsupportedSourceFmt, source)
	case strings.HasPrefix(src, "cloud:"):
		archive, err := cloudArchiveAlias(src)
		if err != nil {
			return err
		}
		return m.addRepository(ctx, archive)
	case strings.HasPrefix(src, "ppa:"), strings.HasPrefix(src, "deb "), strings.HasPrefix(src, "http"):
		return m.addRepository(ctx, src)
	default:
		return fmt.Errorf(messages.AptUnsupportedSourceFmt, source)
	}
}

func (m *Manager) addRepository(ctx context.Context, repo string) error {
	m.log.Infow("adding package source", "source", repo)
	_, err := m.runner.Run(ctx, host.Command{
		Name: "add-apt-repository",
		Args: []string{"--yes", repo},
		Env:  noninteractiveEnv,
	})
	if err != nil {
		return fmt.Errorf(messages.AptAddSourceFailedFmt, repo, err)
	}
	return nil
}

// cloudArchiveAlias turns cloud:xenial-newton/proposed into cloud-archive:newton-proposed.
func cloudArchiveAlias(source string) (string, error) {
	rest := strings.TrimPrefix(source, "cloud:")
	pocket := ""
	if slash := strings.Index(rest, "/"); slash >= 0 {
		pocket = rest[slash+1:]
		rest = rest[:slash]
	}
	dash := strings.LastIndex(rest, "-")
	if dash < 0 || dash == len(rest)-1 {
		return "", fmt.Errorf(messages.AptUnsupportedSourceFmt, source)
	}
	alias := "cloud-archive:" + rest[dash+1:]
	switch pocket {
	case "", "updates":
	case "proposed", "staging":
		alias += "-" + pocket
	default:
		return "", fmt.Errorf(messages.AptUnsupportedSourceFmt, source)
	}
	return alias, nil
}

// Version returns the installed version of a package, or a *NotInstalledError.
func (m *Manager) Version(ctx context.Context, name string) (string, error) {
	out, err := m.runner.Run(ctx, host.Command{
		Name: "dpkg-query",
		Args: []string{"--show", "--showformat=${Version}", name},
	})
	if err != nil {
		if _, ok := host.IsCommandError(err); ok {
			return "", NewNotInstalledError(name)
		}
		return "", err
	}
	version := strings.TrimSpace(out)
	if version == "" {
		return "", NewNotInstalledError(name)
	}
	return version, nil
}

// CompareRevision compares the installed version of name with target, returning -1, 0
// or 1.
func (m *Manager) CompareRevision(ctx context.Context, name string, target string) (int, error) {
	version, err := m.Version(ctx, name)
	if err != nil {
		return 0, err
	}
	return CompareVersions(version, target), nil
}

func (m *Manager) aptGet(ctx context.Context, fatal bool, args ...string) error {
	cmd := host.Command{Name: "apt-get", Args: args, Env: noninteractiveEnv}
	m.log.Infow("running apt-get", "args", args)
	if _, err := m.runner.Run(ctx, cmd); err != nil {
		if fatal {
			return fmt.Errorf(messages.AptCommandFailedFmt, cmd.String(), err)
		}
		m.log.Warnw("apt-get failed; continuing", "command", cmd.String(), "error", err)
	}
	return nil
}
