// Package dashboard manages the openstack-dashboard workload: packages, configuration
// files, apache layout migration, upgrades and unit status.
package dashboard

import (
	"context"
	"os"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/agent"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/config"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/host"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/release"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/templating"
)

// PackageManager installs packages and answers version queries.
type PackageManager interface {
	Update(ctx context.Context, fatal bool) error
	Upgrade(ctx context.Context, options []string, dist bool, fatal bool) error
	Install(ctx context.Context, packages []string, fatal bool) error
	AddSource(ctx context.Context, source string) error
	Version(ctx context.Context, name string) (string, error)
	CompareRevision(ctx context.Context, name string, target string) (int, error)
}

// Renderer renders registered config files.
type Renderer interface {
	Register(path string, providers []templating.ContextProvider)
	SetRelease(rel release.Release)
	WriteAll(ctx context.Context) ([]string, error)
}

// System is the filesystem surface used by the charm.
type System interface {
	Stat(name string) (os.FileInfo, error)
	Lstat(name string) (os.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFileAtomic(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	Remove(name string) error
}

// Services controls system services.
type Services interface {
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Running(ctx context.Context, name string) (bool, error)
}

// Agent is the unit agent's hook tool surface.
type Agent interface {
	StatusSet(ctx context.Context, status agent.WorkloadStatus, message string) error
	ApplicationVersionSet(ctx context.Context, version string) error
	OpenPort(ctx context.Context, port string) error
	Log(ctx context.Context, level string, msg string) error
	UnitGet(ctx context.Context, key string) (string, error)
	RelationIDs(ctx context.Context, endpoint string) ([]string, error)
	RelatedUnits(ctx context.Context, relationID string) ([]string, error)
	RelationGet(ctx context.Context, relationID string, unit string) (map[string]string, error)
}

// SourceInstaller builds the dashboard from git instead of distro packages.
type SourceInstaller interface {
	Install(ctx context.Context, projectsYAML string) error
}

// Options are the charm settings the orchestrator acts on.
type Options struct {
	Config *config.Config
	// UnitName is the agent's unit name, e.g. openstack-dashboard/0.
	UnitName string
}

// Deps are the collaborators the orchestrator drives.
type Deps struct {
	Packages PackageManager
	Renderer Renderer
	System   System
	Services Services
	Agent    Agent
	Runner   host.Runner
	Source   SourceInstaller
}
