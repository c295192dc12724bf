package dashboard

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/apt"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/host"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
)

// Generation is the apache configuration layout in use.
type Generation int

const (
	// GenerationLegacy is the pre-2.4 sites-available and conf.d layout.
	GenerationLegacy Generation = iota
	// GenerationCurrent is the 2.4+ conf-available layout.
	GenerationCurrent
)

func (g Generation) String() string {
	if g == GenerationCurrent {
		return "current"
	}
	return "legacy"
}

// Migrator picks the apache layout and removes legacy files it superseded.
type Migrator struct {
	sys               System
	packages          PackageManager
	preInstallCleanup bool
	log               *zap.SugaredLogger
}

// NewMigrator returns a Migrator. With preInstallCleanup the apache directory gate is
// skipped and the installed revision is always consulted.
func NewMigrator(sys System, packages PackageManager, preInstallCleanup bool, log *zap.SugaredLogger) *Migrator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Migrator{sys: sys, packages: packages, preInstallCleanup: preInstallCleanup, log: log}
}

// DetectGeneration returns GenerationCurrent when apache2 >= 2.4 is installed. Before
// install (no /etc/apache2) it returns GenerationLegacy without querying packages.
func (m *Migrator) DetectGeneration(ctx context.Context) (Generation, error) {
	if !m.preInstallCleanup && !host.IsDir(m.sys, ApacheDir) {
		return GenerationLegacy, nil
	}
	cmp, err := m.packages.CompareRevision(ctx, ServiceApache, ApacheLayoutThreshold)
	if err != nil {
		if apt.IsNotInstalledError(err) {
			return GenerationLegacy, nil
		}
		return GenerationLegacy, fmt.Errorf(messages.DashboardRevisionFailedFmt, ServiceApache, ApacheLayoutThreshold, err)
	}
	if cmp >= 0 {
		return GenerationCurrent, nil
	}
	return GenerationLegacy, nil
}

// Migrate removes legacy layout files still on disk and returns the removed paths.
// Paths in active are never removed.
func (m *Migrator) Migrate(active []string) ([]string, error) {
	removed := []string{}
	for _, path := range legacyOnly {
		if slices.Contains(active, path) || !host.IsFile(m.sys, path) {
			continue
		}
		m.log.Infow("removing old config", "path", path)
		if err := m.sys.Remove(path); err != nil {
			return removed, fmt.Errorf(messages.DashboardRemoveStaleFailedFmt, path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
