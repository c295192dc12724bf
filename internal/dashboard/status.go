package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/agent"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/apt"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/host"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
)

// requiredInterfaces are the relations the unit needs, with the keys a remote unit must
// publish for the relation to count as complete.
var requiredInterfaces = []struct {
	name     string
	endpoint string
	keys     []string
}{
	{name: "identity", endpoint: EndpointIdentity, keys: identityKeys},
}

// Assessment is the workload status decided by AssessStatus.
type Assessment struct {
	Status  agent.WorkloadStatus
	Message string
}

// AssessStatus reports the unit's workload status and the application version. Missing
// relations and stopped services are reported as status, not returned as errors.
func (c *Charm) AssessStatus(ctx context.Context) error {
	_, err := c.UpdateStatus(ctx)
	return err
}

// UpdateStatus is AssessStatus returning the reported assessment. The application version
// is reported even when assessing or reporting the status fails.
func (c *Charm) UpdateStatus(ctx context.Context) (a Assessment, err error) {
	defer func() {
		if verr := c.setApplicationVersion(ctx); err == nil {
			err = verr
		}
	}()
	a, err = c.Assess(ctx)
	if err != nil {
		return Assessment{}, err
	}
	if err = c.deps.Agent.StatusSet(ctx, a.Status, a.Message); err != nil {
		return Assessment{}, err
	}
	return a, nil
}

// Assess decides the workload status without reporting it.
func (c *Charm) Assess(ctx context.Context) (Assessment, error) {
	if c.Paused() {
		return Assessment{Status: agent.StatusMaintenance, Message: messages.StatusPaused}, nil
	}

	var missing, incomplete []string
	for _, iface := range requiredInterfaces {
		related, complete, err := c.interfaceState(ctx, iface.endpoint, iface.keys)
		if err != nil {
			return Assessment{}, err
		}
		switch {
		case !related:
			missing = append(missing, iface.name)
		case !complete:
			incomplete = append(incomplete, iface.name)
		}
	}
	if len(missing) > 0 {
		return Assessment{Status: agent.StatusBlocked, Message: fmt.Sprintf(messages.StatusMissingRelationsFmt, strings.Join(missing, ", "))}, nil
	}
	if len(incomplete) > 0 {
		return Assessment{Status: agent.StatusWaiting, Message: fmt.Sprintf(messages.StatusIncompleteRelationsFmt, strings.Join(incomplete, ", "))}, nil
	}

	var stopped []string
	for _, svc := range c.Services() {
		running, err := c.deps.Services.Running(ctx, svc)
		if err != nil {
			return Assessment{}, err
		}
		if !running {
			stopped = append(stopped, svc)
		}
	}
	if len(stopped) > 0 {
		return Assessment{Status: agent.StatusBlocked, Message: fmt.Sprintf(messages.StatusServicesNotRunningFmt, strings.Join(stopped, ", "))}, nil
	}
	return Assessment{Status: agent.StatusActive, Message: messages.StatusReady}, nil
}

func (c *Charm) interfaceState(ctx context.Context, endpoint string, keys []string) (bool, bool, error) {
	units, related, err := relationData(ctx, c.deps.Agent, endpoint)
	if err != nil {
		return false, false, err
	}
	return related, firstComplete(units, keys) != nil, nil
}

// Paused reports whether the unit was paused by an operator.
func (c *Charm) Paused() bool {
	return host.Exists(c.deps.System, c.pausedMarker())
}

// Pause stops every service, marks the unit paused and reports status.
func (c *Charm) Pause(ctx context.Context) error {
	if err := c.eachService(ctx, "stop", c.deps.Services.Stop); err != nil {
		return err
	}
	marker := c.pausedMarker()
	if err := c.deps.System.MkdirAll(c.cfg.StateDir, 0o700); err != nil {
		return fmt.Errorf(messages.DashboardPauseMarkerFailedFmt, marker, err)
	}
	if err := c.deps.System.WriteFileAtomic(marker, nil, 0o600); err != nil {
		return fmt.Errorf(messages.DashboardPauseMarkerFailedFmt, marker, err)
	}
	return c.AssessStatus(ctx)
}

// Resume clears the paused mark, starts every service and reports status.
func (c *Charm) Resume(ctx context.Context) error {
	marker := c.pausedMarker()
	if host.Exists(c.deps.System, marker) {
		if err := c.deps.System.Remove(marker); err != nil {
			return fmt.Errorf(messages.DashboardPauseMarkerFailedFmt, marker, err)
		}
	}
	if err := c.eachService(ctx, "start", c.deps.Services.Start); err != nil {
		return err
	}
	return c.AssessStatus(ctx)
}

func (c *Charm) setApplicationVersion(ctx context.Context) error {
	version, err := c.deps.Packages.Version(ctx, VersionPackage)
	if err != nil {
		if apt.IsNotInstalledError(err) {
			c.log.Debugw("no application version to report", "package", VersionPackage)
			return nil
		}
		return err
	}
	return c.deps.Agent.ApplicationVersionSet(ctx, version)
}
