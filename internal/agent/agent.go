// Package agent talks to the unit agent through its hook tools.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/host"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
)

// WorkloadStatus is the unit workload status reported to the agent.
type WorkloadStatus string

const (
	StatusActive      WorkloadStatus = "active"
	StatusBlocked     WorkloadStatus = "blocked"
	StatusWaiting     WorkloadStatus = "waiting"
	StatusMaintenance WorkloadStatus = "maintenance"
)

// Client shells out to hook tools. It must only be used inside a hook context.
type Client struct {
	runner host.Runner
}

// New returns a Client.
func New(runner host.Runner) *Client {
	return &Client{runner: runner}
}

// StatusSet sets the unit workload status.
func (c *Client) StatusSet(ctx context.Context, status WorkloadStatus, message string) error {
	return c.run(ctx, "status-set", string(status), message)
}

// ApplicationVersionSet sets the version string shown for the application.
func (c *Client) ApplicationVersionSet(ctx context.Context, version string) error {
	return c.run(ctx, "application-version-set", version)
}

// OpenPort opens a port, e.g. "80/tcp".
func (c *Client) OpenPort(ctx context.Context, port string) error {
	return c.run(ctx, "open-port", port)
}

// Log writes msg to the unit log at level (DEBUG, INFO, WARNING, ERROR).
func (c *Client) Log(ctx context.Context, level string, msg string) error {
	return c.run(ctx, "juju-log", "--log-level", level, msg)
}

// UnitGet returns a unit setting such as private-address.
func (c *Client) UnitGet(ctx context.Context, key string) (string, error) {
	var value string
	if err := c.runJSON(ctx, &value, "unit-get", "--format=json", key); err != nil {
		return "", err
	}
	return value, nil
}

// RelationIDs lists relation ids established on endpoint.
func (c *Client) RelationIDs(ctx context.Context, endpoint string) ([]string, error) {
	var ids []string
	if err := c.runJSON(ctx, &ids, "relation-ids", "--format=json", endpoint); err != nil {
		return nil, err
	}
	return ids, nil
}

// RelatedUnits lists the remote units of a relation.
func (c *Client) RelatedUnits(ctx context.Context, relationID string) ([]string, error) {
	var units []string
	if err := c.runJSON(ctx, &units, "relation-list", "--format=json", "-r", relationID); err != nil {
		return nil, err
	}
	return units, nil
}

// RelationGet returns all settings a remote unit published on a relation.
func (c *Client) RelationGet(ctx context.Context, relationID string, unit string) (map[string]string, error) {
	settings := map[string]string{}
	if err := c.runJSON(ctx, &settings, "relation-get", "--format=json", "-r", relationID, "-", unit); err != nil {
		return nil, err
	}
	return settings, nil
}

func (c *Client) run(ctx context.Context, tool string, args ...string) error {
	if _, err := c.runner.Run(ctx, host.Command{Name: tool, Args: args}); err != nil {
		return fmt.Errorf(messages.AgentToolFailedFmt, tool, err)
	}
	return nil
}

func (c *Client) runJSON(ctx context.Context, out any, tool string, args ...string) error {
	stdout, err := c.runner.Run(ctx, host.Command{Name: tool, Args: args})
	if err != nil {
		return fmt.Errorf(messages.AgentToolFailedFmt, tool, err)
	}
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(trimmed), out); err != nil {
		return fmt.Errorf(messages.AgentDecodeFailedFmt, tool, err)
	}
	return nil
}
