package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/agent"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/dashboard"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/terminal"
)

// isTerminal is a seam for tests.
var isTerminal = terminal.IsTerminal

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           messages.RootUse,
		Short:         messages.RootShort,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().BoolP("version", "v", false, messages.RootVersionFlag)
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", messages.RootConfigFlag)
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, messages.RootDebugFlag)

	hook := func(use string, short string, fn func(context.Context, hooks) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				return runHook(c.Context(), *opts, c.ErrOrStderr(), use, fn)
			},
		}
	}

	cmd.AddCommand(
		newVersionCmd(),
		hook(messages.InstallUse, messages.InstallShort, func(ctx context.Context, h hooks) error {
			return h.Install(ctx)
		}),
		hook(messages.ConfigChangedUse, messages.ConfigChangedShort, func(ctx context.Context, h hooks) error {
			return h.ConfigChanged(ctx)
		}),
		hook(messages.UpgradeCharmUse, messages.UpgradeCharmShort, func(ctx context.Context, h hooks) error {
			return h.UpgradeCharm(ctx)
		}),
		hook(messages.StartUse, messages.StartShort, func(ctx context.Context, h hooks) error {
			return h.Start(ctx)
		}),
		hook(messages.StopUse, messages.StopShort, func(ctx context.Context, h hooks) error {
			return h.Stop(ctx)
		}),
		hook(messages.PauseUse, messages.PauseShort, func(ctx context.Context, h hooks) error {
			return h.Pause(ctx)
		}),
		hook(messages.ResumeUse, messages.ResumeShort, func(ctx context.Context, h hooks) error {
			return h.Resume(ctx)
		}),
		newUpdateStatusCmd(opts),
		newRestartMapCmd(opts),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   messages.VersionUse,
		Short: messages.VersionShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), versionString())
			return err
		},
	}
}

func newUpdateStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   messages.UpdateStatusUse,
		Short: messages.UpdateStatusShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return runHook(cmd.Context(), *opts, cmd.ErrOrStderr(), messages.UpdateStatusUse, func(ctx context.Context, h hooks) error {
				a, err := h.UpdateStatus(ctx)
				if err != nil {
					return err
				}
				return printAssessment(out, a)
			})
		},
	}
}

func newRestartMapCmd(opts *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   messages.RestartMapUse,
		Short: messages.RestartMapShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if all {
				return printRestartMap(out, dashboard.FullRestartMap())
			}
			return runHook(cmd.Context(), *opts, cmd.ErrOrStderr(), messages.RestartMapUse, func(ctx context.Context, h hooks) error {
				table, err := h.ActiveConfigs(ctx)
				if err != nil {
					return err
				}
				return printRestartMap(out, table.RestartMap())
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, messages.RestartMapAllFlag)
	return cmd
}

func printRestartMap(out io.Writer, m dashboard.RestartMap) error {
	for _, p := range m.Paths() {
		if _, err := fmt.Fprintf(out, messages.RestartMapLineFmt, p, strings.Join(m.Services(p), ",")); err != nil {
			return err
		}
	}
	return nil
}

// printAssessment writes the reported status, colored when out is a terminal.
func printAssessment(out io.Writer, a dashboard.Assessment) error {
	c := color.New(statusColor(a.Status))
	if isTerminal(out) {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	_, err := c.Fprintf(out, messages.StatusLineFmt, a.Status, a.Message)
	return err
}

func statusColor(s agent.WorkloadStatus) color.Attribute {
	switch s {
	case agent.StatusActive:
		return color.FgGreen
	case agent.StatusBlocked:
		return color.FgRed
	case agent.StatusWaiting, agent.StatusMaintenance:
		return color.FgYellow
	default:
		return color.Reset
	}
}
