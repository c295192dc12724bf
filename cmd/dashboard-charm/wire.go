package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/agent"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/apt"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/config"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/dashboard"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/host"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/sourceinstall"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/templates"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/templating"
)

// unitNameEnv is set by the agent for every hook.
const unitNameEnv = "JUJU_UNIT_NAME"

// hooks is the charm surface driven by the subcommands.
type hooks interface {
	Install(ctx context.Context) error
	ConfigChanged(ctx context.Context) error
	UpgradeCharm(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	UpdateStatus(ctx context.Context) (dashboard.Assessment, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	ActiveConfigs(ctx context.Context) (dashboard.ConfigTable, error)
}

type rootOptions struct {
	configPath string
	debug      bool
}

// buildHooks is a seam for tests.
var buildHooks = wireCharm

// wireCharm loads configuration and assembles the charm over the local host. The
// returned func flushes the logger.
func wireCharm(opts rootOptions, stderr io.Writer) (hooks, func(), error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(opts.debug || cfg.Debug, stderr)
	log := logger.Sugar()

	runner := host.ExecRunner{Log: log}
	sys := host.NewLocal(runner)
	services := host.NewSystemd(runner)

	var tmpl fs.FS = templates.FS()
	if cfg.TemplatesDir != "" {
		tmpl = os.DirFS(cfg.TemplatesDir)
	}

	var charm *dashboard.Charm
	source := sourceinstall.New(sys, runner, services, sourceinstall.Options{
		CloneAttempts: cfg.GitCloneAttempts,
		Paused:        func() bool { return charm.Paused() },
		Assets:        templates.SourceAssets(),
	}, log.Named("sourceinstall"))

	charm = dashboard.New(dashboard.Options{
		Config:   cfg,
		UnitName: os.Getenv(unitNameEnv),
	}, dashboard.Deps{
		Packages: apt.New(runner, log.Named("apt")),
		Renderer: templating.New(sys, tmpl, "", log.Named("templating")),
		System:   sys,
		Services: services,
		Agent:    agent.New(runner),
		Runner:   runner,
		Source:   source,
	}, log)

	return charm, func() { _ = logger.Sync() }, nil
}

// newLogger writes console-encoded entries to w, at debug level when debug is set.
func newLogger(debug bool, w io.Writer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// runHook builds the charm and runs fn against it.
func runHook(ctx context.Context, opts rootOptions, stderr io.Writer, name string, fn func(context.Context, hooks) error) error {
	h, flush, err := buildHooks(opts, stderr)
	if err != nil {
		return err
	}
	defer flush()
	if err := fn(ctx, h); err != nil {
		return fmt.Errorf(messages.HookFailedFmt, name, err)
	}
	return nil
}

var _ hooks = (*dashboard.Charm)(nil)
