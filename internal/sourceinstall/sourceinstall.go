// Package sourceinstall builds the dashboard from git checkouts instead of distro packages:
// it creates the service account and directory layout, clones and pip-installs each
// project, then lays out settings, theme and static files for Apache.
package sourceinstall

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/host"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
)

const (
	serviceUser  = "horizon"
	serviceGroup = "horizon"

	shareDir      = "/usr/share/openstack-dashboard"
	dashboardDir  = shareDir + "/openstack_dashboard"
	staticDir     = dashboardDir + "/static"
	manageScript  = shareDir + "/manage.py"
	etcDir        = "/etc/openstack-dashboard"
	stateDir      = "/var/lib/openstack-dashboard"
	themeDir      = "/usr/share/openstack-dashboard-ubuntu-theme"
	apacheConf    = "/etc/apache2/conf-available/openstack-dashboard.conf"
	apacheConfKey = "openstack-dashboard"
	distPackages  = "/usr/local/lib/python2.7/dist-packages"
	apacheService = "apache2"
)

// System is the subset of host primitives a source build needs.
type System interface {
	Lstat(name string) (os.FileInfo, error)
	WriteFileAtomic(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	Mkdir(ctx context.Context, dir host.Dir) error
	RemoveAll(path string) error
	CopyFile(src string, dst string) error
	CopyTree(src string, dst string) error
	Symlink(oldname string, newname string) error
	Chmod(name string, perm os.FileMode) error
	Chown(name string, owner string, group string) error
	LchownTree(root string, owner string, group string) error

	AddUser(ctx context.Context, name string, opts host.UserOptions) error
	AddGroup(ctx context.Context, name string, system bool) error
	AddUserToGroup(ctx context.Context, username string, group string) error
	SetHomeDir(ctx context.Context, username string, home string) error
}

// Services restarts system services.
type Services interface {
	Restart(ctx context.Context, name string) error
}

// Options tune an Installer.
type Options struct {
	// CloneAttempts bounds git clone retries. Zero means one attempt.
	CloneAttempts uint
	// CloneDelay is the base backoff between clone attempts.
	CloneDelay time.Duration
	// Paused suppresses the final Apache restart when it reports true.
	Paused func() bool
	// Assets holds the files installed verbatim: dashboard.conf, ubuntu_theme.py and
	// the ubuntu-theme/ tree.
	Assets fs.FS
}

// Installer runs a source build.
type Installer struct {
	sys      System
	runner   host.Runner
	services Services
	opts     Options
	log      *zap.SugaredLogger
}

// New returns an Installer.
func New(sys System, runner host.Runner, services Services, opts Options, log *zap.SugaredLogger) *Installer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.CloneAttempts == 0 {
		opts.CloneAttempts = 1
	}
	if opts.CloneDelay == 0 {
		opts.CloneDelay = 2 * time.Second
	}
	return &Installer{sys: sys, runner: runner, services: services, opts: opts, log: log}
}

// Install parses projectsYAML and runs the full build.
func (i *Installer) Install(ctx context.Context, projectsYAML string) error {
	projects, err := ParseProjects(projectsYAML)
	if err != nil {
		return err
	}
	if err := i.PreInstall(ctx); err != nil {
		return err
	}
	if err := i.CloneAndInstall(ctx, projects); err != nil {
		return err
	}
	return i.PostInstall(ctx, projects)
}

// PreInstallDirs are created in order by PreInstall.
var PreInstallDirs = []host.Dir{
	{Path: etcDir, Owner: "root", Group: "root", Perm: 0o755},
	{Path: shareDir, Owner: "root", Group: "root", Perm: 0o755},
	{Path: shareDir + "/bin/less", Owner: "root", Group: "root", Perm: 0o755},
	{Path: themeDir + "/static/ubuntu/css", Owner: "root", Group: "root", Perm: 0o755},
	{Path: themeDir + "/static/ubuntu/img", Owner: "root", Group: "root", Perm: 0o755},
	{Path: themeDir + "/templates", Owner: "root", Group: "root", Perm: 0o755},
	{Path: stateDir, Owner: serviceUser, Group: serviceGroup, Perm: 0o700},
}

// PreInstall creates the service account and the fixed directory layout.
func (i *Installer) PreInstall(ctx context.Context) error {
	steps := []func() error{
		func() error {
			return i.sys.AddUser(ctx, serviceUser, host.UserOptions{Shell: "/bin/bash", SystemUser: true})
		},
		func() error { return i.sys.SetHomeDir(ctx, serviceUser, shareDir+"/") },
		func() error { return i.sys.AddGroup(ctx, serviceGroup, true) },
		func() error { return i.sys.AddUserToGroup(ctx, serviceUser, serviceGroup) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf(messages.SourceUserSetupFailedFmt, serviceUser, err)
		}
	}
	for _, dir := range PreInstallDirs {
		if err := i.sys.Mkdir(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

// CloneAndInstall clones every repository that is not already checked out, then
// pip-installs each one except the requirements project.
func (i *Installer) CloneAndInstall(ctx context.Context, projects *Projects) error {
	if err := i.sys.MkdirAll(projects.Directory, 0o755); err != nil {
		return fmt.Errorf(messages.HostCreateDirFailedFmt, projects.Directory, err)
	}
	env := projects.Env()
	for _, repo := range projects.Repositories {
		dest := projects.Dir(repo.Name)
		if host.Exists(i.sys, dest) {
			i.log.Infow("checkout present, skipping clone", "project", repo.Name, "path", dest)
		} else if err := i.clone(ctx, repo, dest, env); err != nil {
			return err
		}
		if repo.Name == RequirementsProject {
			continue
		}
		cmd := host.Command{Name: "pip", Args: []string{"install", "--upgrade", dest}, Env: env}
		if _, err := i.runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf(messages.SourcePipInstallFailedFmt, repo.Name, err)
		}
	}
	return nil
}

func (i *Installer) clone(ctx context.Context, repo Repository, dest string, env []string) error {
	cmd := host.Command{
		Name: "git",
		Args: []string{"clone", "--branch", repo.Branch, repo.Repository, dest},
		Env:  env,
	}
	err := retry.Do(
		func() error {
			_, err := i.runner.Run(ctx, cmd)
			if err != nil {
				// drop any partial checkout
				_ = i.sys.RemoveAll(dest)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(i.opts.CloneAttempts),
		retry.Delay(i.opts.CloneDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			i.log.Warnw("git clone failed, retrying", "project", repo.Name, "attempt", attempt+1, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf(messages.SourceCloneFailedFmt, repo.Repository, err)
	}
	return nil
}

type fileCopy struct {
	src string
	dst string
}

type link struct {
	target string
	name   string
}

// PostInstall lays out settings, theme and static files, runs the Django management
// steps, fixes ownership, enables the Apache conf and restarts Apache.
func (i *Installer) PostInstall(ctx context.Context, projects *Projects) error {
	src := projects.Dir(CoreProject)

	for _, c := range []fileCopy{
		{path.Join(src, "manage.py"), manageScript},
		{path.Join(src, "openstack_dashboard/settings.py"), shareDir + "/settings.py"},
		{path.Join(src, "openstack_dashboard/local/local_settings.py.example"), etcDir + "/local_settings.py"},
	} {
		if err := i.sys.CopyFile(c.src, c.dst); err != nil {
			return fmt.Errorf(messages.SourceCopyAssetFailedFmt, c.dst, err)
		}
	}
	for _, c := range []fileCopy{
		{"dashboard.conf", apacheConf},
		{"ubuntu_theme.py", etcDir + "/ubuntu_theme.py"},
	} {
		if err := i.installAsset(c.src, c.dst); err != nil {
			return err
		}
	}

	if err := i.replaceTree(path.Join(src, "openstack_dashboard"), dashboardDir); err != nil {
		return err
	}
	for _, c := range []fileCopy{
		{"ubuntu-theme/static/ubuntu/css", themeDir + "/static/ubuntu/css"},
		{"ubuntu-theme/static/ubuntu/img", themeDir + "/static/ubuntu/img"},
		{"ubuntu-theme/templates", themeDir + "/templates"},
	} {
		if err := i.installAssetTree(c.src, c.dst); err != nil {
			return err
		}
	}

	for _, l := range []link{
		{staticDir, shareDir + "/static"},
		{etcDir + "/ubuntu_theme.py", dashboardDir + "/local/ubuntu_theme.py"},
		{themeDir + "/static/ubuntu", staticDir + "/ubuntu"},
		{etcDir + "/local_settings.py", dashboardDir + "/local/local_settings.py"},
		{distPackages + "/horizon/static/horizon/", staticDir + "/horizon"},
	} {
		if err := i.relink(l); err != nil {
			return err
		}
	}

	for _, m := range []struct {
		path string
		perm os.FileMode
	}{
		{stateDir, 0o750},
		{manageScript, 0o755},
	} {
		if err := i.sys.Chmod(m.path, m.perm); err != nil {
			return err
		}
	}

	env := projects.Env()
	for _, args := range [][]string{
		{"collectstatic", "--noinput"},
		{"compress", "--force"},
	} {
		if _, err := i.runner.Run(ctx, host.Command{Name: manageScript, Args: args, Env: env}); err != nil {
			return fmt.Errorf(messages.SourceManageFailedFmt, args[0], err)
		}
	}

	for _, p := range []string{etcDir, staticDir, stateDir} {
		if err := i.sys.Chown(p, serviceUser, serviceGroup); err != nil {
			return err
		}
	}
	if err := i.sys.LchownTree(staticDir, serviceUser, serviceGroup); err != nil {
		return err
	}

	if _, err := i.runner.Run(ctx, host.Command{Name: "a2enconf", Args: []string{apacheConfKey}}); err != nil {
		return fmt.Errorf(messages.SourceEnableConfFailedFmt, apacheConfKey, err)
	}

	if i.opts.Paused != nil && i.opts.Paused() {
		i.log.Infow("unit paused, not restarting", "service", apacheService)
		return nil
	}
	if err := i.services.Restart(ctx, apacheService); err != nil {
		return fmt.Errorf(messages.SourceRestartFailedFmt, apacheService, err)
	}
	return nil
}

func (i *Installer) replaceTree(src string, dst string) error {
	if host.Exists(i.sys, dst) {
		if err := i.sys.RemoveAll(dst); err != nil {
			return fmt.Errorf(messages.SourceCopyAssetFailedFmt, dst, err)
		}
	}
	if err := i.sys.CopyTree(src, dst); err != nil {
		return fmt.Errorf(messages.SourceCopyAssetFailedFmt, dst, err)
	}
	return nil
}

func (i *Installer) installAsset(name string, dst string) error {
	data, err := fs.ReadFile(i.opts.Assets, name)
	if err != nil {
		return fmt.Errorf(messages.SourceCopyAssetFailedFmt, dst, err)
	}
	if err := i.sys.WriteFileAtomic(dst, data, 0o644); err != nil {
		return fmt.Errorf(messages.SourceCopyAssetFailedFmt, dst, err)
	}
	return nil
}

// installAssetTree writes every file under root into dst, creating subdirectories.
func (i *Installer) installAssetTree(root string, dst string) error {
	return fs.WalkDir(i.opts.Assets, root, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf(messages.SourceCopyAssetFailedFmt, dst, err)
		}
		rel := name[len(root):]
		target := dst + rel
		if d.IsDir() {
			if err := i.sys.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf(messages.HostCreateDirFailedFmt, target, err)
			}
			return nil
		}
		return i.installAsset(name, target)
	})
}

func (i *Installer) relink(l link) error {
	if host.Exists(i.sys, l.name) {
		if err := i.sys.RemoveAll(l.name); err != nil {
			return fmt.Errorf(messages.SourceSymlinkFailedFmt, l.name, l.target, err)
		}
	}
	if err := i.sys.Symlink(l.target, l.name); err != nil {
		return fmt.Errorf(messages.SourceSymlinkFailedFmt, l.name, l.target, err)
	}
	return nil
}
