package dashboard

import (
	"context"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/agent"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/apt"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/config"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/host"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/release"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/templating"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/testutil"
)

type fakeInfo struct {
	name string
	dir  bool
}

func (i fakeInfo) Name() string { return path.Base(i.name) }
func (i fakeInfo) Size() int64  { return 0 }
func (i fakeInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
func (i fakeInfo) ModTime() time.Time { return time.Time{} }
func (i fakeInfo) IsDir() bool        { return i.dir }
func (i fakeInfo) Sys() any           { return nil }

// fakeSystem is an in-memory filesystem that counts mutations.
type fakeSystem struct {
	files     map[string][]byte
	dirs      map[string]bool
	removed   []string
	mutations []string
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{files: map[string][]byte{}, dirs: map[string]bool{}}
}

func (f *fakeSystem) Stat(name string) (os.FileInfo, error) {
	if f.dirs[name] {
		return fakeInfo{name: name, dir: true}, nil
	}
	if _, ok := f.files[name]; ok {
		return fakeInfo{name: name}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

func (f *fakeSystem) Lstat(name string) (os.FileInfo, error) {
	return f.Stat(name)
}

func (f *fakeSystem) ReadFile(name string) ([]byte, error) {
	data, ok := f.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return data, nil
}

func (f *fakeSystem) WriteFileAtomic(name string, data []byte, _ os.FileMode) error {
	f.files[name] = append([]byte(nil), data...)
	f.mutations = append(f.mutations, "write "+name)
	return nil
}

func (f *fakeSystem) MkdirAll(p string, _ os.FileMode) error {
	for d := p; d != "/" && d != "."; d = path.Dir(d) {
		f.dirs[d] = true
	}
	f.mutations = append(f.mutations, "mkdir "+p)
	return nil
}

func (f *fakeSystem) Remove(name string) error {
	if _, ok := f.files[name]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(f.files, name)
	f.removed = append(f.removed, name)
	f.mutations = append(f.mutations, "remove "+name)
	return nil
}

// touch creates a file without recording a mutation.
func (f *fakeSystem) touch(name string, content string) {
	f.files[name] = []byte(content)
}

// fakePackages records package operations.
type fakePackages struct {
	calls     []string
	versions  map[string]string
	revision  int
	revErr    error
	failOn    string
	revisions int
}

func newFakePackages() *fakePackages {
	return &fakePackages{versions: map[string]string{}}
}

func (f *fakePackages) record(call string) error {
	f.calls = append(f.calls, call)
	if f.failOn != "" && strings.HasPrefix(call, f.failOn) {
		return &host.CommandError{Command: "apt-get", ExitCode: 100}
	}
	return nil
}

func (f *fakePackages) Update(_ context.Context, fatal bool) error {
	return f.record("update")
}

func (f *fakePackages) Upgrade(_ context.Context, options []string, dist bool, fatal bool) error {
	kind := "upgrade"
	if dist {
		kind = "dist-upgrade"
	}
	return f.record(kind + " " + strings.Join(options, " "))
}

func (f *fakePackages) Install(_ context.Context, packages []string, fatal bool) error {
	return f.record("install " + strings.Join(packages, " "))
}

func (f *fakePackages) AddSource(_ context.Context, source string) error {
	return f.record("add-source " + source)
}

func (f *fakePackages) Version(_ context.Context, name string) (string, error) {
	v, ok := f.versions[name]
	if !ok {
		return "", apt.NewNotInstalledError(name)
	}
	return v, nil
}

func (f *fakePackages) CompareRevision(_ context.Context, name string, target string) (int, error) {
	f.revisions++
	if f.revErr != nil {
		return 0, f.revErr
	}
	return f.revision, nil
}

type registration struct {
	path      string
	providers []string
}

// fakeRenderer records registrations and writes nothing.
type fakeRenderer struct {
	registered []registration
	release    release.Release
	writes     int
}

func (f *fakeRenderer) Register(p string, providers []templating.ContextProvider) {
	names := make([]string, 0, len(providers))
	for _, pr := range providers {
		names = append(names, pr.Name())
	}
	f.registered = append(f.registered, registration{path: p, providers: names})
}

func (f *fakeRenderer) SetRelease(rel release.Release) {
	f.release = rel
}

func (f *fakeRenderer) WriteAll(context.Context) ([]string, error) {
	f.writes++
	return nil, nil
}

func (f *fakeRenderer) paths() []string {
	out := make([]string, 0, len(f.registered))
	for _, r := range f.registered {
		out = append(out, r.path)
	}
	return out
}

type fakeSource struct {
	projects []string
}

func (f *fakeSource) Install(_ context.Context, projectsYAML string) error {
	f.projects = append(f.projects, projectsYAML)
	return nil
}

type harness struct {
	cfg      *config.Config
	sys      *fakeSystem
	packages *fakePackages
	renderer *fakeRenderer
	runner   *testutil.FakeRunner
	source   *fakeSource
	charm    *Charm
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.StateDir = "/var/lib/charm/openstack-dashboard"
	if mutate != nil {
		mutate(cfg)
	}
	h := &harness{
		cfg:      cfg,
		sys:      newFakeSystem(),
		packages: newFakePackages(),
		renderer: &fakeRenderer{},
		runner:   testutil.NewFakeRunner(),
		source:   &fakeSource{},
	}
	h.charm = New(Options{Config: cfg, UnitName: "openstack-dashboard/0"}, h.deps(h.renderer), nil)
	return h
}

func (h *harness) deps(r Renderer) Deps {
	return Deps{
		Packages: h.packages,
		Renderer: r,
		System:   h.sys,
		Services: host.NewSystemd(h.runner),
		Agent:    agent.New(h.runner),
		Runner:   h.runner,
		Source:   h.source,
	}
}

// statuses returns every status-set line the agent received.
func (h *harness) statuses() []string {
	var out []string
	for _, line := range h.runner.Lines() {
		if strings.HasPrefix(line, "status-set ") {
			out = append(out, strings.TrimPrefix(line, "status-set "))
		}
	}
	return out
}

func (h *harness) ran(prefix string) []string {
	return slices.DeleteFunc(h.runner.Lines(), func(l string) bool {
		return !strings.HasPrefix(l, prefix)
	})
}
