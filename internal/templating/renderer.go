// Package templating renders registered configuration files from embedded templates and
// per-file context providers.
package templating

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"text/template"

	"github.com/aymanbagabas/go-udiff"
	"go.uber.org/zap"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/release"
)

const defaultPerm os.FileMode = 0o644

// ContextProvider supplies template values for one concern (identity, apache, ...).
type ContextProvider interface {
	Name() string
	Context(ctx context.Context) (map[string]any, error)
}

// System is the filesystem surface the renderer writes through.
type System interface {
	ReadFile(name string) ([]byte, error)
	WriteFileAtomic(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
}

type registration struct {
	path      string
	providers []ContextProvider
}

// Renderer keeps the ordered set of registered files and writes them on demand.
type Renderer struct {
	sys       System
	templates fs.FS
	release   release.Release
	files     []registration
	index     map[string]int
	log       *zap.SugaredLogger
}

// New returns a Renderer that looks templates up in tmpl for rel.
func New(sys System, tmpl fs.FS, rel release.Release, log *zap.SugaredLogger) *Renderer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Renderer{
		sys:       sys,
		templates: tmpl,
		release:   rel,
		index:     map[string]int{},
		log:       log,
	}
}

// Register records path with its ordered context providers. Registering the same path
// again replaces its providers and keeps its position.
func (r *Renderer) Register(path string, providers []ContextProvider) {
	cp := append([]ContextProvider(nil), providers...)
	if i, ok := r.index[path]; ok {
		r.files[i].providers = cp
		return
	}
	r.index[path] = len(r.files)
	r.files = append(r.files, registration{path: path, providers: cp})
}

// Registered returns registered paths in registration order.
func (r *Renderer) Registered() []string {
	out := make([]string, 0, len(r.files))
	for _, f := range r.files {
		out = append(out, f.path)
	}
	return out
}

// SetRelease switches the template search to rel.
func (r *Renderer) SetRelease(rel release.Release) {
	r.release = rel
}

// Release returns the release templates are resolved for.
func (r *Renderer) Release() release.Release {
	return r.release
}

// Render returns the rendered content of a registered path.
func (r *Renderer) Render(ctx context.Context, target string) ([]byte, error) {
	i, ok := r.index[target]
	if !ok {
		return nil, fmt.Errorf(messages.TemplatingNotRegisteredFmt, target)
	}
	data := map[string]any{}
	for _, p := range r.files[i].providers {
		values, err := p.Context(ctx)
		if err != nil {
			return nil, fmt.Errorf(messages.TemplatingContextFailedFmt, p.Name(), target, err)
		}
		for k, v := range values {
			data[k] = v
		}
	}
	src, name, err := r.lookup(filepath.Base(target))
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf(messages.TemplatingParseFailedFmt, name, err)
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return nil, fmt.Errorf(messages.TemplatingExecuteFailedFmt, name, err)
	}
	return out.Bytes(), nil
}

// lookup finds a template by file name, searching the active release first, then older
// releases, then the template root.
func (r *Renderer) lookup(base string) ([]byte, string, error) {
	candidates := []string{}
	if r.release.Valid() {
		candidates = append(candidates, path.Join(string(r.release), base))
		for _, prev := range r.release.Previous() {
			candidates = append(candidates, path.Join(string(prev), base))
		}
	}
	candidates = append(candidates, base)
	for _, c := range candidates {
		data, err := fs.ReadFile(r.templates, c)
		if err == nil {
			return data, c, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf(messages.TemplatingReadFailedFmt, c, err)
		}
	}
	return nil, "", fmt.Errorf(messages.TemplatingNotFoundFmt, base, r.release)
}

// Write renders target and writes it when the content changed. It reports whether the
// file was written.
func (r *Renderer) Write(ctx context.Context, target string) (bool, error) {
	rendered, err := r.Render(ctx, target)
	if err != nil {
		return false, err
	}
	existing, err := r.sys.ReadFile(target)
	switch {
	case err == nil && bytes.Equal(existing, rendered):
		r.log.Debugw("config unchanged", "path", target)
		return false, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf(messages.TemplatingReadExistingFailedFmt, target, err)
	}
	if err := r.sys.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, fmt.Errorf(messages.TemplatingWriteFailedFmt, target, err)
	}
	if err := r.sys.WriteFileAtomic(target, rendered, defaultPerm); err != nil {
		return false, fmt.Errorf(messages.TemplatingWriteFailedFmt, target, err)
	}
	diff := udiff.Unified(target, target, string(existing), string(rendered))
	r.log.Infow("wrote config", "path", target, "diff", diff)
	return true, nil
}

// WriteAll writes every registered file in registration order and returns the paths that
// changed.
func (r *Renderer) WriteAll(ctx context.Context) ([]string, error) {
	var changed []string
	for _, f := range r.files {
		wrote, err := r.Write(ctx, f.path)
		if err != nil {
			return changed, err
		}
		if wrote {
			changed = append(changed, f.path)
		}
	}
	return changed, nil
}
