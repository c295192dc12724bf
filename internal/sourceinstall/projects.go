package sourceinstall

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
)

const (
	// RequirementsProject must be cloned first; it pins the dependency set for the rest.
	RequirementsProject = "requirements"
	// CoreProject is the dashboard itself and must be cloned last.
	CoreProject = "horizon"

	defaultDirectory = "/mnt/openstack-git"
)

// Repository is one git project to clone and install.
type Repository struct {
	Name       string `yaml:"name"`
	Repository string `yaml:"repository"`
	Branch     string `yaml:"branch"`
}

// Projects is the openstack-origin-git manifest.
type Projects struct {
	Repositories []Repository `yaml:"repositories"`
	Directory    string       `yaml:"directory"`
	HTTPProxy    string       `yaml:"http_proxy"`
	HTTPSProxy   string       `yaml:"https_proxy"`
}

// ParseProjects decodes and validates a projects manifest.
func ParseProjects(data string) (*Projects, error) {
	dec := yaml.NewDecoder(bytes.NewReader([]byte(data)))
	dec.KnownFields(true)
	var p Projects
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf(messages.SourceProjectsInvalidFmt, err)
	}
	if p.Directory == "" {
		p.Directory = defaultDirectory
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf(messages.SourceProjectsInvalidFmt, err)
	}
	return &p, nil
}

func (p *Projects) validate() error {
	if len(p.Repositories) == 0 {
		return errors.New(messages.SourceProjectsEmpty)
	}
	var errs []error
	seen := make(map[string]bool, len(p.Repositories))
	for i, repo := range p.Repositories {
		for _, f := range []struct{ name, value string }{
			{"name", repo.Name},
			{"repository", repo.Repository},
			{"branch", repo.Branch},
		} {
			if strings.TrimSpace(f.value) == "" {
				errs = append(errs, fmt.Errorf(messages.SourceProjectFieldRequiredFmt, i, f.name))
			}
		}
		if repo.Name != "" && seen[repo.Name] {
			errs = append(errs, fmt.Errorf(messages.SourceProjectDuplicateFmt, repo.Name))
		}
		seen[repo.Name] = true
	}
	if first := p.Repositories[0].Name; first != RequirementsProject {
		errs = append(errs, fmt.Errorf(messages.SourceProjectsFirstFmt, RequirementsProject, first))
	}
	if last := p.Repositories[len(p.Repositories)-1].Name; last != CoreProject {
		errs = append(errs, fmt.Errorf(messages.SourceProjectsLastFmt, CoreProject, last))
	}
	return errors.Join(errs...)
}

// Env returns the proxy environment for network steps.
func (p *Projects) Env() []string {
	var env []string
	if p.HTTPProxy != "" {
		env = append(env, "http_proxy="+p.HTTPProxy)
	}
	if p.HTTPSProxy != "" {
		env = append(env, "https_proxy="+p.HTTPSProxy)
	}
	return env
}

// Dir returns the checkout directory of the named project.
func (p *Projects) Dir(name string) string {
	return p.Directory + "/" + name
}
