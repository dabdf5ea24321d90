package gradle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gradlecp/pkg/report"
)

// LoadOptions controls how a project is read
type LoadOptions struct {
	PropertiesFile string
	SettingsFile   string
	IgnoredModules []string
	IgnoredLibs    []string
	MappedModules  map[string]string
}

// Project is a fully parsed multi-module build
type Project struct {
	Root         string
	Modules      []ModuleDeclaration
	Properties   map[string]string
	Dependencies map[string][]Dependency // by module path
	Skipped      map[string][]string     // by module path

	ignoredModules map[string]bool
	ignoredLibs    map[string]bool
	mapped         map[string]string
	pathsByName    map[string]string
}

// LoadProject parses the properties file, the settings file and every
// declared module's build script under root.
func LoadProject(root string, opts LoadOptions, r report.Reporter) (*Project, error) {
	project := &Project{
		Root:           root,
		Dependencies:   make(map[string][]Dependency),
		Skipped:        make(map[string][]string),
		ignoredModules: toSet(opts.IgnoredModules),
		ignoredLibs:    toSet(opts.IgnoredLibs),
		mapped:         opts.MappedModules,
		pathsByName:    make(map[string]string),
	}

	propertiesPath := filepath.Join(root, opts.PropertiesFile)
	properties, err := ParseProperties(propertiesPath, r)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.Debug("No properties file", "file", propertiesPath)
		properties = make(map[string]string)
	case err != nil:
		return nil, fmt.Errorf("failed to parse %s: %w", propertiesPath, err)
	}
	project.Properties = properties

	declarations, err := ParseModuleDeclarations(filepath.Join(root, opts.SettingsFile))
	if err != nil {
		return nil, err
	}
	for _, module := range declarations {
		if project.ignoredModules[module.Name] {
			continue
		}
		project.Modules = append(project.Modules, module)
		project.pathsByName[module.Name] = module.Path
	}
	r.Info("Project modules", "count", len(project.Modules))

	for _, module := range project.Modules {
		buildFile := filepath.Join(root, module.Path, BuildFileName)
		if _, err := os.Stat(buildFile); err != nil {
			return nil, fmt.Errorf("%w: build script not found: %s", ErrConfig, buildFile)
		}
	}

	// Sequential on purpose: project.ext assignments feed later modules
	for _, module := range project.Modules {
		script, err := ParseModuleBuildScript(root, module.Path, project.Properties, r)
		if err != nil {
			return nil, err
		}
		project.Dependencies[module.Path] = project.filter(script.Dependencies)
		project.Skipped[module.Path] = script.Skipped
	}

	if err := project.validate(); err != nil {
		return nil, err
	}
	return project, nil
}

// filter drops ignored modules and libraries and applies module renames
func (p *Project) filter(deps []Dependency) []Dependency {
	var out []Dependency
	seen := make(map[Dependency]bool)
	for _, dep := range deps {
		switch dep.Kind {
		case KindProject:
			dep.ModuleName = p.MapModule(dep.ModuleName)
			if p.ignoredModules[dep.ModuleName] {
				continue
			}
		case KindLibrary:
			if p.ignoredLibs[dep.Artifact] {
				continue
			}
		}
		if seen[dep] {
			continue
		}
		seen[dep] = true
		out = append(out, dep)
	}
	return out
}

func (p *Project) validate() error {
	for _, module := range p.Modules {
		for _, dep := range p.Dependencies[module.Path] {
			if dep.Kind != KindProject {
				continue
			}
			if _, ok := p.pathsByName[dep.ModuleName]; !ok {
				return fmt.Errorf("%w: module %q referenced by %s is not declared", ErrConfig, dep.ModuleName, module.Name)
			}
		}
	}
	return nil
}

// MapModule applies the configured module rename, if any
func (p *Project) MapModule(name string) string {
	if to, ok := p.mapped[name]; ok {
		return to
	}
	return name
}

// ModulePath returns the path of a declared module
func (p *Project) ModulePath(name string) (string, bool) {
	path, ok := p.pathsByName[p.MapModule(name)]
	return path, ok
}

// Module finds a declaration by name or path
func (p *Project) Module(nameOrPath string) (ModuleDeclaration, bool) {
	for _, module := range p.Modules {
		if module.Name == nameOrPath || module.Path == nameOrPath {
			return module, true
		}
	}
	return ModuleDeclaration{}, false
}

// ModuleGraph returns each module's name mapped to the names of the modules
// it depends on, including those reached through api edges.
func (p *Project) ModuleGraph() (map[string][]string, error) {
	graph := make(map[string][]string, len(p.Modules))
	for _, module := range p.Modules {
		deps, err := p.TransitiveDependencies(module.Path)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, dep := range deps {
			if dep.Kind == KindProject {
				names = append(names, dep.ModuleName)
			}
		}
		graph[module.Name] = names
	}
	return graph, nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
