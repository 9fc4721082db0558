package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ResolvedDep is a dependency located on disk.
type ResolvedDep struct {
	Name     string    // dependency name
	Dir      string    // absolute project directory
	Module   string    // module the dependency provides
	Manifest *Manifest // the dependency's own manifest (may be nil)
}

// Resolver locates the dependencies of a project.
type Resolver struct {
	manifest *Manifest
}

// NewResolver creates a new dependency resolver.
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m}
}

// Resolve resolves all dependencies and returns them in load order
// (dependencies before dependents). Two dependencies providing the same
// module, or a dependency providing the project's own module, is an error.
func (r *Resolver) Resolve() ([]ResolvedDep, error) {
	resolved := make(map[string]*ResolvedDep)
	visiting := make(map[string]bool)
	order, err := r.resolveAll(r.manifest, resolved, visiting)
	if err != nil {
		return nil, err
	}

	modules := map[string]string{r.manifest.Project.Module: r.manifest.Project.Name}
	for _, rd := range order {
		if other, ok := modules[rd.Module]; ok {
			return nil, fmt.Errorf("dependency %q provides module %s, already provided by %q", rd.Name, rd.Module, other)
		}
		modules[rd.Module] = rd.Name
	}
	return order, nil
}

// resolveAll resolves the dependencies of m recursively, in topological
// order.
func (r *Resolver) resolveAll(m *Manifest, resolved map[string]*ResolvedDep, visiting map[string]bool) ([]ResolvedDep, error) {
	var order []ResolvedDep

	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := resolved[name]; ok {
			continue // already resolved
		}
		if visiting[name] {
			return nil, fmt.Errorf("dependency cycle through %q", name)
		}

		rd, err := resolveOne(m, name, m.Dependencies[name])
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}

		if rd.Manifest != nil && len(rd.Manifest.Dependencies) > 0 {
			visiting[name] = true
			transitive, err := r.resolveAll(rd.Manifest, resolved, visiting)
			delete(visiting, name)
			if err != nil {
				return nil, err
			}
			order = append(order, transitive...)
		}

		resolved[name] = rd
		order = append(order, *rd)
	}

	return order, nil
}

// resolveModule determines the module a dependency provides:
//  1. Consumer override (dep.Module from TOML)
//  2. Producer manifest (project.module)
//  3. PascalCase fallback (ToPascalCase(name))
func resolveModule(name string, dep Dependency, depManifest *Manifest) (string, error) {
	var mod string
	switch {
	case dep.Module != "":
		mod = dep.Module
	case depManifest != nil && depManifest.Project.Module != "":
		mod = depManifest.Project.Module
	default:
		mod = ToPascalCase(name)
	}

	if err := CheckModuleName(mod); err != nil {
		return "", fmt.Errorf("dependency %q: %w; add module = \"...\" override in [dependencies]", name, err)
	}
	return mod, nil
}

// resolveOne resolves a single dependency relative to the manifest that
// declares it.
func resolveOne(m *Manifest, name string, dep Dependency) (*ResolvedDep, error) {
	if dep.Path == "" {
		return nil, fmt.Errorf("dependency %q has no path specified", name)
	}

	dir := dep.Path
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(m.Dir, dir)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", dep.Path, err)
	}

	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("local dependency %q not found at %s: %w", name, dir, err)
	}

	var depManifest *Manifest
	if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
		depManifest, err = Load(dir)
		if err != nil {
			return nil, err
		}
	}

	mod, err := resolveModule(name, dep, depManifest)
	if err != nil {
		return nil, err
	}

	return &ResolvedDep{
		Name:     name,
		Dir:      dir,
		Module:   mod,
		Manifest: depManifest,
	}, nil
}
