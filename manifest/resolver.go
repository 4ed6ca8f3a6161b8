package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolvedDep represents a dependency that has been resolved to a local path.
type ResolvedDep struct {
	Name      string    // dependency name
	LocalPath string    // local filesystem path
	Mount     string    // res:// prefix of its scripts
	Manifest  *Manifest // the dependency's own manifest (may be nil)
}

// Resolver manages dependency resolution.
type Resolver struct {
	manifest *Manifest
}

// NewResolver creates a new dependency resolver.
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m}
}

// Resolve resolves all dependencies and returns them in load order
// (topologically sorted: dependencies before dependents).
func (r *Resolver) Resolve() ([]ResolvedDep, error) {
	resolved := make(map[string]*ResolvedDep)
	return r.resolveAll(r.manifest, resolved)
}

// resolveAll resolves the dependencies of m recursively. Map iteration is
// sorted so the load order is deterministic.
func (r *Resolver) resolveAll(m *Manifest, resolved map[string]*ResolvedDep) ([]ResolvedDep, error) {
	var order []ResolvedDep

	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := resolved[name]; ok {
			continue
		}

		rd, err := resolveOne(m, name, m.Dependencies[name])
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}
		resolved[name] = rd

		if rd.Manifest != nil && len(rd.Manifest.Dependencies) > 0 {
			transitive, err := r.resolveAll(rd.Manifest, resolved)
			if err != nil {
				return nil, err
			}
			order = append(order, transitive...)
		}

		order = append(order, *rd)
	}

	return order, nil
}

// resolveOne resolves a single dependency relative to the manifest that
// declares it.
func resolveOne(m *Manifest, name string, dep Dependency) (*ResolvedDep, error) {
	if dep.Path == "" {
		return nil, fmt.Errorf("dependency %q has no path specified", name)
	}

	localPath := dep.Path
	if !filepath.IsAbs(localPath) {
		localPath = filepath.Join(m.Dir, localPath)
	}
	localPath, err := filepath.Abs(localPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", dep.Path, err)
	}

	if _, err := os.Stat(localPath); err != nil {
		return nil, fmt.Errorf("dependency %q not found at %s: %w", name, localPath, err)
	}

	mount := dep.Mount
	if mount == "" {
		mount = "res://addons/" + name
	}
	if !strings.HasPrefix(mount, "res://") {
		return nil, fmt.Errorf("dependency %q mount %q is not a res:// path", name, mount)
	}

	depManifest, _ := Load(localPath)

	return &ResolvedDep{
		Name:      name,
		LocalPath: localPath,
		Mount:     strings.TrimSuffix(mount, "/"),
		Manifest:  depManifest,
	}, nil
}
