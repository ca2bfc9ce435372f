// Package resolver expands named dependency groups into flat dependency
// lists. It is pure and in-memory: no filesystem or network access.
//
// Include directives are expanded depth-first at the position they
// appear. Duplicates introduced by diamond inclusion are preserved;
// deduplication is deliberately not performed.
package resolver

import (
	"sort"
	"strings"

	"github.com/kam-pm/kam/pkg/errors"
	"github.com/kam-pm/kam/pkg/manifest"
)

// RootReferrer is reported as the referencing group when an undefined
// group is resolved directly rather than reached through an include.
const RootReferrer = "<root>"

// ResolvedGroup is a group with every include directive replaced by the
// target group's expanded concrete dependencies, in first-seen
// depth-first order.
type ResolvedGroup struct {
	Name string
	Deps []manifest.Dependency
}

// Resolver expands dependency groups.
type Resolver struct {
	groups map[string][]manifest.Entry
}

// New creates a Resolver over the given group mapping.
func New(groups map[string][]manifest.Entry) *Resolver {
	return &Resolver{groups: groups}
}

// Resolve expands every group. Any cycle or dangling include fails the
// whole call; no partial results are returned.
func (r *Resolver) Resolve() (map[string]ResolvedGroup, error) {
	resolved := make(map[string]ResolvedGroup, len(r.groups))

	// Sorted iteration so a graph with several errors always reports
	// the same one.
	for _, name := range r.sortedNames() {
		group, err := r.ResolveGroup(name)
		if err != nil {
			return nil, err
		}
		resolved[name] = group
	}

	return resolved, nil
}

// ResolveGroup expands a single group. Each call starts with a fresh
// expansion stack, so sibling groups never collide with one another.
func (r *Resolver) ResolveGroup(name string) (ResolvedGroup, error) {
	deps, err := r.expand(name, nil)
	if err != nil {
		return ResolvedGroup{}, err
	}
	return ResolvedGroup{Name: name, Deps: deps}, nil
}

// Validate is a cheap pre-flight pass checking that every include target
// exists. It performs no expansion and detects no cycles.
func (r *Resolver) Validate() error {
	for _, name := range r.sortedNames() {
		for _, entry := range r.groups[name] {
			if !entry.IsInclude() {
				continue
			}
			if _, ok := r.groups[entry.Include]; !ok {
				return groupNotFound(entry.Include, name)
			}
		}
	}
	return nil
}

// expand walks a group depth-first. The stack holds the groups on the
// current resolution path only; it is not shared across independent
// top-level resolutions.
func (r *Resolver) expand(name string, stack []string) ([]manifest.Dependency, error) {
	for _, onPath := range stack {
		if onPath == name {
			return nil, cycleDetected(append(stack, name))
		}
	}

	entries, ok := r.groups[name]
	if !ok {
		referrer := RootReferrer
		if len(stack) > 0 {
			referrer = stack[len(stack)-1]
		}
		return nil, groupNotFound(name, referrer)
	}

	stack = append(stack, name)

	var deps []manifest.Dependency
	for _, entry := range entries {
		if entry.IsInclude() {
			expanded, err := r.expand(entry.Include, stack)
			if err != nil {
				return nil, err
			}
			deps = append(deps, expanded...)
			continue
		}
		deps = append(deps, entry.Dep)
	}

	return deps, nil
}

func (r *Resolver) sortedNames() []string {
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func cycleDetected(path []string) error {
	return errors.Newf(errors.ErrCycleDetected,
		"dependency group include cycle: %s", strings.Join(path, " -> ")).
		WithDetail("path", path)
}

func groupNotFound(name, referrer string) error {
	return errors.Newf(errors.ErrGroupNotFound,
		"dependency group %q referenced by %q is not defined", name, referrer).
		WithDetail("group", name).
		WithDetail("referencedBy", referrer)
}
